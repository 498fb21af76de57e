package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send honours ctx only up to dialing; net/smtp has no context support.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.send(addr, auth, m.cfg.From, []string{msg.To}, buildMIME(m.cfg.From, msg))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail to %s abandoned: %w", msg.To, ctx.Err())
	}
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// SMTPGateway sends mail inline, without the notifier service.
type SMTPGateway struct {
	mailer Mailer
}

func NewSMTPGateway(mailer Mailer) *SMTPGateway {
	return &SMTPGateway{mailer: mailer}
}

func (g *SMTPGateway) SendApproval(ctx context.Context, notice ApprovalNotice) error {
	return g.mailer.Send(ctx, RenderApproval(notice))
}

func (g *SMTPGateway) SendRejection(ctx context.Context, notice RejectionNotice) error {
	return g.mailer.Send(ctx, RenderRejection(notice))
}
