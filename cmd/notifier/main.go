package main

import (
	"context"
	"errors"

	"parkly/internal/notifier/service"
	"parkly/pkg/app"
	"parkly/pkg/config"
	"parkly/pkg/notification"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetAMQP()

	cfg.Log.Info("Starting Notifier service", "queue", cfg.NotificationQueue, "smtp_host", cfg.SMTPHost)
	mailer := notification.NewSMTPMailer(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	notifier, err := service.NewNotifierService(cfg.Client.AMQP, cfg.NotificationQueue, mailer, cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to set up notification consumer", "error", err)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.AddReadinessCheck(app.ReadinessCheck{
		Name: "rabbitmq",
		Check: func(context.Context) error {
			if cfg.Client.AMQP.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		},
	})
	serverApp.AddWorker(app.Worker{Name: "notification-consumer", Run: notifier.Run})
	serverApp.OnShutdown("notification-consumer", notifier.Close)
	serverApp.SetApp(nil)
	serverApp.Run()
}
