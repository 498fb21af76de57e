package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"

	apperrors "parkly/pkg/errors"
	httputil "parkly/pkg/http"
	"parkly/pkg/logger"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type identityKey struct{}

// Identity is the caller extracted from a verified bearer token.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Caller returns the authenticated identity or an Unauthorized AppError.
func Caller(ctx context.Context) (Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return Identity{}, apperrors.Unauthorized("Authentication required")
	}
	return id, nil
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Parse(raw string) (Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userID, ok := numericClaim(claims["id"])
	if !ok || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)

	return Identity{UserID: userID, Email: email, Role: role}, nil
}

func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n == float64(int64(n))
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

// Issue signs an HS256 token carrying id, email and role claims.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"id":    id.UserID,
		"email": id.Email,
		"role":  id.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func bearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return "", ErrMissingToken
	}
	return raw, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func Authenticate(v *Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearer(r)
			if err == nil {
				var id Identity
				id, err = v.Parse(raw)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
					return
				}
			}

			log.Warn("Authentication failed", "path", r.URL.Path, "error", err)
			if writeErr := httputil.WriteError(w, apperrors.Unauthorized(err.Error())); writeErr != nil {
				log.Error("failed to write error response", "handler", "Authenticate", "operation", "WriteError", "error", writeErr)
			}
		})
	}
}

// RequireAdmin wraps a route so only admins reach it.
func RequireAdmin(log *logger.Logger, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !id.IsAdmin() {
			if writeErr := httputil.WriteError(w, apperrors.Forbidden("Admin access required")); writeErr != nil {
				log.Error("failed to write error response", "handler", "RequireAdmin", "operation", "WriteError", "error", writeErr)
			}
			return
		}
		next(w, r, ps)
	}
}

// Subject keys per-caller middleware state such as rate limits and
// idempotency records.
func Subject(r *http.Request) string {
	if id, ok := IdentityFrom(r.Context()); ok {
		return "user:" + strconv.FormatInt(id.UserID, 10)
	}
	return ""
}
