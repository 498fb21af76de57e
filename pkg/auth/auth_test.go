package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/pkg/logger"
)

const testSecret = "0123456789abcdef-test"

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier(testSecret)
	token, err := v.Issue(Identity{UserID: 42, Email: "a@b.c", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	id, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "a@b.c", id.Email)
	assert.True(t, id.IsAdmin())
}

func TestVerifier_RejectsBadTokens(t *testing.T) {
	v := NewVerifier(testSecret)

	expired, err := v.Issue(Identity{UserID: 1, Role: RoleUser}, -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewVerifier("another-secret-value").Issue(Identity{UserID: 1}, time.Hour)
	require.NoError(t, err)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired":   expired,
		"wrong key": otherKey,
		"no id":     noID,
		"garbage":   "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Parse(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAuthenticateAndRequireAdmin(t *testing.T) {
	v := NewVerifier(testSecret)
	log := logger.Nop()

	router := httprouter.New()
	router.GET("/admin", RequireAdmin(log, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}))
	h := Authenticate(v, log)(router)

	adminTok, _ := v.Issue(Identity{UserID: 1, Role: RoleAdmin}, time.Hour)
	userTok, _ := v.Issue(Identity{UserID: 2, Role: RoleUser}, time.Hour)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"user token", userTok, http.StatusForbidden},
		{"admin token", adminTok, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
