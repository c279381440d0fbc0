package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forumhub/app/repositories/mock"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("not-a-hash", "hunter22"))
}

func TestTokenManager(t *testing.T) {
	sessions := mock.NewSessionRepository()
	tm := NewTokenManager(testSecret, time.Hour, sessions)

	t.Run("issue and parse", func(t *testing.T) {
		token, issued, err := tm.Issue("user-1")
		require.NoError(t, err)

		claims, err := tm.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, issued.ID, claims.ID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-456789", time.Hour, nil)
		token, _, err := other.Issue("user-1")
		require.NoError(t, err)

		_, err = tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenManager(testSecret, time.Hour, sessions)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := old.Issue("user-1")
		require.NoError(t, err)

		_, err = tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", ID: "x"})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tm.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("revoked", func(t *testing.T) {
		token, claims, err := tm.Issue("user-1")
		require.NoError(t, err)
		require.NoError(t, tm.Revoke(claims))

		_, err = tm.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("revoke without sessions", func(t *testing.T) {
		plain := NewTokenManager(testSecret, time.Hour, nil)
		_, claims, err := plain.Issue("user-1")
		require.NoError(t, err)
		assert.Error(t, plain.Revoke(claims))
	})
}

func TestAuthenticator(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, mock.NewSessionRepository())
	a := NewAuthenticator(tm)
	token, _, err := tm.Issue("user-1")
	require.NoError(t, err)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("user=" + UserID(r.Context())))
	})

	tests := []struct {
		name       string
		handler    http.Handler
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"require with token", a.Require(echo), "Bearer " + token, "", http.StatusOK, "user=user-1"},
		{"require lowercase scheme", a.Require(echo), "bearer " + token, "", http.StatusOK, "user=user-1"},
		{"require query token", a.Require(echo), "", "?access_token=" + token, http.StatusOK, "user=user-1"},
		{"require without token", a.Require(echo), "", "", http.StatusUnauthorized, "Missing bearer token"},
		{"require bad scheme", a.Require(echo), "Basic abc", "", http.StatusUnauthorized, "Missing bearer token"},
		{"require bad token", a.Require(echo), "Bearer nope", "", http.StatusUnauthorized, "Invalid or expired token"},
		{"optional anonymous", a.Optional(echo), "", "", http.StatusOK, "user="},
		{"optional bad token", a.Optional(echo), "Bearer nope", "", http.StatusOK, "user="},
		{"optional with token", a.Optional(echo), "Bearer " + token, "", http.StatusOK, "user=user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.wantBody), w.Body.String())
		})
	}
}

func TestClaimsFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := ClaimsFrom(req.Context())
	assert.False(t, ok)
	assert.Equal(t, "", UserID(req.Context()))
}
