package auth

import (
	"time"

	"forumhub/app/repositories"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims of a session token. Subject is the user ID and
// ID (jti) identifies the session for sign-out.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the user the token was issued to
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenManager issues and verifies HS256 session tokens
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	sessions repositories.SessionRepository
	now      func() time.Time
}

// NewTokenManager creates a TokenManager. sessions may be nil, in which case
// tokens cannot be revoked.
func NewTokenManager(secret string, ttl time.Duration, sessions repositories.SessionRepository) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
		now:      time.Now,
	}
}

// Issue signs a new token for userID
func (m *TokenManager) Issue(userID string) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to sign token")
	}
	return token, claims, nil
}

// Parse verifies the token's signature and expiry and that it was not revoked
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if m.sessions != nil {
		revoked, err := m.sessions.IsRevoked(claims.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to check session")
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// Revoke signs the session out until the token would have expired
func (m *TokenManager) Revoke(claims *Claims) error {
	if m.sessions == nil {
		return errors.New("token revocation is not configured")
	}
	until := m.now().Add(m.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return m.sessions.Revoke(claims.ID, until)
}
