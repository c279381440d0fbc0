package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"forumhub/app/auth"
	"forumhub/app/models"
	"forumhub/app/repositories"

	"github.com/pkg/errors"
)

const maxNicknameLength = 50

// Session is what a successful sign-up or sign-in returns
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// AuthService handles sign-up, sign-in and sign-out
type AuthService struct {
	users  repositories.UserRepository
	tokens *auth.TokenManager
}

// NewAuthService creates a new AuthService
func NewAuthService(users repositories.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// SignUp registers a new account and signs it in. An empty nickname falls
// back to the local part of the email address.
func (s *AuthService) SignUp(creds models.Credentials) (*Session, error) {
	creds.Email = models.NormalizeEmail(creds.Email)
	creds.Nickname = strings.TrimSpace(creds.Nickname)
	if err := creds.Validate(); err != nil {
		return nil, validationError(err)
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		return nil, err
	}

	nickname := creds.Nickname
	if nickname == "" {
		nickname = defaultNickname(creds.Email)
	}

	user := &models.User{
		Email:        creds.Email,
		DisplayName:  nickname,
		PasswordHash: hash,
	}
	user.BeforeCreate()
	if err := user.Validate(); err != nil {
		return nil, validationError(err)
	}

	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errors.Wrap(ErrConflict, "email is already registered")
		}
		return nil, errors.Wrap(err, "failed to create user")
	}
	return s.issue(user)
}

// SignIn checks the credentials and starts a session
func (s *AuthService) SignIn(email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errors.Wrap(ErrUnauthorized, "invalid email or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, errors.Wrap(ErrUnauthorized, "invalid email or password")
	}
	return s.issue(user)
}

// SignOut revokes the session the claims belong to
func (s *AuthService) SignOut(claims *auth.Claims) error {
	if claims == nil {
		return ErrUnauthorized
	}
	return s.tokens.Revoke(claims)
}

// Me returns the signed-in user's own record
func (s *AuthService) Me(userID string) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user.Sanitized(), nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user.Sanitized(),
	}, nil
}

func defaultNickname(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		local = "member"
	}
	for utf8.RuneCountInString(local) > maxNicknameLength {
		_, size := utf8.DecodeLastRuneInString(local)
		local = local[:len(local)-size]
	}
	return local
}
