package models

import (
	"strings"
	"time"
)

// Validate checks the user's profile fields
func (u *User) Validate() error {
	return validate.Struct(u)
}

// BeforeCreate normalizes the email and stamps timestamps
func (u *User) BeforeCreate() {
	u.Email = NormalizeEmail(u.Email)
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt
	u.Settings.NotificationsEnabled = true
}

// Sanitized returns a copy that is safe to send to the user themselves.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}

// Public returns a copy safe to show to other users.
func (u *User) Public() *User {
	c := u.Sanitized()
	c.Email = ""
	c.Settings = Settings{}
	return c
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Biodata is the editable part of a user's profile.
type Biodata struct {
	DisplayName string `json:"displayName" validate:"notblank,max=50"`
	Bio         string `json:"bio" validate:"max=500"`
	AvatarURL   string `json:"avatarUrl" validate:"omitempty,url"`
}

// Validate checks the biodata fields
func (b *Biodata) Validate() error {
	return validate.Struct(b)
}

// Apply copies the biodata onto u.
func (b *Biodata) Apply(u *User) {
	u.DisplayName = strings.TrimSpace(b.DisplayName)
	u.Bio = strings.TrimSpace(b.Bio)
	u.AvatarURL = strings.TrimSpace(b.AvatarURL)
	u.UpdatedAt = time.Now().UTC()
}

// Credentials is a sign-up or sign-in request.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Nickname string `json:"nickname,omitempty" validate:"omitempty,max=50"`
}

// Validate checks the credential fields
func (c *Credentials) Validate() error {
	return validate.Struct(c)
}
