package models

import "time"

// User is a registered forum member. The profile fields (display name, bio,
// avatar) make up the user's biodata.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty" validate:"required,email"`
	DisplayName  string    `json:"displayName" validate:"notblank,max=50"`
	AvatarURL    string    `json:"avatarUrl" validate:"omitempty,url"`
	Bio          string    `json:"bio" validate:"max=500"`
	PasswordHash string    `json:"passwordHash,omitempty" validate:"-"`
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Settings holds per-user preferences.
type Settings struct {
	NotificationsEnabled bool `json:"notificationsEnabled"`
}

// Post represents a top-level forum entry.
type Post struct {
	ID         int       `json:"id" validate:"gte=0"`
	Title      string    `json:"title" validate:"notblank,max=200"`
	Content    string    `json:"content" validate:"notblank,max=10000"`
	AuthorID   string    `json:"authorId" validate:"required"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	LikeCount  int       `json:"likes"`
	ReplyCount int       `json:"replyCount"`
	Replies    []*Reply  `json:"replies,omitempty" validate:"-"`
}

// Reply is a comment attached to a post, or to another reply of the same
// post when ParentID is set.
type Reply struct {
	ID         int       `json:"id" validate:"gte=0"`
	PostID     int       `json:"postId" validate:"gt=0"`
	ParentID   int       `json:"parentId" validate:"gte=0"`
	Content    string    `json:"content" validate:"notblank,max=2000"`
	AuthorID   string    `json:"authorId" validate:"required"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
	LikeCount  int       `json:"likes"`
	Replies    []*Reply  `json:"replies,omitempty" validate:"-"`
}

// TargetKind names what a like points at.
type TargetKind string

const (
	TargetPost  TargetKind = "post"
	TargetReply TargetKind = "reply"
)

// Like records a single user's like of a post or reply.
type Like struct {
	Kind      TargetKind `json:"kind"`
	TargetID  int        `json:"targetId"`
	PostID    int        `json:"postId"`
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Device is a push notification registration for a user.
type Device struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token" validate:"notblank,max=4096"`
	Platform  string    `json:"platform" validate:"omitempty,oneof=web android ios"`
	CreatedAt time.Time `json:"createdAt"`
}
