package repositories

import (
	"time"

	"forumhub/app/models"

	"github.com/pkg/errors"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	List(limit, offset int) ([]*models.User, error)
}

// PostRepository defines the interface for post data access.
// List, ListByAuthor and Search return posts newest first.
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id int) (*models.Post, error)
	List(limit, offset int) ([]*models.Post, error)
	ListByAuthor(authorID string, limit, offset int) ([]*models.Post, error)
	Search(query string, limit, offset int) ([]*models.Post, error)
	Update(post *models.Post) error
	Delete(id int) error
}

// ReplyRepository defines the interface for reply data access.
// Replies are always addressed through their post.
type ReplyRepository interface {
	Create(reply *models.Reply) error
	GetByID(postID, id int) (*models.Reply, error)
	ListByPost(postID int) ([]*models.Reply, error)
	CountByPost(postID int) (int, error)
	Delete(postID int, ids ...int) error
	DeleteByPost(postID int) error
}

// LikeRepository records likes and keeps the target's like count in step.
// Like and Unlike are idempotent: changed is false when nothing happened.
type LikeRepository interface {
	Like(kind models.TargetKind, postID, targetID int, userID string) (count int, changed bool, err error)
	Unlike(kind models.TargetKind, postID, targetID int, userID string) (count int, changed bool, err error)
	HasLiked(kind models.TargetKind, targetID int, userID string) (bool, error)
	DeleteByTarget(kind models.TargetKind, targetIDs ...int) error
}

// SessionRepository tracks signed-out tokens until they would have expired.
type SessionRepository interface {
	Revoke(tokenID string, until time.Time) error
	IsRevoked(tokenID string) (bool, error)
}

// DeviceRepository stores push notification registrations.
type DeviceRepository interface {
	Register(device *models.Device) error
	ListByUser(userID string) ([]*models.Device, error)
	Delete(userID, token string) error
}
