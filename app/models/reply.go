package models

import (
	"errors"
	"strings"
	"time"
)

// Validate checks if the reply meets all validation requirements
func (r *Reply) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.ParentID != 0 && r.ParentID == r.ID {
		return errors.New("reply cannot be its own parent")
	}
	return nil
}

// BeforeCreate trims the content and stamps the creation time
func (r *Reply) BeforeCreate() {
	r.Content = strings.TrimSpace(r.Content)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

// IsAuthor reports whether userID wrote the reply.
func (r *Reply) IsAuthor(userID string) bool {
	return userID != "" && r.AuthorID == userID
}

// SetParent places the reply under parent, which must belong to the same post
func (r *Reply) SetParent(parent *Reply) error {
	if parent == nil {
		return errors.New("parent reply cannot be nil")
	}
	if parent.PostID != r.PostID {
		return errors.New("parent reply belongs to a different post")
	}

	r.ParentID = parent.ID
	return nil
}
