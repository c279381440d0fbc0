package models

import (
	"errors"
	"strings"
	"time"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	return validate.Struct(p)
}

// BeforeCreate trims user input and stamps the creation time
func (p *Post) BeforeCreate() {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
}

// IsAuthor reports whether userID wrote the post.
func (p *Post) IsAuthor(userID string) bool {
	return userID != "" && p.AuthorID == userID
}

// SetReplies attaches an assembled reply tree and refreshes ReplyCount.
func (p *Post) SetReplies(tree []*Reply) {
	p.Replies = tree
	p.ReplyCount = CountReplies(tree)
}

// AddReply attaches a top-level reply to the post
func (p *Post) AddReply(reply *Reply) error {
	if reply == nil {
		return errors.New("reply cannot be nil")
	}
	if reply.ParentID != 0 {
		return errors.New("nested reply must be attached to its parent")
	}

	reply.PostID = p.ID
	p.Replies = append([]*Reply{reply}, p.Replies...)
	p.ReplyCount++
	return nil
}

// RemoveReply detaches a reply, and everything below it, from the post's tree
func (p *Post) RemoveReply(replyID int) error {
	tree, removed := removeFromTree(p.Replies, replyID)
	if removed == 0 {
		return errors.New("reply not found")
	}
	p.Replies = tree
	p.ReplyCount -= removed
	return nil
}
