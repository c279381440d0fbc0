// Package notify tells users about replies to their posts and replies.
package notify

import (
	"context"
	"log"
)

// Notification is a message for a single user
type Notification struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// Notifier delivers notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of sending them
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	log.Printf("[notify] to=%s title=%q body=%q", n.UserID, n.Title, n.Body)
	return nil
}
