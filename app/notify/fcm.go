package notify

import (
	"context"
	"log"

	"forumhub/app/repositories"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMNotifier pushes notifications to every registered device of the
// recipient through Firebase Cloud Messaging
type FCMNotifier struct {
	client         multicastSender
	devices        repositories.DeviceRepository
	isUnregistered func(error) bool
}

// NewFCMNotifier initializes a messaging client from a service account file
func NewFCMNotifier(ctx context.Context, credentialsPath string, devices repositories.DeviceRepository) (*FCMNotifier, error) {
	log.Printf("[fcm] initializing firebase with credentials: %s", credentialsPath)

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to init firebase app")
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get messaging client")
	}

	log.Println("[fcm] messaging client initialized")
	return newFCMNotifier(client, devices), nil
}

func newFCMNotifier(client multicastSender, devices repositories.DeviceRepository) *FCMNotifier {
	return &FCMNotifier{
		client:         client,
		devices:        devices,
		isUnregistered: messaging.IsUnregistered,
	}
}

// Notify sends n to the recipient's devices. Tokens that FCM reports as
// unregistered are removed.
func (f *FCMNotifier) Notify(ctx context.Context, n Notification) error {
	devices, err := f.devices.ListByUser(n.UserID)
	if err != nil {
		return errors.Wrap(err, "failed to list devices")
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}

	resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data:   n.Data,
		Tokens: tokens,
	})
	if err != nil {
		return errors.Wrap(err, "multicast send failed")
	}

	log.Printf("[fcm] multicast to %s | success=%d failure=%d", n.UserID, resp.SuccessCount, resp.FailureCount)

	for i, r := range resp.Responses {
		if r.Success || i >= len(tokens) {
			continue
		}
		if f.isUnregistered(r.Error) {
			log.Printf("[fcm] deleting dead token for %s", n.UserID)
			if err := f.devices.Delete(n.UserID, tokens[i]); err != nil && err != repositories.ErrNotFound {
				log.Printf("[fcm] failed to delete token: %v", err)
			}
			continue
		}
		log.Printf("[fcm] token error for %s: %v", n.UserID, r.Error)
	}
	return nil
}
