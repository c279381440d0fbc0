package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"forumhub/app/auth"
	"forumhub/app/events"
	"forumhub/app/models"
	"forumhub/app/notify"
	"forumhub/app/repositories"
	"forumhub/app/repositories/mock"

	"github.com/stretchr/testify/require"
)

type recordingHub struct {
	mu     sync.Mutex
	events []events.Event
}

func (h *recordingHub) Publish(e events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func (h *recordingHub) last() events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return events.Event{}
	}
	return h.events[len(h.events)-1]
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification{}, n.sent...)
}

type testEnv struct {
	store    *repositories.Store
	hub      *recordingHub
	notifier *recordingNotifier
	tokens   *auth.TokenManager
	auth     *AuthService
	posts    *PostService
	replies  *ReplyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mock.NewStore()
	hub := &recordingHub{}
	notifier := &recordingNotifier{}
	tokens := auth.NewTokenManager("service-test-secret", time.Hour, store.Sessions)
	return &testEnv{
		store:    store,
		hub:      hub,
		notifier: notifier,
		tokens:   tokens,
		auth:     NewAuthService(store.Users, tokens),
		posts:    NewPostService(store, hub),
		replies:  NewReplyService(store, hub, notifier),
	}
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Email: name + "@example.com", DisplayName: name}
	u.BeforeCreate()
	require.NoError(t, e.store.Users.Create(u))
	return u
}
