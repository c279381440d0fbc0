// Package events fans out forum changes to live subscribers.
package events

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	PostCreated  = "post.created"
	PostUpdated  = "post.updated"
	PostDeleted  = "post.deleted"
	PostLiked    = "post.liked"
	ReplyCreated = "reply.created"
	ReplyDeleted = "reply.deleted"
	ReplyLiked   = "reply.liked"
	UserUpdated  = "user.updated"
)

// TopicPosts carries every post level change
const TopicPosts = "posts"

// PostTopic is the topic for changes inside one post's thread
func PostTopic(postID int) string {
	return "post:" + strconv.Itoa(postID)
}

// Event is a single change notification
type Event struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic"`
	PostID  int         `json:"postId,omitempty"`
	ReplyID int         `json:"replyId,omitempty"`
	ActorID string      `json:"actorId,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// Publisher is the write side of the hub
type Publisher interface {
	Publish(Event)
}

// Hub delivers published events to subscribers of the event's topic.
// Delivery never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Int64
	closed  bool
}

// NewHub creates a Hub whose subscriptions buffer up to buffer events
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscription receives the events of its topics on C
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	hub    *Hub
	topics []string
	once   sync.Once
}

// Subscribe registers interest in topics. Close the subscription when done.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h, topics: topics}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	for _, t := range topics {
		if h.subs[t] == nil {
			h.subs[t] = make(map[*Subscription]struct{})
		}
		h.subs[t][sub] = struct{}{}
	}
	return sub
}

// Close unsubscribes and closes C
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, t := range s.topics {
		delete(h.subs[t], s)
		if len(h.subs[t]) == 0 {
			delete(h.subs, t)
		}
	}
	close(s.ch)
}

// Publish delivers e to the current subscribers of e.Topic
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[e.Topic] {
		select {
		case sub.ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped counts events lost to full subscriber buffers
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers counts the subscriptions to topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Close ends every subscription. Later publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	seen := make(map[*Subscription]bool)
	for _, set := range h.subs {
		for sub := range set {
			if !seen[sub] {
				seen[sub] = true
				close(sub.ch)
			}
		}
	}
	h.subs = make(map[string]map[*Subscription]struct{})
}
