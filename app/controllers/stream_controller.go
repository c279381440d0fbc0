package controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"forumhub/app/events"
	"forumhub/app/services"
)

const heartbeatInterval = 25 * time.Second

// StreamController serves forum changes as server-sent events
type StreamController struct {
	hub       *events.Hub
	heartbeat time.Duration
}

// NewStreamController creates a new StreamController
func NewStreamController(hub *events.Hub) *StreamController {
	return &StreamController{hub: hub, heartbeat: heartbeatInterval}
}

// Stream subscribes to post level events and, with ?post=<id>, to that
// post's thread. It returns when the client goes away or the hub closes.
func (sc *StreamController) Stream(w http.ResponseWriter, r *http.Request) {
	topics := []string{events.TopicPosts}
	if v := r.URL.Query().Get("post"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			handleError(w, r, "open stream", &services.InputError{Reason: "invalid post"})
			return
		}
		topics = append(topics, events.PostTopic(id))
	}

	rc := http.NewResponseController(w)
	sub := sc.hub.Subscribe(topics...)
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		log.Printf("[http] stream cannot flush: %v", err)
		return
	}

	ticker := time.NewTicker(sc.heartbeat)
	defer ticker.Stop()

	var seq int64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				log.Printf("[http] stream encode %s: %v", e.Type, err)
				continue
			}
			seq++
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, e.Type, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
