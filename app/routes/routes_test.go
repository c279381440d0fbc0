package routes

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forumhub/app/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPNG = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestHealthz(t *testing.T) {
	app := setupTestRouter(t, "")
	w := app.request(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAPINotFound(t *testing.T) {
	app := setupTestRouter(t, setupStaticDir(t))

	for _, path := range []string{"/api/nothing", "/api/posts/abc", "/api/posts/1/comments"} {
		t.Run(path, func(t *testing.T) {
			w := app.request(t, "GET", path, "", nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
		})
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	app := setupTestRouter(t, "")

	routes := []struct{ method, path string }{
		{"POST", "/api/auth/logout"},
		{"GET", "/api/users/me"},
		{"PUT", "/api/users/me"},
		{"PUT", "/api/users/me/nickname"},
		{"POST", "/api/users/me/avatar"},
		{"GET", "/api/users/me/settings"},
		{"PUT", "/api/users/me/settings"},
		{"POST", "/api/users/me/devices"},
		{"DELETE", "/api/users/me/devices/abc"},
		{"POST", "/api/posts"},
		{"PUT", "/api/posts/1"},
		{"DELETE", "/api/posts/1"},
		{"POST", "/api/posts/1/like"},
		{"DELETE", "/api/posts/1/like"},
		{"POST", "/api/posts/1/replies"},
		{"POST", "/api/posts/1/replies/2/replies"},
		{"DELETE", "/api/posts/1/replies/2"},
		{"POST", "/api/posts/1/replies/2/like"},
		{"DELETE", "/api/posts/1/replies/2/like"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := app.request(t, rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
		})
	}
}

func TestForumFlow(t *testing.T) {
	app := setupTestRouter(t, "")
	aliceToken, aliceID := app.signUp(t, "alice")
	bobToken, _ := app.signUp(t, "bob")

	w := app.request(t, "POST", "/api/posts", aliceToken, map[string]string{"title": "Badger tips", "content": "Keep values small"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post struct {
		ID         int    `json:"id"`
		AuthorName string `json:"authorName"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.Equal(t, "alice", post.AuthorName, "nickname defaults to the email local part")

	repliesPath := fmt.Sprintf("/api/posts/%d/replies", post.ID)
	w = app.request(t, "POST", repliesPath, bobToken, map[string]string{"content": "Thanks"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reply struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))

	w = app.request(t, "POST", fmt.Sprintf("%s/%d/replies", repliesPath, reply.ID), aliceToken, map[string]string{"content": "You're welcome"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.request(t, "POST", fmt.Sprintf("/api/posts/%d/like", post.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.request(t, "POST", fmt.Sprintf("%s/%d/like", repliesPath, reply.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("post shows counts and tree", func(t *testing.T) {
		w := app.request(t, "GET", fmt.Sprintf("/api/posts/%d", post.ID), "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got struct {
			Likes      int `json:"likes"`
			ReplyCount int `json:"replyCount"`
			Replies    []struct {
				Likes   int `json:"likes"`
				Replies []struct {
					Content string `json:"content"`
				} `json:"replies"`
			} `json:"replies"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 1, got.Likes)
		assert.Equal(t, 2, got.ReplyCount)
		require.Len(t, got.Replies, 1)
		assert.Equal(t, 1, got.Replies[0].Likes)
		require.Len(t, got.Replies[0].Replies, 1)
		assert.Equal(t, "You're welcome", got.Replies[0].Replies[0].Content)
	})

	t.Run("listing and user posts", func(t *testing.T) {
		w := app.request(t, "GET", "/api/posts?q=badger", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Badger tips")

		w = app.request(t, "GET", "/api/users/"+aliceID+"/posts", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"replyCount":2`)
	})

	t.Run("delete cascades", func(t *testing.T) {
		w := app.request(t, "DELETE", fmt.Sprintf("/api/posts/%d", post.ID), bobToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = app.request(t, "DELETE", fmt.Sprintf("/api/posts/%d", post.ID), aliceToken, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		n, err := app.store.Replies.CountByPost(post.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		w = app.request(t, "GET", repliesPath, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("sign out", func(t *testing.T) {
		w := app.request(t, "POST", "/api/auth/logout", bobToken, nil)
		require.Equal(t, http.StatusNoContent, w.Code)
		w = app.request(t, "GET", "/api/users/me", bobToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAvatarIsServedFromMedia(t *testing.T) {
	app := setupTestRouter(t, "")
	token, userID := app.signUp(t, "ada")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(testPNG)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/users/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var user struct {
		AvatarURL string `json:"avatarUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.True(t, strings.HasPrefix(user.AvatarURL, "http://forum.test/media/avatars/"+userID+"?v="), user.AvatarURL)

	w = app.request(t, "GET", "/media/avatars/"+userID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testPNG, w.Body.Bytes())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = app.request(t, "GET", "/media/avatars/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no directory listings")
}

func TestWebClientRoutes(t *testing.T) {
	app := setupTestRouter(t, setupStaticDir(t))

	for _, path := range []string{"/", "/signup", "/home", "/biodata", "/settings", "/nickname", "/posts/12"} {
		t.Run(path, func(t *testing.T) {
			w := app.request(t, "GET", path, "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, testIndexHTML, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		})
	}

	t.Run("assets", func(t *testing.T) {
		w := app.request(t, "GET", "/assets/app.css", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
		assert.Equal(t, "body { background: #f0f0f0; }", w.Body.String())
	})

	t.Run("missing asset", func(t *testing.T) {
		w := app.request(t, "GET", "/assets/missing.js", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("without a client", func(t *testing.T) {
		bare := setupTestRouter(t, "")
		w := bare.request(t, "GET", "/", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStreamRoute(t *testing.T) {
	app := setupTestRouter(t, "")
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stream?post=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line, "headers and first frame are flushed through the middleware")

	require.Eventually(t, func() bool {
		return app.hub.Subscribers(events.PostTopic(5)) == 1
	}, time.Second, 5*time.Millisecond)
	app.hub.Publish(events.Event{Type: events.ReplyCreated, Topic: events.PostTopic(5), PostID: 5, ReplyID: 1})

	var frame []string
	for len(frame) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			frame = append(frame, line)
		}
	}
	assert.Equal(t, "id: 1", frame[0])
	assert.Equal(t, "event: reply.created", frame[1])
	assert.Contains(t, frame[2], `"replyId":1`)
}
