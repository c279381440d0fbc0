package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"forumhub/app/auth"
	"forumhub/app/events"
	"forumhub/app/notify"
	"forumhub/app/repositories"
	"forumhub/app/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

const testIndexHTML = `<!DOCTYPE html><html><body><div id="app"></div></body></html>`

func setupStaticDir(t *testing.T) string {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "assets"), 0755))

	files := map[string]string{
		filepath.Join(tmpDir, "index.html"):        testIndexHTML,
		filepath.Join(tmpDir, "assets", "app.js"):  "console.log('forum')",
		filepath.Join(tmpDir, "assets", "app.css"): "body { background: #f0f0f0; }",
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return tmpDir
}

func setupTestDB(t *testing.T) *repositories.Store {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	bs := repositories.NewBadgerStore(db)
	t.Cleanup(func() { bs.Close() })
	return bs.Store()
}

type testApp struct {
	router *mux.Router
	store  *repositories.Store
	hub    *events.Hub
	deps   Deps
}

// setupTestRouter wires the full router over an in-memory Badger store
// with local media storage
func setupTestRouter(t *testing.T, staticDir string) *testApp {
	t.Helper()
	store := setupTestDB(t)
	hub := events.NewHub(16)
	t.Cleanup(hub.Close)

	media, err := storage.NewLocalStore(t.TempDir(), "http://forum.test")
	require.NoError(t, err)

	tokens := auth.NewTokenManager("routes-test-secret", time.Hour, store.Sessions)
	deps := NewDeps(store, tokens, hub, media, notify.LogNotifier{}, 1<<20)
	deps.Media = media.Handler()
	deps.StaticDir = staticDir
	t.Cleanup(deps.Replies.Wait)

	return &testApp{router: SetupRoutes(deps), store: store, hub: hub, deps: deps}
}

func (a *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signUp creates an account and returns its token and user ID
func (a *testApp) signUp(t *testing.T, name string) (string, string) {
	t.Helper()
	w := a.request(t, "POST", "/api/auth/signup", "", map[string]string{
		"email":    name + "@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Token, res.User.ID
}
