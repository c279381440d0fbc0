package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"forumhub/app/auth"
	"forumhub/app/events"
	"forumhub/app/models"
	"forumhub/app/notify"
	"forumhub/app/repositories"
	"forumhub/app/repositories/mock"
	"forumhub/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type memBlobs struct {
	data map[string][]byte
}

func (m *memBlobs) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type testServer struct {
	store   *repositories.Store
	hub     *events.Hub
	blobs   *memBlobs
	replies *services.ReplyService
	router  *mux.Router
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	store := mock.NewStore()
	hub := events.NewHub(16)
	t.Cleanup(hub.Close)
	blobs := &memBlobs{}
	tokens := auth.NewTokenManager("controller-test-secret", time.Hour, store.Sessions)
	authn := auth.NewAuthenticator(tokens)

	authService := services.NewAuthService(store.Users, tokens)
	profileService := services.NewProfileService(store.Users, store.Devices, blobs, 1024, hub)
	postService := services.NewPostService(store, hub)
	replyService := services.NewReplyService(store, hub, notify.LogNotifier{})
	t.Cleanup(replyService.Wait)

	ac := NewAuthController(authService)
	pc := NewProfileController(profileService, 1024)
	posts := NewPostController(postService)
	rc := NewReplyController(replyService)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/signup", ac.SignUp).Methods("POST")
	api.HandleFunc("/auth/login", ac.Login).Methods("POST")
	api.Handle("/auth/logout", authn.RequireFunc(ac.Logout)).Methods("POST")
	api.Handle("/users/me", authn.RequireFunc(ac.Me)).Methods("GET")
	api.Handle("/users/me", authn.RequireFunc(pc.Update)).Methods("PUT")
	api.Handle("/users/me/nickname", authn.RequireFunc(pc.SetNickname)).Methods("PUT")
	api.Handle("/users/me/avatar", authn.RequireFunc(pc.UploadAvatar)).Methods("POST")
	api.Handle("/users/me/settings", authn.RequireFunc(pc.Settings)).Methods("GET")
	api.Handle("/users/me/settings", authn.RequireFunc(pc.UpdateSettings)).Methods("PUT")
	api.Handle("/users/me/devices", authn.RequireFunc(pc.RegisterDevice)).Methods("POST")
	api.Handle("/users/me/devices/{token}", authn.RequireFunc(pc.RemoveDevice)).Methods("DELETE")
	api.HandleFunc("/users/{id}", pc.Show).Methods("GET")
	api.HandleFunc("/users/{id}/posts", posts.UserIndex).Methods("GET")
	api.HandleFunc("/posts", posts.Index).Methods("GET")
	api.Handle("/posts", authn.RequireFunc(posts.Create)).Methods("POST")
	api.HandleFunc("/posts/{id:[0-9]+}", posts.Show).Methods("GET")
	api.Handle("/posts/{id:[0-9]+}", authn.RequireFunc(posts.Update)).Methods("PUT")
	api.Handle("/posts/{id:[0-9]+}", authn.RequireFunc(posts.Delete)).Methods("DELETE")
	api.Handle("/posts/{id:[0-9]+}/like", authn.RequireFunc(posts.Like)).Methods("POST")
	api.Handle("/posts/{id:[0-9]+}/like", authn.RequireFunc(posts.Unlike)).Methods("DELETE")
	api.HandleFunc("/posts/{postId:[0-9]+}/replies", rc.Index).Methods("GET")
	api.Handle("/posts/{postId:[0-9]+}/replies", authn.RequireFunc(rc.Create)).Methods("POST")
	api.Handle("/posts/{postId:[0-9]+}/replies/{id:[0-9]+}/replies", authn.RequireFunc(rc.CreateNested)).Methods("POST")
	api.Handle("/posts/{postId:[0-9]+}/replies/{id:[0-9]+}", authn.RequireFunc(rc.Delete)).Methods("DELETE")
	api.Handle("/posts/{postId:[0-9]+}/replies/{id:[0-9]+}/like", authn.RequireFunc(rc.Like)).Methods("POST")
	api.Handle("/posts/{postId:[0-9]+}/replies/{id:[0-9]+}/like", authn.RequireFunc(rc.Unlike)).Methods("DELETE")

	return &testServer{store: store, hub: hub, blobs: blobs, replies: replyService, router: r}
}

// do sends a JSON request; token may be empty
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

// signUp registers name and returns its session
func (s *testServer) signUp(t *testing.T, name string) services.Session {
	t.Helper()
	rr := s.do(t, "POST", "/api/auth/signup", "", models.Credentials{
		Email:    name + "@example.com",
		Password: "secret123",
		Nickname: name,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var session services.Session
	decode(t, rr, &session)
	return session
}

func (s *testServer) createPost(t *testing.T, token, title string) models.Post {
	t.Helper()
	rr := s.do(t, "POST", "/api/posts", token, map[string]string{"title": title, "content": "body of " + title})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var post models.Post
	decode(t, rr, &post)
	return post
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rr, &body)
	return body["error"]
}
