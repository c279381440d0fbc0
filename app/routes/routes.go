package routes

import (
	"net/http"

	"forumhub/app/auth"
	"forumhub/app/controllers"
	"forumhub/app/events"
	"forumhub/app/middleware"
	"forumhub/app/notify"
	"forumhub/app/repositories"
	"forumhub/app/services"
	"forumhub/app/storage"

	"github.com/gorilla/mux"
)

// Deps is everything the router hands requests to
type Deps struct {
	Auth           *services.AuthService
	Profiles       *services.ProfileService
	Posts          *services.PostService
	Replies        *services.ReplyService
	Authenticator  *auth.Authenticator
	Hub            *events.Hub
	MaxAvatarBytes int64

	// Media serves locally stored blobs, mounted at storage.MediaPrefix;
	// nil when blobs live elsewhere
	Media http.Handler

	// StaticDir holds the built web client; empty disables it
	StaticDir string
}

// NewDeps builds the services over store. The caller sets Media and
// StaticDir when it has them.
func NewDeps(store *repositories.Store, tokens *auth.TokenManager, hub *events.Hub,
	blobs storage.BlobStore, notifier notify.Notifier, maxAvatarBytes int64) Deps {
	return Deps{
		Auth:           services.NewAuthService(store.Users, tokens),
		Profiles:       services.NewProfileService(store.Users, store.Devices, blobs, maxAvatarBytes, hub),
		Posts:          services.NewPostService(store, hub),
		Replies:        services.NewReplyService(store, hub, notifier),
		Authenticator:  auth.NewAuthenticator(tokens),
		Hub:            hub,
		MaxAvatarBytes: maxAvatarBytes,
	}
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(d Deps) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	authController := controllers.NewAuthController(d.Auth)
	profileController := controllers.NewProfileController(d.Profiles, d.MaxAvatarBytes)
	postController := controllers.NewPostController(d.Posts)
	replyController := controllers.NewReplyController(d.Replies)
	streamController := controllers.NewStreamController(d.Hub)
	authed := d.Authenticator.RequireFunc

	// API routes with JSON content type
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	api.NotFoundHandler = middleware.ContentTypeJSON(http.HandlerFunc(apiNotFound))

	// Auth endpoints
	api.HandleFunc("/auth/signup", authController.SignUp).Methods("POST")
	api.HandleFunc("/auth/login", authController.Login).Methods("POST")
	api.Handle("/auth/logout", authed(authController.Logout)).Methods("POST")

	// Profile endpoints; /users/me must win over /users/{id}
	users := api.PathPrefix("/users").Subrouter()
	users.Handle("/me", authed(authController.Me)).Methods("GET")
	users.Handle("/me", authed(profileController.Update)).Methods("PUT")
	users.Handle("/me/nickname", authed(profileController.SetNickname)).Methods("PUT")
	users.Handle("/me/avatar", authed(profileController.UploadAvatar)).Methods("POST")
	users.Handle("/me/settings", authed(profileController.Settings)).Methods("GET")
	users.Handle("/me/settings", authed(profileController.UpdateSettings)).Methods("PUT")
	users.Handle("/me/devices", authed(profileController.RegisterDevice)).Methods("POST")
	users.Handle("/me/devices/{token}", authed(profileController.RemoveDevice)).Methods("DELETE")
	users.HandleFunc("/{id}", profileController.Show).Methods("GET")
	users.HandleFunc("/{id}/posts", postController.UserIndex).Methods("GET")

	// Posts endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.Index).Methods("GET")
	posts.Handle("", authed(postController.Create)).Methods("POST")
	posts.HandleFunc("/{id:[0-9]+}", postController.Show).Methods("GET")
	posts.Handle("/{id:[0-9]+}", authed(postController.Update)).Methods("PUT")
	posts.Handle("/{id:[0-9]+}", authed(postController.Delete)).Methods("DELETE")
	posts.Handle("/{id:[0-9]+}/like", authed(postController.Like)).Methods("POST")
	posts.Handle("/{id:[0-9]+}/like", authed(postController.Unlike)).Methods("DELETE")

	// Replies endpoints
	posts.HandleFunc("/{postId:[0-9]+}/replies", replyController.Index).Methods("GET")
	posts.Handle("/{postId:[0-9]+}/replies", authed(replyController.Create)).Methods("POST")
	posts.Handle("/{postId:[0-9]+}/replies/{id:[0-9]+}/replies", authed(replyController.CreateNested)).Methods("POST")
	posts.Handle("/{postId:[0-9]+}/replies/{id:[0-9]+}", authed(replyController.Delete)).Methods("DELETE")
	posts.Handle("/{postId:[0-9]+}/replies/{id:[0-9]+}/like", authed(replyController.Like)).Methods("POST")
	posts.Handle("/{postId:[0-9]+}/replies/{id:[0-9]+}/like", authed(replyController.Unlike)).Methods("DELETE")

	// Live updates
	api.HandleFunc("/stream", streamController.Stream).Methods("GET")

	if d.Media != nil {
		router.PathPrefix(storage.MediaPrefix).Handler(d.Media).Methods("GET", "HEAD")
	}

	if d.StaticDir != "" {
		router.PathPrefix("/").Handler(NewSPAHandler(d.StaticDir)).Methods("GET", "HEAD")
	}

	return router
}

func apiNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not found"}`))
}
