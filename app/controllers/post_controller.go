package controllers

import (
	"net/http"
	"strings"

	"forumhub/app/auth"
	"forumhub/app/services"

	"github.com/gorilla/mux"
)

// PostController handles HTTP requests for forum posts
type PostController struct {
	postService *services.PostService
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService) *PostController {
	return &PostController{postService: postService}
}

type postInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Index lists posts newest first; q searches titles and content
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	posts, err := pc.postService.ListPosts(page, perPage, query)
	if err != nil {
		handleError(w, r, "fetch posts", err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"posts":   posts,
		"page":    page,
		"perPage": perPage,
	})
}

// UserIndex lists one user's posts newest first
func (pc *PostController) UserIndex(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	posts, err := pc.postService.ListUserPosts(mux.Vars(r)["id"], page, perPage)
	if err != nil {
		handleError(w, r, "fetch posts", err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"posts":   posts,
		"page":    page,
		"perPage": perPage,
	})
}

// Show returns a post with its reply tree
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		handleError(w, r, "fetch post", err)
		return
	}
	post, err := pc.postService.GetPost(id)
	if err != nil {
		handleError(w, r, "fetch post", err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	var in postInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, "create post", err)
		return
	}
	post, err := pc.postService.CreatePost(auth.UserID(r.Context()), in.Title, in.Content)
	if err != nil {
		handleError(w, r, "create post", err)
		return
	}
	sendJSON(w, http.StatusCreated, post)
}

// Update handles editing a post
func (pc *PostController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		handleError(w, r, "update post", err)
		return
	}
	var in postInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, "update post", err)
		return
	}
	post, err := pc.postService.UpdatePost(auth.UserID(r.Context()), id, in.Title, in.Content)
	if err != nil {
		handleError(w, r, "update post", err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Delete handles deleting a post
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		handleError(w, r, "delete post", err)
		return
	}
	if err := pc.postService.DeletePost(auth.UserID(r.Context()), id); err != nil {
		handleError(w, r, "delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like records the caller's like of a post
func (pc *PostController) Like(w http.ResponseWriter, r *http.Request) {
	pc.toggleLike(w, r, true)
}

// Unlike withdraws the caller's like of a post
func (pc *PostController) Unlike(w http.ResponseWriter, r *http.Request) {
	pc.toggleLike(w, r, false)
}

func (pc *PostController) toggleLike(w http.ResponseWriter, r *http.Request, like bool) {
	op := "like post"
	if !like {
		op = "unlike post"
	}
	id, err := pathInt(r, "id")
	if err != nil {
		handleError(w, r, op, err)
		return
	}

	var res *services.LikeResult
	if like {
		res, err = pc.postService.LikePost(auth.UserID(r.Context()), id)
	} else {
		res, err = pc.postService.UnlikePost(auth.UserID(r.Context()), id)
	}
	if err != nil {
		handleError(w, r, op, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}
