package controllers

import (
	"net/http"

	"forumhub/app/auth"
	"forumhub/app/services"
)

// ReplyController handles HTTP requests for replies
type ReplyController struct {
	replyService *services.ReplyService
}

// NewReplyController creates a new ReplyController
func NewReplyController(replyService *services.ReplyService) *ReplyController {
	return &ReplyController{replyService: replyService}
}

// Index returns a post's reply tree
func (rc *ReplyController) Index(w http.ResponseWriter, r *http.Request) {
	postID, err := pathInt(r, "postId")
	if err != nil {
		handleError(w, r, "fetch replies", err)
		return
	}
	replies, err := rc.replyService.ListReplies(postID)
	if err != nil {
		handleError(w, r, "fetch replies", err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"postId":  postID,
		"replies": replies,
	})
}

// Create adds a top-level reply to a post
func (rc *ReplyController) Create(w http.ResponseWriter, r *http.Request) {
	rc.create(w, r, false)
}

// CreateNested adds a reply to another reply
func (rc *ReplyController) CreateNested(w http.ResponseWriter, r *http.Request) {
	rc.create(w, r, true)
}

func (rc *ReplyController) create(w http.ResponseWriter, r *http.Request, nested bool) {
	postID, err := pathInt(r, "postId")
	if err != nil {
		handleError(w, r, "create reply", err)
		return
	}
	parentID := 0
	if nested {
		if parentID, err = pathInt(r, "id"); err != nil {
			handleError(w, r, "create reply", err)
			return
		}
	}

	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, "create reply", err)
		return
	}

	reply, err := rc.replyService.CreateReply(r.Context(), postID, parentID, auth.UserID(r.Context()), in.Content)
	if err != nil {
		handleError(w, r, "create reply", err)
		return
	}
	sendJSON(w, http.StatusCreated, reply)
}

// Delete removes a reply and its subtree
func (rc *ReplyController) Delete(w http.ResponseWriter, r *http.Request) {
	postID, id, err := replyPath(r)
	if err != nil {
		handleError(w, r, "delete reply", err)
		return
	}
	if err := rc.replyService.DeleteReply(auth.UserID(r.Context()), postID, id); err != nil {
		handleError(w, r, "delete reply", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like records the caller's like of a reply
func (rc *ReplyController) Like(w http.ResponseWriter, r *http.Request) {
	rc.toggleLike(w, r, true)
}

// Unlike withdraws the caller's like of a reply
func (rc *ReplyController) Unlike(w http.ResponseWriter, r *http.Request) {
	rc.toggleLike(w, r, false)
}

func (rc *ReplyController) toggleLike(w http.ResponseWriter, r *http.Request, like bool) {
	op := "like reply"
	if !like {
		op = "unlike reply"
	}
	postID, id, err := replyPath(r)
	if err != nil {
		handleError(w, r, op, err)
		return
	}

	var res *services.LikeResult
	if like {
		res, err = rc.replyService.LikeReply(auth.UserID(r.Context()), postID, id)
	} else {
		res, err = rc.replyService.UnlikeReply(auth.UserID(r.Context()), postID, id)
	}
	if err != nil {
		handleError(w, r, op, err)
		return
	}
	sendJSON(w, http.StatusOK, res)
}

func replyPath(r *http.Request) (postID, id int, err error) {
	if postID, err = pathInt(r, "postId"); err != nil {
		return 0, 0, err
	}
	if id, err = pathInt(r, "id"); err != nil {
		return 0, 0, err
	}
	return postID, id, nil
}
