package services

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"forumhub/app/events"
	"forumhub/app/models"
	"forumhub/app/notify"
	"forumhub/app/repositories"

	"github.com/pkg/errors"
)

const notifyTimeout = 10 * time.Second

// ReplyService handles business logic for replies and reply threads
type ReplyService struct {
	posts    repositories.PostRepository
	replies  repositories.ReplyRepository
	likes    repositories.LikeRepository
	users    repositories.UserRepository
	hub      events.Publisher
	notifier notify.Notifier
	wg       sync.WaitGroup
}

// NewReplyService creates a new ReplyService. notifier may be nil.
func NewReplyService(store *repositories.Store, hub events.Publisher, notifier notify.Notifier) *ReplyService {
	return &ReplyService{
		posts:    store.Posts,
		replies:  store.Replies,
		likes:    store.Likes,
		users:    store.Users,
		hub:      hub,
		notifier: notifier,
	}
}

// CreateReply adds a reply to a post, or to another reply of that post when
// parentID is non-zero
func (s *ReplyService) CreateReply(ctx context.Context, postID, parentID int, authorID, content string) (*models.Reply, error) {
	reply := &models.Reply{
		PostID:   postID,
		ParentID: parentID,
		Content:  content,
		AuthorID: authorID,
	}
	reply.BeforeCreate()
	if err := reply.Validate(); err != nil {
		return nil, validationError(err)
	}

	post, err := s.posts.GetByID(postID)
	if err != nil {
		return nil, notFound(err, "post")
	}

	var parent *models.Reply
	if parentID != 0 {
		parent, err = s.replies.GetByID(postID, parentID)
		if err != nil {
			return nil, notFound(err, "parent reply")
		}
		if err := reply.SetParent(parent); err != nil {
			return nil, invalid("%v", err)
		}
	}

	author, err := s.users.GetByID(authorID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errors.Wrap(ErrUnauthorized, "unknown author")
		}
		return nil, err
	}
	reply.AuthorName = author.DisplayName

	if err := s.replies.Create(reply); err != nil {
		return nil, errors.Wrap(err, "failed to store reply")
	}

	s.publish(events.ReplyCreated, reply.PostID, reply.ID, authorID, reply)
	s.notifyReply(ctx, post, parent, reply)
	return reply, nil
}

// ListReplies returns a post's replies as a tree, newest first at every level
func (s *ReplyService) ListReplies(postID int) ([]*models.Reply, error) {
	if _, err := s.posts.GetByID(postID); err != nil {
		return nil, notFound(err, "post")
	}
	flat, err := s.replies.ListByPost(postID)
	if err != nil {
		return nil, err
	}
	tree := models.BuildReplyTree(flat)
	if tree == nil {
		tree = []*models.Reply{}
	}
	return tree, nil
}

// DeleteReply removes a reply and everything below it. The reply's author
// and the post's author may do so.
func (s *ReplyService) DeleteReply(userID string, postID, id int) error {
	post, err := s.posts.GetByID(postID)
	if err != nil {
		return notFound(err, "post")
	}
	reply, err := s.replies.GetByID(postID, id)
	if err != nil {
		return notFound(err, "reply")
	}
	if !reply.IsAuthor(userID) && !post.IsAuthor(userID) {
		return errors.Wrap(ErrForbidden, "only the reply or post author can delete this reply")
	}

	flat, err := s.replies.ListByPost(postID)
	if err != nil {
		return errors.Wrap(err, "failed to get replies")
	}
	ids := []int{id}
	if node := models.FindReply(models.BuildReplyTree(flat), id); node != nil {
		ids = models.SubtreeIDs(node)
	}

	if err := s.likes.DeleteByTarget(models.TargetReply, ids...); err != nil {
		return errors.Wrap(err, "failed to delete reply likes")
	}
	if err := s.replies.Delete(postID, ids...); err != nil {
		return notFound(err, "reply")
	}

	s.publish(events.ReplyDeleted, postID, id, userID, map[string][]int{"deleted": ids})
	return nil
}

// LikeReply records userID's like of a reply; liking twice counts once
func (s *ReplyService) LikeReply(userID string, postID, id int) (*LikeResult, error) {
	return s.toggleLike(userID, postID, id, true)
}

// UnlikeReply withdraws userID's like of a reply
func (s *ReplyService) UnlikeReply(userID string, postID, id int) (*LikeResult, error) {
	return s.toggleLike(userID, postID, id, false)
}

func (s *ReplyService) toggleLike(userID string, postID, id int, like bool) (*LikeResult, error) {
	var count int
	var changed bool
	var err error
	if like {
		count, changed, err = s.likes.Like(models.TargetReply, postID, id, userID)
	} else {
		count, changed, err = s.likes.Unlike(models.TargetReply, postID, id, userID)
	}
	if err != nil {
		return nil, notFound(err, "reply")
	}

	if changed {
		s.publish(events.ReplyLiked, postID, id, userID, map[string]int{"likes": count})
	}
	return &LikeResult{Likes: count, Liked: like, Changed: changed}, nil
}

// Wait blocks until pending notifications have been sent
func (s *ReplyService) Wait() {
	s.wg.Wait()
}

func (s *ReplyService) publish(eventType string, postID, replyID int, actorID string, payload interface{}) {
	s.hub.Publish(events.Event{
		Type:    eventType,
		Topic:   events.PostTopic(postID),
		PostID:  postID,
		ReplyID: replyID,
		ActorID: actorID,
		Payload: payload,
	})
}

// notifyReply tells the author of the replied-to post or reply, unless they
// wrote the reply themselves or turned notifications off
func (s *ReplyService) notifyReply(ctx context.Context, post *models.Post, parent *models.Reply, reply *models.Reply) {
	if s.notifier == nil {
		return
	}

	recipientID := post.AuthorID
	title := "New reply to your post"
	if parent != nil {
		recipientID = parent.AuthorID
		title = "New reply to your comment"
	}
	if recipientID == reply.AuthorID {
		return
	}

	recipient, err := s.users.GetByID(recipientID)
	if err != nil {
		log.Printf("[notify] recipient %s not found: %v", recipientID, err)
		return
	}
	if !recipient.Settings.NotificationsEnabled {
		return
	}

	n := notify.Notification{
		UserID: recipientID,
		Title:  title,
		Body:   reply.AuthorName + ": " + excerpt(reply.Content, 100),
		Data: map[string]string{
			"postId":  strconv.Itoa(reply.PostID),
			"replyId": strconv.Itoa(reply.ID),
		},
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			log.Printf("[notify] failed to notify %s: %v", recipientID, err)
		}
	}()
}

func excerpt(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
