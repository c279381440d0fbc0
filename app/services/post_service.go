package services

import (
	"time"

	"forumhub/app/events"
	"forumhub/app/models"
	"forumhub/app/repositories"

	"github.com/pkg/errors"
)

// LikeResult reports a target's like count after a like or unlike
type LikeResult struct {
	Likes   int  `json:"likes"`
	Liked   bool `json:"liked"`
	Changed bool `json:"changed"`
}

// PostService handles business logic for forum posts
type PostService struct {
	posts   repositories.PostRepository
	replies repositories.ReplyRepository
	likes   repositories.LikeRepository
	users   repositories.UserRepository
	hub     events.Publisher
}

// NewPostService creates a new PostService
func NewPostService(store *repositories.Store, hub events.Publisher) *PostService {
	return &PostService{
		posts:   store.Posts,
		replies: store.Replies,
		likes:   store.Likes,
		users:   store.Users,
		hub:     hub,
	}
}

// CreatePost validates and stores a new post. An invalid post never
// reaches the repository.
func (s *PostService) CreatePost(authorID, title, content string) (*models.Post, error) {
	post := &models.Post{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	}
	post.BeforeCreate()
	if err := post.Validate(); err != nil {
		return nil, validationError(err)
	}

	author, err := s.users.GetByID(authorID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errors.Wrap(ErrUnauthorized, "unknown author")
		}
		return nil, err
	}
	post.AuthorName = author.DisplayName

	if err := s.posts.Create(post); err != nil {
		return nil, errors.Wrap(err, "failed to store post")
	}

	s.publish(events.PostCreated, post.ID, authorID, post)
	return post, nil
}

// GetPost retrieves a post together with its reply tree
func (s *PostService) GetPost(id int) (*models.Post, error) {
	post, err := s.posts.GetByID(id)
	if err != nil {
		return nil, notFound(err, "post")
	}

	flat, err := s.replies.ListByPost(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get replies")
	}
	post.SetReplies(models.BuildReplyTree(flat))
	return post, nil
}

// ListPosts retrieves a page of posts, newest first. A non-empty query
// restricts the list to posts whose title or content contains it.
func (s *PostService) ListPosts(page, perPage int, query string) ([]*models.Post, error) {
	limit, offset := pagination(page, perPage)

	var posts []*models.Post
	var err error
	if query != "" {
		posts, err = s.posts.Search(query, limit, offset)
	} else {
		posts, err = s.posts.List(limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return s.withReplyCounts(posts)
}

// ListUserPosts retrieves a page of one author's posts, newest first
func (s *PostService) ListUserPosts(authorID string, page, perPage int) ([]*models.Post, error) {
	if _, err := s.users.GetByID(authorID); err != nil {
		return nil, notFound(err, "user")
	}
	limit, offset := pagination(page, perPage)
	posts, err := s.posts.ListByAuthor(authorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.withReplyCounts(posts)
}

func (s *PostService) withReplyCounts(posts []*models.Post) ([]*models.Post, error) {
	if posts == nil {
		posts = []*models.Post{}
	}
	for _, post := range posts {
		n, err := s.replies.CountByPost(post.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to count replies for post %d", post.ID)
		}
		post.ReplyCount = n
	}
	return posts, nil
}

// UpdatePost changes a post's title and content. Only the author may do so.
func (s *PostService) UpdatePost(userID string, id int, title, content string) (*models.Post, error) {
	existing, err := s.posts.GetByID(id)
	if err != nil {
		return nil, notFound(err, "post")
	}
	if !existing.IsAuthor(userID) {
		return nil, errors.Wrap(ErrForbidden, "only the author can edit this post")
	}

	post := *existing
	post.Title = title
	post.Content = content
	createdAt := post.CreatedAt
	post.BeforeCreate()
	post.CreatedAt = createdAt
	post.UpdatedAt = time.Now().UTC()
	if err := post.Validate(); err != nil {
		return nil, validationError(err)
	}

	if err := s.posts.Update(&post); err != nil {
		return nil, notFound(err, "post")
	}
	if post.ReplyCount, err = s.replies.CountByPost(id); err != nil {
		return nil, errors.Wrapf(err, "failed to count replies for post %d", id)
	}

	s.publish(events.PostUpdated, post.ID, userID, &post)
	return &post, nil
}

// DeletePost deletes a post with all of its replies and likes. Only the
// author may do so.
func (s *PostService) DeletePost(userID string, id int) error {
	post, err := s.posts.GetByID(id)
	if err != nil {
		return notFound(err, "post")
	}
	if !post.IsAuthor(userID) {
		return errors.Wrap(ErrForbidden, "only the author can delete this post")
	}

	replies, err := s.replies.ListByPost(id)
	if err != nil {
		return errors.Wrap(err, "failed to get replies")
	}
	ids := make([]int, 0, len(replies))
	for _, r := range replies {
		ids = append(ids, r.ID)
	}

	if err := s.likes.DeleteByTarget(models.TargetReply, ids...); err != nil {
		return errors.Wrap(err, "failed to delete reply likes")
	}
	if err := s.replies.DeleteByPost(id); err != nil {
		return errors.Wrap(err, "failed to delete replies")
	}
	if err := s.likes.DeleteByTarget(models.TargetPost, id); err != nil {
		return errors.Wrap(err, "failed to delete likes")
	}
	if err := s.posts.Delete(id); err != nil {
		return notFound(err, "post")
	}

	s.publish(events.PostDeleted, id, userID, nil)
	return nil
}

// LikePost records userID's like of a post; liking twice counts once
func (s *PostService) LikePost(userID string, id int) (*LikeResult, error) {
	return s.toggleLike(userID, id, true)
}

// UnlikePost withdraws userID's like of a post
func (s *PostService) UnlikePost(userID string, id int) (*LikeResult, error) {
	return s.toggleLike(userID, id, false)
}

func (s *PostService) toggleLike(userID string, id int, like bool) (*LikeResult, error) {
	var count int
	var changed bool
	var err error
	if like {
		count, changed, err = s.likes.Like(models.TargetPost, id, id, userID)
	} else {
		count, changed, err = s.likes.Unlike(models.TargetPost, id, id, userID)
	}
	if err != nil {
		return nil, notFound(err, "post")
	}

	if changed {
		s.hub.Publish(events.Event{
			Type:    events.PostLiked,
			Topic:   events.TopicPosts,
			PostID:  id,
			ActorID: userID,
			Payload: map[string]int{"likes": count},
		})
	}
	return &LikeResult{Likes: count, Liked: like, Changed: changed}, nil
}

func (s *PostService) publish(eventType string, postID int, actorID string, payload interface{}) {
	s.hub.Publish(events.Event{
		Type:    eventType,
		Topic:   events.TopicPosts,
		PostID:  postID,
		ActorID: actorID,
		Payload: payload,
	})
}
