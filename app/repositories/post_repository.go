package repositories

import (
	"strings"

	"forumhub/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Create creates a new post
func (r *BadgerPostRepository) Create(post *models.Post) error {
	return update(r.db, func(txn *badger.Txn) error {
		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id

		return setEntity(txn, postKey(post.ID), stripPost(post))
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(id int) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List retrieves a page of posts, newest first
func (r *BadgerPostRepository) List(limit, offset int) ([]*models.Post, error) {
	return r.scan(limit, offset, func(*models.Post) bool { return true })
}

// ListByAuthor retrieves a page of one author's posts, newest first
func (r *BadgerPostRepository) ListByAuthor(authorID string, limit, offset int) ([]*models.Post, error) {
	return r.scan(limit, offset, func(p *models.Post) bool {
		return p.AuthorID == authorID
	})
}

// Search retrieves posts whose title or content contains query, ignoring case
func (r *BadgerPostRepository) Search(query string, limit, offset int) ([]*models.Post, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return r.scan(limit, offset, func(p *models.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Content), q)
	})
}

func (r *BadgerPostRepository) scan(limit, offset int, match func(*models.Post) bool) ([]*models.Post, error) {
	var posts []*models.Post
	pg := &page{limit: limit, offset: offset}
	err := r.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, []byte(PostKeyPrefix), true, func(item *badger.Item) (bool, error) {
			var post models.Post
			err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return false, errors.Wrap(err, "failed to unmarshal post")
			}
			if !match(&post) {
				return true, nil
			}
			include, more := pg.take()
			if include {
				posts = append(posts, &post)
			}
			return more, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Update updates an existing post
func (r *BadgerPostRepository) Update(post *models.Post) error {
	return update(r.db, func(txn *badger.Txn) error {
		key := postKey(post.ID)

		// Verify post exists; the like count is owned by the like repository
		var existing models.Post
		if err := getEntity(txn, key, &existing); err != nil {
			return err
		}
		post.LikeCount = existing.LikeCount

		return setEntity(txn, key, stripPost(post))
	})
}

// Delete deletes a post by ID
func (r *BadgerPostRepository) Delete(id int) error {
	return update(r.db, func(txn *badger.Txn) error {
		key := postKey(id)

		// Verify post exists
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

// stripPost drops the response-only reply tree before persisting
func stripPost(post *models.Post) *models.Post {
	c := *post
	c.Replies = nil
	c.ReplyCount = 0
	return &c
}
