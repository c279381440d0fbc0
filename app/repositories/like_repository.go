package repositories

import (
	"time"

	"forumhub/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// BadgerLikeRepository implements LikeRepository using BadgerDB. The like
// record and the target's counter change in one transaction.
type BadgerLikeRepository struct {
	db *badger.DB
}

// NewBadgerLikeRepository creates a new BadgerLikeRepository
func NewBadgerLikeRepository(db *badger.DB) *BadgerLikeRepository {
	return &BadgerLikeRepository{db: db}
}

// Like records userID's like of the target
func (r *BadgerLikeRepository) Like(kind models.TargetKind, postID, targetID int, userID string) (int, bool, error) {
	return r.toggle(kind, postID, targetID, userID, true)
}

// Unlike removes userID's like of the target
func (r *BadgerLikeRepository) Unlike(kind models.TargetKind, postID, targetID int, userID string) (int, bool, error) {
	return r.toggle(kind, postID, targetID, userID, false)
}

func (r *BadgerLikeRepository) toggle(kind models.TargetKind, postID, targetID int, userID string, like bool) (int, bool, error) {
	var count int
	var changed bool
	err := update(r.db, func(txn *badger.Txn) error {
		changed = false
		target, err := loadTarget(txn, kind, postID, targetID)
		if err != nil {
			return err
		}

		key := likeKey(kind, targetID, userID)
		_, err = txn.Get(key)
		exists := err == nil
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}

		count = target.likes()
		switch {
		case like && !exists:
			rec := models.Like{Kind: kind, TargetID: targetID, PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()}
			if err := setEntity(txn, key, &rec); err != nil {
				return err
			}
			count++
		case !like && exists:
			if err := txn.Delete(key); err != nil {
				return err
			}
			if count > 0 {
				count--
			}
		default:
			return nil
		}

		changed = true
		target.setLikes(count)
		return target.save(txn)
	})
	if err != nil {
		return 0, false, err
	}
	return count, changed, nil
}

// HasLiked reports whether userID likes the target
func (r *BadgerLikeRepository) HasLiked(kind models.TargetKind, targetID int, userID string) (bool, error) {
	var liked bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(likeKey(kind, targetID, userID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		liked = true
		return nil
	})
	return liked, err
}

// DeleteByTarget removes every like of the given targets
func (r *BadgerLikeRepository) DeleteByTarget(kind models.TargetKind, targetIDs ...int) error {
	var keys [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range targetIDs {
			err := iteratePrefix(txn, likePrefix(kind, id), false, func(item *badger.Item) (bool, error) {
				keys = append(keys, item.KeyCopy(nil))
				return true, nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return deleteKeys(r.db, keys)
}

// likeTarget is the post or reply whose counter a like changes
type likeTarget struct {
	key   []byte
	post  *models.Post
	reply *models.Reply
}

func loadTarget(txn *badger.Txn, kind models.TargetKind, postID, targetID int) (*likeTarget, error) {
	switch kind {
	case models.TargetPost:
		t := &likeTarget{key: postKey(targetID), post: &models.Post{}}
		return t, getEntity(txn, t.key, t.post)
	case models.TargetReply:
		t := &likeTarget{key: replyKey(postID, targetID), reply: &models.Reply{}}
		return t, getEntity(txn, t.key, t.reply)
	default:
		return nil, errors.Errorf("unknown like target %q", kind)
	}
}

func (t *likeTarget) likes() int {
	if t.post != nil {
		return t.post.LikeCount
	}
	return t.reply.LikeCount
}

func (t *likeTarget) setLikes(n int) {
	if t.post != nil {
		t.post.LikeCount = n
		return
	}
	t.reply.LikeCount = n
}

func (t *likeTarget) save(txn *badger.Txn) error {
	if t.post != nil {
		return setEntity(txn, t.key, t.post)
	}
	return setEntity(txn, t.key, t.reply)
}
