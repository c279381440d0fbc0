package repositories

import (
	"forumhub/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// BadgerReplyRepository implements ReplyRepository using BadgerDB.
// Replies are keyed under their post so a post's replies share a prefix.
type BadgerReplyRepository struct {
	db *badger.DB
}

// NewBadgerReplyRepository creates a new BadgerReplyRepository
func NewBadgerReplyRepository(db *badger.DB) *BadgerReplyRepository {
	return &BadgerReplyRepository{db: db}
}

// Create creates a new reply
func (r *BadgerReplyRepository) Create(reply *models.Reply) error {
	return update(r.db, func(txn *badger.Txn) error {
		id, err := getNextID(txn, ReplySeqKey)
		if err != nil {
			return err
		}
		reply.ID = id

		c := *reply
		c.Replies = nil
		return setEntity(txn, replyKey(reply.PostID, reply.ID), &c)
	})
}

// GetByID retrieves a reply of a post
func (r *BadgerReplyRepository) GetByID(postID, id int) (*models.Reply, error) {
	var reply models.Reply
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, replyKey(postID, id), &reply)
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListByPost retrieves every reply of a post as a flat list, oldest first
func (r *BadgerReplyRepository) ListByPost(postID int) ([]*models.Reply, error) {
	var replies []*models.Reply
	err := r.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, replyPrefix(postID), false, func(item *badger.Item) (bool, error) {
			var reply models.Reply
			err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &reply)
			})
			if err != nil {
				return false, errors.Wrap(err, "failed to unmarshal reply")
			}
			replies = append(replies, &reply)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// CountByPost counts a post's replies
func (r *BadgerReplyRepository) CountByPost(postID int) (int, error) {
	var n int
	err := r.db.View(func(txn *badger.Txn) error {
		n = countPrefix(txn, replyPrefix(postID))
		return nil
	})
	return n, err
}

// Delete deletes replies of a post by ID
func (r *BadgerReplyRepository) Delete(postID int, ids ...int) error {
	return update(r.db, func(txn *badger.Txn) error {
		for _, id := range ids {
			key := replyKey(postID, id)
			_, err := txn.Get(key)
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteByPost deletes every reply of a post
func (r *BadgerReplyRepository) DeleteByPost(postID int) error {
	var keys [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, replyPrefix(postID), false, func(item *badger.Item) (bool, error) {
			keys = append(keys, item.KeyCopy(nil))
			return true, nil
		})
	})
	if err != nil {
		return err
	}
	return deleteKeys(r.db, keys)
}

// deleteKeys removes keys in batches so large deletes stay under badger's
// transaction size limit
func deleteKeys(db *badger.DB, keys [][]byte) error {
	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}
