package repositories

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"

	"forumhub/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

const (
	// Key prefixes for different entity types
	UserKeyPrefix      = "user:"
	UserEmailKeyPrefix = "user_email:"
	PostKeyPrefix      = "post:"
	ReplyKeyPrefix     = "reply:"
	LikeKeyPrefix      = "like:"
	RevokedKeyPrefix   = "revoked:"
	DeviceKeyPrefix    = "device:"

	// Sequence keys for auto-incrementing IDs
	PostSeqKey  = "seq:post"
	ReplySeqKey = "seq:reply"

	maxTxnRetries = 5
)

func postKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%010d", PostKeyPrefix, id))
}

func replyPrefix(postID int) []byte {
	return []byte(fmt.Sprintf("%s%010d:", ReplyKeyPrefix, postID))
}

func replyKey(postID, id int) []byte {
	return []byte(fmt.Sprintf("%s%010d:%010d", ReplyKeyPrefix, postID, id))
}

func likePrefix(kind models.TargetKind, targetID int) []byte {
	return []byte(fmt.Sprintf("%s%s:%010d:", LikeKeyPrefix, kind, targetID))
}

func likeKey(kind models.TargetKind, targetID int, userID string) []byte {
	return append(likePrefix(kind, targetID), userID...)
}

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (int, error) {
	var id int
	item, err := txn.Get([]byte(seqKey))
	if err == badger.ErrKeyNotFound {
		id = 1
	} else if err != nil {
		return 0, errors.Wrap(err, "failed to get sequence")
	} else {
		err = item.Value(func(val []byte) error {
			if len(val) != 4 {
				return errors.Errorf("corrupt sequence %q", seqKey)
			}
			id = int(binary.BigEndian.Uint32(val))
			return nil
		})
		if err != nil {
			return 0, err
		}
		id++
	}

	idBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(idBytes, uint32(id))
	if err := txn.Set([]byte(seqKey), idBytes); err != nil {
		return 0, errors.Wrap(err, "failed to update sequence")
	}

	return id, nil
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal entity")
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return errors.Wrap(err, "failed to unmarshal entity")
	}
	return nil
}

// getEntity loads the value at key into entity, mapping a missing key to ErrNotFound
func getEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

// setEntity marshals entity and stores it at key
func setEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	data, err := marshalEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// iteratePrefix calls fn for every item under prefix. With reverse set the
// items are visited from the highest key down.
func iteratePrefix(txn *badger.Txn, prefix []byte, reverse bool, fn func(item *badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = reverse
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := prefix
	if reverse {
		seek = append(append([]byte{}, prefix...), 0xFF)
	}
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		more, err := fn(it.Item())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}

// countPrefix counts keys under prefix without reading values
func countPrefix(txn *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n
}

// update runs fn in a read-write transaction, retrying when badger reports
// a conflict with a concurrent transaction.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err = db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
		log.Printf("[store] transaction conflict, retrying (attempt %d)", attempt+1)
	}
	return err
}

// page applies limit/offset to a stream of matches; limit <= 0 means no limit.
type page struct {
	limit, offset, seen int
}

// take reports whether the current match is inside the window and whether
// iteration should continue.
func (p *page) take() (include, more bool) {
	idx := p.seen
	p.seen++
	if idx < p.offset {
		return false, true
	}
	if p.limit > 0 && idx >= p.offset+p.limit {
		return false, false
	}
	return true, true
}
