package repositories

import (
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerSessionRepository implements SessionRepository using BadgerDB.
// Revocations carry a TTL so they vanish once the token would have expired.
type BadgerSessionRepository struct {
	db *badger.DB
}

// NewBadgerSessionRepository creates a new BadgerSessionRepository
func NewBadgerSessionRepository(db *badger.DB) *BadgerSessionRepository {
	return &BadgerSessionRepository{db: db}
}

// Revoke marks tokenID as signed out until the given time
func (r *BadgerSessionRepository) Revoke(tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return update(r.db, func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(RevokedKeyPrefix+tokenID), []byte(until.UTC().Format(time.RFC3339))).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// IsRevoked reports whether tokenID has been signed out
func (r *BadgerSessionRepository) IsRevoked(tokenID string) (bool, error) {
	var revoked bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(RevokedKeyPrefix + tokenID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		revoked = true
		return nil
	})
	return revoked, err
}
