package repositories

import (
	"forumhub/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// BadgerUserRepository implements UserRepository using BadgerDB. A secondary
// key maps each normalized email to its user ID.
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

func userKey(id string) []byte {
	return []byte(UserKeyPrefix + id)
}

func userEmailKey(email string) []byte {
	return []byte(UserEmailKeyPrefix + models.NormalizeEmail(email))
}

// Create stores a new user, assigning an ID when none is set
func (r *BadgerUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return update(r.db, func(txn *badger.Txn) error {
		emailKey := userEmailKey(user.Email)
		_, err := txn.Get(emailKey)
		if err == nil {
			return ErrDuplicate
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		if _, err := txn.Get(userKey(user.ID)); err == nil {
			return ErrDuplicate
		}

		if err := txn.Set(emailKey, []byte(user.ID)); err != nil {
			return err
		}
		return setEntity(txn, userKey(user.ID), user)
	})
}

// GetByID retrieves a user by ID
func (r *BadgerUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, ignoring case
func (r *BadgerUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getEntity(txn, userKey(string(id)), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update replaces a user's record. The email cannot change.
func (r *BadgerUserRepository) Update(user *models.User) error {
	return update(r.db, func(txn *badger.Txn) error {
		var existing models.User
		if err := getEntity(txn, userKey(user.ID), &existing); err != nil {
			return err
		}
		if models.NormalizeEmail(user.Email) != existing.Email {
			return errors.New("email cannot be changed")
		}
		user.Email = existing.Email
		return setEntity(txn, userKey(user.ID), user)
	})
}

// List retrieves a page of users in key order
func (r *BadgerUserRepository) List(limit, offset int) ([]*models.User, error) {
	var users []*models.User
	pg := &page{limit: limit, offset: offset}
	err := r.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, []byte(UserKeyPrefix), false, func(item *badger.Item) (bool, error) {
			include, more := pg.take()
			if !include {
				return more, nil
			}
			var user models.User
			err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &user)
			})
			if err != nil {
				return false, errors.Wrap(err, "failed to unmarshal user")
			}
			users = append(users, &user)
			return more, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
