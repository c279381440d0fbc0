package repositories

import (
	"time"

	"forumhub/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// BadgerDeviceRepository implements DeviceRepository using BadgerDB
type BadgerDeviceRepository struct {
	db *badger.DB
}

// NewBadgerDeviceRepository creates a new BadgerDeviceRepository
func NewBadgerDeviceRepository(db *badger.DB) *BadgerDeviceRepository {
	return &BadgerDeviceRepository{db: db}
}

func devicePrefix(userID string) []byte {
	return []byte(DeviceKeyPrefix + userID + ":")
}

func deviceKey(userID, token string) []byte {
	return append(devicePrefix(userID), token...)
}

// Register stores a device token for its user; registering twice refreshes it
func (r *BadgerDeviceRepository) Register(device *models.Device) error {
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}
	return update(r.db, func(txn *badger.Txn) error {
		return setEntity(txn, deviceKey(device.UserID, device.Token), device)
	})
}

// ListByUser retrieves a user's device tokens
func (r *BadgerDeviceRepository) ListByUser(userID string) ([]*models.Device, error) {
	var devices []*models.Device
	err := r.db.View(func(txn *badger.Txn) error {
		return iteratePrefix(txn, devicePrefix(userID), false, func(item *badger.Item) (bool, error) {
			var d models.Device
			err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &d)
			})
			if err != nil {
				return false, errors.Wrap(err, "failed to unmarshal device")
			}
			devices = append(devices, &d)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// Delete removes a user's device token
func (r *BadgerDeviceRepository) Delete(userID, token string) error {
	return update(r.db, func(txn *badger.Txn) error {
		key := deviceKey(userID, token)
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
