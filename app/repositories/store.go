package repositories

import (
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Store bundles the repositories backing the forum.
type Store struct {
	Users    UserRepository
	Posts    PostRepository
	Replies  ReplyRepository
	Likes    LikeRepository
	Sessions SessionRepository
	Devices  DeviceRepository

	closer func() error
}

// Options selects and configures the storage backend.
type Options struct {
	Driver      string
	BadgerPath  string
	DatabaseURL string
}

// OpenStore opens the configured backend and returns its repositories.
func OpenStore(opts Options) (*Store, error) {
	switch opts.Driver {
	case "", DriverBadger:
		bs, err := OpenBadger(opts.BadgerPath)
		if err != nil {
			return nil, err
		}
		return bs.Store(), nil
	case DriverPostgres:
		ps, err := OpenPostgres(opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return ps.Store(), nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// BadgerStore owns a Badger database. An empty path opens a throwaway
// database in a temporary directory that is removed on Close.
type BadgerStore struct {
	db       *badger.DB
	dbPath   string
	isTestDB bool
}

// OpenBadger opens (or creates) the Badger database at path.
func OpenBadger(path string) (*BadgerStore, error) {
	isTest := false
	if path == "" {
		tempPath, err := os.MkdirTemp("", "forumhub_test_db_")
		if err != nil {
			return nil, errors.Wrap(err, "error creating temp dir")
		}
		path = tempPath
		isTest = true
	}
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if isTest {
		opts = opts.WithSyncWrites(false).WithNumGoroutines(1)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open badger at %s", path)
	}
	log.Printf("[store] badger opened at %s", path)
	return &BadgerStore{
		db:       db,
		dbPath:   path,
		isTestDB: isTest,
	}, nil
}

// NewBadgerStore wraps an already open database, e.g. an in-memory one.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// DB exposes the underlying database for maintenance commands.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

// Store returns the repository set backed by this database.
func (s *BadgerStore) Store() *Store {
	return &Store{
		Users:    NewBadgerUserRepository(s.db),
		Posts:    NewBadgerPostRepository(s.db),
		Replies:  NewBadgerReplyRepository(s.db),
		Likes:    NewBadgerLikeRepository(s.db),
		Sessions: NewBadgerSessionRepository(s.db),
		Devices:  NewBadgerDeviceRepository(s.db),
		closer:   s.Close,
	}
}

// Close closes the database and removes it when it was a temporary one.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return err
	}

	if s.isTestDB {
		if err := os.RemoveAll(s.dbPath); err != nil {
			return errors.Wrap(err, "failed to cleanup test database")
		}
	}
	return nil
}

// Clear drops every key.
func (s *BadgerStore) Clear() error {
	return s.db.DropAll()
}
