package repositories

import (
	"embed"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore owns a Postgres connection pool.
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgres connects to databaseURL and applies pending migrations.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres driver requires a database URL")
	}
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	log.Println("[store] connected to postgres")

	s := &PostgresStore{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing connection without migrating.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// MigrateUp applies every embedded migration not yet applied.
func (s *PostgresStore) MigrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "error loading migrations")
	}
	driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
	if err != nil {
		return errors.Wrap(err, "error creating postgres driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "error creating migration instance")
	}

	err = m.Up()
	if err == migrate.ErrNoChange {
		log.Println("[store] migrations already up to date")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "error running migrations")
	}
	log.Println("[store] migrations applied")
	return nil
}

// Store returns the repository set backed by this connection.
func (s *PostgresStore) Store() *Store {
	return &Store{
		Users:    &PgUserRepository{db: s.db},
		Posts:    &PgPostRepository{db: s.db},
		Replies:  &PgReplyRepository{db: s.db},
		Likes:    &PgLikeRepository{db: s.db},
		Sessions: &PgSessionRepository{db: s.db},
		Devices:  &PgDeviceRepository{db: s.db},
		closer:   s.db.Close,
	}
}

// limitArg maps a non-positive limit to "no limit" for LIMIT $n
func limitArg(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}
