// Package pg implements the store contracts on PostgreSQL through
// database/sql with the pgx stdlib driver.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"jogger.org/internal/account"
	"jogger.org/internal/delegation"
	"jogger.org/internal/scope"
	"jogger.org/internal/trip"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store wraps one connection pool and hands out per-domain views.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL using the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing database handle; used by tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Scopes returns the scope.Store view.
func (s *Store) Scopes() scope.Store { return &scopeStore{db: s.db} }

// Accounts returns the account.Store view.
func (s *Store) Accounts() account.Store { return &accountStore{db: s.db} }

// Trips returns the trip.Store view.
func (s *Store) Trips() trip.Store { return &tripStore{db: s.db} }

// Delegations returns the delegation.Store view.
func (s *Store) Delegations() delegation.Store { return &delegationStore{db: s.db} }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
