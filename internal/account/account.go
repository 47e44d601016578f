package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("account: not found")
	ErrConflict           = errors.New("account: already exists")
	ErrInvalidInput       = errors.New("account: invalid input")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
)

// Account is a registered user of the tracker.
type Account struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	ResetCodeHash *string   `json:"-"`
	Superuser     bool      `json:"superuser,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Update carries profile fields to change, hashed where applicable.
// Nil fields are left untouched.
type Update struct {
	Email        *string
	Username     *string
	PasswordHash *string
}

// Store describes persistence operations required by the account subsystem.
type Store interface {
	Create(ctx context.Context, acc Account) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	Update(ctx context.Context, id int64, upd Update) (Account, error)
	// SetResetCode stores the hashed reset code; nil clears it.
	SetResetCode(ctx context.Context, id int64, hash *string) error
	// Delete removes the account, its trips, and its user-side delegation
	// records; owner-side records get their owner nulled.
	Delete(ctx context.Context, id int64) error
}
