package trip

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("trip: not found")
	ErrInvalidInput = errors.New("trip: invalid input")
)

// Trip is a single exercise session. Duration is in seconds, Distance in
// meters; both are always >= 0.
type Trip struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Duration  int64     `json:"duration"`
	Distance  int64     `json:"distance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update carries trip fields to change. Nil fields are left untouched.
type Update struct {
	Duration *int64
	Distance *int64
}

// Store describes persistence operations required by the trip subsystem.
type Store interface {
	Create(ctx context.Context, t Trip) (Trip, error)
	GetByID(ctx context.Context, id int64) (Trip, error)
	ListByAccount(ctx context.Context, accountID int64, limit int, afterID int64) ([]Trip, error)
	Update(ctx context.Context, id int64, upd Update) (Trip, error)
	Delete(ctx context.Context, id int64) error
}
