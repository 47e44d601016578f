package trip

import (
	"context"
	"errors"
	"fmt"
)

// Service validates and persists trips.
type Service struct {
	store Store
}

// NewService constructs the trip service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("trip store is required")
	}
	return &Service{store: store}, nil
}

// Create records a new trip on the given account. Negative duration or
// distance is rejected before anything is persisted; a missing distance
// defaults to zero at the transport layer.
func (s *Service) Create(ctx context.Context, accountID, duration, distance int64) (Trip, error) {
	if accountID <= 0 {
		return Trip{}, fmt.Errorf("%w: account is required", ErrInvalidInput)
	}
	if duration < 0 {
		return Trip{}, fmt.Errorf("%w: duration must be >= 0", ErrInvalidInput)
	}
	if distance < 0 {
		return Trip{}, fmt.Errorf("%w: distance must be >= 0", ErrInvalidInput)
	}
	return s.store.Create(ctx, Trip{
		AccountID: accountID,
		Duration:  duration,
		Distance:  distance,
	})
}

// Get returns the trip with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Trip, error) {
	return s.store.GetByID(ctx, id)
}

// ListByAccount returns up to limit trips owned by the account, starting
// after the given trip id.
func (s *Service) ListByAccount(ctx context.Context, accountID int64, limit int, afterID int64) ([]Trip, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListByAccount(ctx, accountID, limit, afterID)
}

// Update applies the given changes to the trip.
func (s *Service) Update(ctx context.Context, id int64, upd Update) (Trip, error) {
	if upd.Duration != nil && *upd.Duration < 0 {
		return Trip{}, fmt.Errorf("%w: duration must be >= 0", ErrInvalidInput)
	}
	if upd.Distance != nil && *upd.Distance < 0 {
		return Trip{}, fmt.Errorf("%w: distance must be >= 0", ErrInvalidInput)
	}
	return s.store.Update(ctx, id, upd)
}

// Delete removes the trip.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
