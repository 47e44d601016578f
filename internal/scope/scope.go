package scope

import (
	"context"
	"errors"
)

// ErrNotFound indicates the scope does not exist.
var ErrNotFound = errors.New("scope: not found")

// Scope is a named permission unit. Includes lists the ids of scopes this
// scope directly implies; the full implied set is resolved by Graph.Flatten.
type Scope struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Includes []int64 `json:"includes,omitempty"`
}

// Store describes persistence operations required by the scope subsystem.
// Scopes are provisioned once from the builtin catalog and read-only after.
type Store interface {
	GetByID(ctx context.Context, id int64) (Scope, error)
	GetByCode(ctx context.Context, code string) (Scope, error)
	List(ctx context.Context) ([]Scope, error)
}
