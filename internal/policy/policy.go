package policy

import (
	"context"
	"errors"
	"net/http"
)

// ErrForbidden indicates the caller may not perform the requested action on
// the target. The HTTP layer surfaces it as 404 so denials do not confirm
// that another user's resource exists.
var ErrForbidden = errors.New("policy: forbidden")

// Principal is the authenticated caller identity.
type Principal struct {
	AccountID int64
	Superuser bool
}

// ManagerDirectory resolves the set of accounts holding an active manage
// grant over a given account.
type ManagerDirectory interface {
	ManagersOf(ctx context.Context, accountID int64) (map[int64]struct{}, error)
}

// Target is the object an access decision is made about. Dispatch is an
// explicit allow-list per variant; unknown variants deny.
type Target interface {
	isTarget()
}

// AccountTarget guards access to an account resource.
type AccountTarget struct {
	ID int64
}

// TripTarget guards access to a trip resource. AccountID is the owning
// account of the trip.
type TripTarget struct {
	ID        int64
	AccountID int64
}

func (AccountTarget) isTarget() {}
func (TripTarget) isTarget()    {}

// Policy decides object-level access for authenticated principals.
type Policy struct {
	managers ManagerDirectory
}

// New constructs a Policy backed by the given manager directory.
func New(managers ManagerDirectory) (*Policy, error) {
	if managers == nil {
		return nil, errors.New("policy: manager directory is required")
	}
	return &Policy{managers: managers}, nil
}

// ReadOnly reports whether the HTTP method cannot mutate the target.
func ReadOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Decide returns nil when principal may perform method on target and
// ErrForbidden otherwise. Superusers are always allowed. Managers get
// read-only access to managed accounts and full access to managed trips.
func (p *Policy) Decide(ctx context.Context, principal Principal, method string, target Target) error {
	if principal.Superuser {
		return nil
	}
	switch t := target.(type) {
	case AccountTarget:
		if principal.AccountID == t.ID {
			return nil
		}
		if !ReadOnly(method) {
			return ErrForbidden
		}
		managers, err := p.managers.ManagersOf(ctx, t.ID)
		if err != nil {
			return err
		}
		if _, ok := managers[principal.AccountID]; ok {
			return nil
		}
		return ErrForbidden
	case TripTarget:
		if principal.AccountID == t.AccountID {
			return nil
		}
		managers, err := p.managers.ManagersOf(ctx, t.AccountID)
		if err != nil {
			return err
		}
		if _, ok := managers[principal.AccountID]; ok {
			return nil
		}
		return ErrForbidden
	}
	return ErrForbidden
}
