package delegation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"jogger.org/internal/account"
	"jogger.org/internal/scope"
)

var (
	ErrNotFound      = errors.New("delegation: not found")
	ErrConflict      = errors.New("delegation: already authorised")
	ErrQuotaExceeded = errors.New("delegation: quota exceeded")
	ErrInvalidInput  = errors.New("delegation: invalid input")
)

// Default quota limits.
const (
	DefaultManagerLimit = 5
	DefaultManagedLimit = 25
)

// Store describes persistence operations required by the delegation
// subsystem.
type Store interface {
	Create(ctx context.Context, rec AuthRecord) (AuthRecord, error)
	// SetState persists only the code/active pair of the record.
	SetState(ctx context.Context, id int64, code *string, active bool) error
	ListActiveByUser(ctx context.Context, userID int64) ([]AuthRecord, error)
	ListActiveByOwner(ctx context.Context, ownerID int64) ([]AuthRecord, error)
	FindPendingByCode(ctx context.Context, ownerID int64, code string) (AuthRecord, error)
	// DeactivatePair clears code and active on every record between the pair.
	DeactivatePair(ctx context.Context, userID, ownerID int64) error
}

// AccountDirectory resolves accounts for notification payloads.
type AccountDirectory interface {
	GetByID(ctx context.Context, id int64) (account.Account, error)
}

// Option configures Service behavior.
type Option func(*Service)

// WithManagerLimit overrides how many managers one account may have.
func WithManagerLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.managerLimit = n
		}
	}
}

// WithManagedLimit overrides how many accounts one manager may manage.
func WithManagedLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.managedLimit = n
		}
	}
}

// WithNotifier wires the out-of-band notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// Service orchestrates the manager-invites workflow: quota and duplication
// control, activation and revocation, and closure-based manager queries.
type Service struct {
	store    Store
	scopes   scope.Store
	graph    *scope.Graph
	accounts AccountDirectory
	notifier Notifier

	managerLimit int
	managedLimit int

	locksMu sync.Mutex
	locks   map[pairKey]*pairLock
}

type pairKey struct {
	userID  int64
	ownerID int64
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

// NewService constructs the delegation service.
func NewService(store Store, scopes scope.Store, accounts AccountDirectory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("delegation store is required")
	}
	if scopes == nil {
		return nil, errors.New("scope store is required")
	}
	if accounts == nil {
		return nil, errors.New("account directory is required")
	}
	graph, err := scope.NewGraph(scopes)
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:        store,
		scopes:       scopes,
		graph:        graph,
		accounts:     accounts,
		managerLimit: DefaultManagerLimit,
		managedLimit: DefaultManagedLimit,
		locks:        make(map[pairKey]*pairLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// lockPair serializes delegation sequences for one (user, owner) pair so
// concurrent requests cannot both pass the duplicate check.
func (s *Service) lockPair(key pairKey) func() {
	s.locksMu.Lock()
	l := s.locks[key]
	if l == nil {
		l = &pairLock{}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.locksMu.Unlock()
	}
}

// Request invites manager to manage user. Any prior grant between the pair
// is revoked first; at most one pending or active record per pair survives.
// The new record starts Pending with a fresh activation code, scoped to the
// manage permission.
func (s *Service) Request(ctx context.Context, user, manager account.Account) (AuthRecord, error) {
	if user.ID == manager.ID {
		return AuthRecord{}, fmt.Errorf("%w: cannot manage own account", ErrInvalidInput)
	}
	unlock := s.lockPair(pairKey{userID: user.ID, ownerID: manager.ID})
	defer unlock()

	managers, err := s.ManagersOf(ctx, user.ID)
	if err != nil {
		return AuthRecord{}, err
	}
	if _, ok := managers[manager.ID]; ok {
		return AuthRecord{}, fmt.Errorf("%w: already authorised", ErrConflict)
	}
	managing, err := s.ManagingOf(ctx, manager.ID)
	if err != nil {
		return AuthRecord{}, err
	}
	if len(managing) >= s.managedLimit {
		return AuthRecord{}, fmt.Errorf("%w: account is managing more than enough", ErrQuotaExceeded)
	}
	if len(managers) >= s.managerLimit {
		return AuthRecord{}, fmt.Errorf("%w: account has more than enough managers", ErrQuotaExceeded)
	}

	manage, err := s.scopes.GetByCode(ctx, scope.AccountManage)
	if err != nil {
		return AuthRecord{}, err
	}
	if err := s.store.DeactivatePair(ctx, user.ID, manager.ID); err != nil {
		return AuthRecord{}, err
	}
	code, err := NewActivationCode()
	if err != nil {
		return AuthRecord{}, err
	}
	ownerID := manager.ID
	rec, err := s.store.Create(ctx, AuthRecord{
		UserID:   user.ID,
		OwnerID:  &ownerID,
		Code:     &code,
		Active:   false,
		ScopeIDs: []int64{manage.ID},
	})
	if err != nil {
		return AuthRecord{}, err
	}
	if s.notifier != nil {
		s.notifier.ManagerInvited(ctx, manager.Email, user.Email, code)
	}
	return rec, nil
}

// Confirm accepts an invitation: it finds the Pending record owned by
// ownerID matching the code and activates it. A wrong code, wrong owner, or
// already consumed code is ErrNotFound.
func (s *Service) Confirm(ctx context.Context, ownerID int64, code string) (AuthRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return AuthRecord{}, fmt.Errorf("%w: no authorization code supplied", ErrInvalidInput)
	}
	rec, err := s.store.FindPendingByCode(ctx, ownerID, code)
	if err != nil {
		return AuthRecord{}, err
	}
	if !rec.Activate() {
		return AuthRecord{}, ErrNotFound
	}
	if err := s.store.SetState(ctx, rec.ID, nil, true); err != nil {
		return AuthRecord{}, err
	}
	if s.notifier != nil {
		user, uerr := s.accounts.GetByID(ctx, rec.UserID)
		owner, oerr := s.accounts.GetByID(ctx, ownerID)
		if uerr == nil && oerr == nil {
			s.notifier.ManageeConfirmed(ctx, user.Email, owner.Email)
		}
	}
	return rec, nil
}

// Revoke deactivates every record between the pair. Idempotent; used both
// for explicit un-managing and as the duplicate cleanup inside Request.
func (s *Service) Revoke(ctx context.Context, userID, ownerID int64) error {
	unlock := s.lockPair(pairKey{userID: userID, ownerID: ownerID})
	defer unlock()
	return s.store.DeactivatePair(ctx, userID, ownerID)
}

// ManagersOf returns the ids of accounts holding an active manage grant over
// the given account.
func (s *Service) ManagersOf(ctx context.Context, accountID int64) (map[int64]struct{}, error) {
	return s.HoldersOf(ctx, accountID, scope.AccountManage)
}

// ManagingOf returns the ids of accounts the given account actively manages.
func (s *Service) ManagingOf(ctx context.Context, accountID int64) (map[int64]struct{}, error) {
	return s.GrantedBy(ctx, accountID, scope.AccountManage)
}

// HoldersOf generalizes ManagersOf to any scope code: which accounts hold an
// active grant over accountID whose flattened closure contains the scope.
func (s *Service) HoldersOf(ctx context.Context, accountID int64, code string) (map[int64]struct{}, error) {
	required, err := s.scopes.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.ListActiveByUser(ctx, accountID)
	if err != nil {
		return nil, err
	}
	holders := make(map[int64]struct{})
	for _, rec := range recs {
		if rec.OwnerID == nil {
			continue
		}
		granted, err := s.graph.Flatten(ctx, rec.ScopeIDs)
		if err != nil {
			return nil, err
		}
		if scope.HasRequired(granted, required.ID) {
			holders[*rec.OwnerID] = struct{}{}
		}
	}
	return holders, nil
}

// GrantedBy is the symmetric query: which accounts has accountID been
// actively granted the scope over.
func (s *Service) GrantedBy(ctx context.Context, accountID int64, code string) (map[int64]struct{}, error) {
	required, err := s.scopes.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.ListActiveByOwner(ctx, accountID)
	if err != nil {
		return nil, err
	}
	managed := make(map[int64]struct{})
	for _, rec := range recs {
		granted, err := s.graph.Flatten(ctx, rec.ScopeIDs)
		if err != nil {
			return nil, err
		}
		if scope.HasRequired(granted, required.ID) {
			managed[rec.UserID] = struct{}{}
		}
	}
	return managed, nil
}
