// Package memory implements every store contract in-process. It backs the
// handler tests and DSN-less runs of cmd/api.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"jogger.org/internal/account"
	"jogger.org/internal/delegation"
	"jogger.org/internal/scope"
	"jogger.org/internal/trip"
)

// Store holds all state behind one RWMutex and hands out per-domain views.
// Values are copied on the way in and out so callers never share memory
// with the store.
type Store struct {
	mu sync.RWMutex

	nextAccountID int64
	nextTripID    int64
	nextRecordID  int64

	accounts map[int64]*account.Account
	trips    map[int64]*trip.Trip
	records  map[int64]*delegation.AuthRecord

	scopes      map[int64]scope.Scope
	scopeByCode map[string]int64
}

// New creates a fresh store with the builtin scope catalog provisioned.
func New() *Store {
	s := &Store{
		accounts:    make(map[int64]*account.Account),
		trips:       make(map[int64]*trip.Trip),
		records:     make(map[int64]*delegation.AuthRecord),
		scopes:      make(map[int64]scope.Scope),
		scopeByCode: make(map[string]int64),
	}
	s.provisionScopes(scope.Catalog())
	return s
}

func (s *Store) provisionScopes(defs []scope.Definition) {
	for i, def := range defs {
		id := int64(i + 1)
		s.scopes[id] = scope.Scope{ID: id, Code: def.Code, Name: def.Name}
		s.scopeByCode[def.Code] = id
	}
	for _, def := range defs {
		id := s.scopeByCode[def.Code]
		sc := s.scopes[id]
		for _, inc := range def.Includes {
			if incID, ok := s.scopeByCode[inc]; ok {
				sc.Includes = append(sc.Includes, incID)
			}
		}
		s.scopes[id] = sc
	}
}

// Scopes returns the scope.Store view.
func (s *Store) Scopes() scope.Store { return &scopeStore{s} }

// Accounts returns the account.Store view.
func (s *Store) Accounts() account.Store { return &accountStore{s} }

// Trips returns the trip.Store view.
func (s *Store) Trips() trip.Store { return &tripStore{s} }

// Delegations returns the delegation.Store view.
func (s *Store) Delegations() delegation.Store { return &delegationStore{s} }

// --- scope.Store ---

type scopeStore struct{ s *Store }

func (v *scopeStore) GetByID(_ context.Context, id int64) (scope.Scope, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	sc, ok := v.s.scopes[id]
	if !ok {
		return scope.Scope{}, scope.ErrNotFound
	}
	return copyScope(sc), nil
}

func (v *scopeStore) GetByCode(_ context.Context, code string) (scope.Scope, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	id, ok := v.s.scopeByCode[code]
	if !ok {
		return scope.Scope{}, scope.ErrNotFound
	}
	return copyScope(v.s.scopes[id]), nil
}

func (v *scopeStore) List(_ context.Context) ([]scope.Scope, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]scope.Scope, 0, len(v.s.scopes))
	for _, sc := range v.s.scopes {
		out = append(out, copyScope(sc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyScope(sc scope.Scope) scope.Scope {
	out := sc
	if len(sc.Includes) > 0 {
		out.Includes = make([]int64, len(sc.Includes))
		copy(out.Includes, sc.Includes)
	}
	return out
}

// --- account.Store ---

type accountStore struct{ s *Store }

func (v *accountStore) Create(_ context.Context, acc account.Account) (account.Account, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.accounts {
		if existing.Email == acc.Email || existing.Username == acc.Username {
			return account.Account{}, account.ErrConflict
		}
	}
	v.s.nextAccountID++
	acc.ID = v.s.nextAccountID
	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	stored := acc
	v.s.accounts[acc.ID] = &stored
	return acc, nil
}

func (v *accountStore) GetByID(_ context.Context, id int64) (account.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	acc, ok := v.s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return copyAccount(acc), nil
}

func (v *accountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, acc := range v.s.accounts {
		if acc.Email == email {
			return copyAccount(acc), nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (v *accountStore) Update(_ context.Context, id int64, upd account.Update) (account.Account, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	acc, ok := v.s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if upd.Email != nil {
		for otherID, other := range v.s.accounts {
			if otherID != id && other.Email == *upd.Email {
				return account.Account{}, account.ErrConflict
			}
		}
		acc.Email = *upd.Email
	}
	if upd.Username != nil {
		for otherID, other := range v.s.accounts {
			if otherID != id && other.Username == *upd.Username {
				return account.Account{}, account.ErrConflict
			}
		}
		acc.Username = *upd.Username
	}
	if upd.PasswordHash != nil {
		acc.PasswordHash = *upd.PasswordHash
	}
	acc.UpdatedAt = time.Now().UTC()
	return copyAccount(acc), nil
}

func (v *accountStore) SetResetCode(_ context.Context, id int64, hash *string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	acc, ok := v.s.accounts[id]
	if !ok {
		return account.ErrNotFound
	}
	if hash == nil {
		acc.ResetCodeHash = nil
	} else {
		h := *hash
		acc.ResetCodeHash = &h
	}
	acc.UpdatedAt = time.Now().UTC()
	return nil
}

func (v *accountStore) Delete(_ context.Context, id int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.accounts[id]; !ok {
		return account.ErrNotFound
	}
	delete(v.s.accounts, id)
	for tripID, t := range v.s.trips {
		if t.AccountID == id {
			delete(v.s.trips, tripID)
		}
	}
	// Cascade the user side, null the owner side.
	for recID, rec := range v.s.records {
		if rec.UserID == id {
			delete(v.s.records, recID)
			continue
		}
		if rec.OwnerID != nil && *rec.OwnerID == id {
			rec.OwnerID = nil
		}
	}
	return nil
}

func copyAccount(acc *account.Account) account.Account {
	out := *acc
	if acc.ResetCodeHash != nil {
		h := *acc.ResetCodeHash
		out.ResetCodeHash = &h
	}
	return out
}

// --- trip.Store ---

type tripStore struct{ s *Store }

func (v *tripStore) Create(_ context.Context, t trip.Trip) (trip.Trip, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.nextTripID++
	t.ID = v.s.nextTripID
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	stored := t
	v.s.trips[t.ID] = &stored
	return t, nil
}

func (v *tripStore) GetByID(_ context.Context, id int64) (trip.Trip, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	t, ok := v.s.trips[id]
	if !ok {
		return trip.Trip{}, trip.ErrNotFound
	}
	return *t, nil
}

func (v *tripStore) ListByAccount(_ context.Context, accountID int64, limit int, afterID int64) ([]trip.Trip, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]trip.Trip, 0)
	for _, t := range v.s.trips {
		if t.AccountID == accountID && t.ID > afterID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *tripStore) Update(_ context.Context, id int64, upd trip.Update) (trip.Trip, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.trips[id]
	if !ok {
		return trip.Trip{}, trip.ErrNotFound
	}
	if upd.Duration != nil {
		t.Duration = *upd.Duration
	}
	if upd.Distance != nil {
		t.Distance = *upd.Distance
	}
	t.UpdatedAt = time.Now().UTC()
	return *t, nil
}

func (v *tripStore) Delete(_ context.Context, id int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.trips[id]; !ok {
		return trip.ErrNotFound
	}
	delete(v.s.trips, id)
	return nil
}

// --- delegation.Store ---

type delegationStore struct{ s *Store }

func (v *delegationStore) Create(_ context.Context, rec delegation.AuthRecord) (delegation.AuthRecord, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.nextRecordID++
	rec.ID = v.s.nextRecordID
	rec.CreatedAt = time.Now().UTC()
	stored := copyRecord(&rec)
	v.s.records[rec.ID] = &stored
	return copyRecord(&stored), nil
}

func (v *delegationStore) SetState(_ context.Context, id int64, code *string, active bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	rec, ok := v.s.records[id]
	if !ok {
		return delegation.ErrNotFound
	}
	if code == nil {
		rec.Code = nil
	} else {
		c := *code
		rec.Code = &c
	}
	rec.Active = active
	return nil
}

func (v *delegationStore) ListActiveByUser(_ context.Context, userID int64) ([]delegation.AuthRecord, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]delegation.AuthRecord, 0)
	for _, rec := range v.s.records {
		if rec.Active && rec.UserID == userID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *delegationStore) ListActiveByOwner(_ context.Context, ownerID int64) ([]delegation.AuthRecord, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]delegation.AuthRecord, 0)
	for _, rec := range v.s.records {
		if rec.Active && rec.OwnerID != nil && *rec.OwnerID == ownerID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *delegationStore) FindPendingByCode(_ context.Context, ownerID int64, code string) (delegation.AuthRecord, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, rec := range v.s.records {
		if rec.Code != nil && *rec.Code == code &&
			rec.OwnerID != nil && *rec.OwnerID == ownerID {
			return copyRecord(rec), nil
		}
	}
	return delegation.AuthRecord{}, delegation.ErrNotFound
}

func (v *delegationStore) DeactivatePair(_ context.Context, userID, ownerID int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, rec := range v.s.records {
		if rec.UserID == userID && rec.OwnerID != nil && *rec.OwnerID == ownerID {
			rec.Code = nil
			rec.Active = false
		}
	}
	return nil
}

// RecordByID returns any record regardless of state; handy for tests.
func (s *Store) RecordByID(id int64) (delegation.AuthRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return delegation.AuthRecord{}, false
	}
	return copyRecord(rec), true
}

// RecordsBetween returns every record between the pair regardless of state;
// handy for tests.
func (s *Store) RecordsBetween(userID, ownerID int64) []delegation.AuthRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]delegation.AuthRecord, 0)
	for _, rec := range s.records {
		if rec.UserID == userID && rec.OwnerID != nil && *rec.OwnerID == ownerID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyRecord(rec *delegation.AuthRecord) delegation.AuthRecord {
	out := *rec
	if rec.OwnerID != nil {
		id := *rec.OwnerID
		out.OwnerID = &id
	}
	if rec.Code != nil {
		c := *rec.Code
		out.Code = &c
	}
	if len(rec.ScopeIDs) > 0 {
		out.ScopeIDs = make([]int64, len(rec.ScopeIDs))
		copy(out.ScopeIDs, rec.ScopeIDs)
	}
	return out
}
