package delegation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"jogger.org/internal/account"
	"jogger.org/internal/delegation"
	"jogger.org/internal/store/memory"
)

type recordingNotifier struct {
	mu        sync.Mutex
	invites   []string // activation codes handed to managers
	confirmed []string // managee emails notified of activation
}

func (n *recordingNotifier) ManagerInvited(_ context.Context, _, _, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, code)
}

func (n *recordingNotifier) ManageeConfirmed(_ context.Context, userEmail, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, userEmail)
}

type fixture struct {
	store    *memory.Store
	svc      *delegation.Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T, opts ...delegation.Option) *fixture {
	t.Helper()
	store := memory.New()
	notifier := &recordingNotifier{}
	opts = append(opts, delegation.WithNotifier(notifier))
	svc, err := delegation.NewService(store.Delegations(), store.Scopes(), store.Accounts(), opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{store: store, svc: svc, notifier: notifier}
}

func (f *fixture) newAccount(t *testing.T, name string) account.Account {
	t.Helper()
	acc, err := f.store.Accounts().Create(context.Background(), account.Account{
		Email:        name + "@example.com",
		Username:     name,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create account %s: %v", name, err)
	}
	return acc
}

func TestDelegationEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.newAccount(t, "runner")
	mgr := f.newAccount(t, "coach")

	rec, err := f.svc.Request(ctx, user, mgr)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if rec.State() != delegation.StatePending {
		t.Fatalf("expected pending record, got %s", rec.State())
	}
	if rec.Code == nil || *rec.Code == "" {
		t.Fatal("pending record must carry an activation code")
	}
	if len(f.notifier.invites) != 1 || f.notifier.invites[0] != *rec.Code {
		t.Fatalf("notifier did not receive the activation code")
	}

	// Not yet confirmed: no managers.
	managers, err := f.svc.ManagersOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("ManagersOf: %v", err)
	}
	if len(managers) != 0 {
		t.Fatalf("pending grant must not count, got %v", managers)
	}

	if _, err := f.svc.Confirm(ctx, mgr.ID, *rec.Code); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	managers, err = f.svc.ManagersOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("ManagersOf: %v", err)
	}
	if _, ok := managers[mgr.ID]; !ok || len(managers) != 1 {
		t.Fatalf("ManagersOf=%v, want {%d}", managers, mgr.ID)
	}
	managing, err := f.svc.ManagingOf(ctx, mgr.ID)
	if err != nil {
		t.Fatalf("ManagingOf: %v", err)
	}
	if _, ok := managing[user.ID]; !ok || len(managing) != 1 {
		t.Fatalf("ManagingOf=%v, want {%d}", managing, user.ID)
	}
	if len(f.notifier.confirmed) != 1 || f.notifier.confirmed[0] != user.Email {
		t.Fatalf("managee confirmation notice missing: %v", f.notifier.confirmed)
	}

	if err := f.svc.Revoke(ctx, user.ID, mgr.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	managers, err = f.svc.ManagersOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("ManagersOf: %v", err)
	}
	if len(managers) != 0 {
		t.Fatalf("expected no managers after revoke, got %v", managers)
	}
}

func TestRequestRevokesPriorGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.newAccount(t, "runner")
	mgr := f.newAccount(t, "coach")

	first, err := f.svc.Request(ctx, user, mgr)
	if err != nil {
		t.Fatalf("first Request: %v", err)
	}
	second, err := f.svc.Request(ctx, user, mgr)
	if err != nil {
		t.Fatalf("second Request: %v", err)
	}

	recs := f.store.RecordsBetween(user.ID, mgr.ID)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records (history kept), got %d", len(recs))
	}
	var live int
	for _, rec := range recs {
		if rec.State() != delegation.StateRevoked {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("exactly one record may be pending or active, got %d", live)
	}

	// The first code is dead: confirming it must fail.
	if _, err := f.svc.Confirm(ctx, mgr.ID, *first.Code); !errors.Is(err, delegation.ErrNotFound) {
		t.Fatalf("stale code must be NotFound, got %v", err)
	}
	if _, err := f.svc.Confirm(ctx, mgr.ID, *second.Code); err != nil {
		t.Fatalf("fresh code must confirm: %v", err)
	}
}

func TestRequestDuplicateActiveGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.newAccount(t, "runner")
	mgr := f.newAccount(t, "coach")

	rec, err := f.svc.Request(ctx, user, mgr)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, mgr.ID, *rec.Code); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if _, err := f.svc.Request(ctx, user, mgr); !errors.Is(err, delegation.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate invite, got %v", err)
	}
}

func TestRequestSelfDelegation(t *testing.T) {
	f := newFixture(t)
	user := f.newAccount(t, "runner")
	if _, err := f.svc.Request(context.Background(), user, user); !errors.Is(err, delegation.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestManagerQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.newAccount(t, "runner")

	for i := 0; i < delegation.DefaultManagerLimit; i++ {
		mgr := f.newAccount(t, fmt.Sprintf("coach%d", i))
		rec, err := f.svc.Request(ctx, user, mgr)
		if err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
		if _, err := f.svc.Confirm(ctx, mgr.ID, *rec.Code); err != nil {
			t.Fatalf("Confirm %d: %v", i, err)
		}
	}

	extra := f.newAccount(t, "coach-extra")
	if _, err := f.svc.Request(ctx, user, extra); !errors.Is(err, delegation.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded on manager %d, got %v", delegation.DefaultManagerLimit+1, err)
	}
}

func TestManagedQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, delegation.WithManagedLimit(2))
	mgr := f.newAccount(t, "coach")

	for i := 0; i < 2; i++ {
		user := f.newAccount(t, fmt.Sprintf("runner%d", i))
		rec, err := f.svc.Request(ctx, user, mgr)
		if err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
		if _, err := f.svc.Confirm(ctx, mgr.ID, *rec.Code); err != nil {
			t.Fatalf("Confirm %d: %v", i, err)
		}
	}

	user := f.newAccount(t, "runner-extra")
	if _, err := f.svc.Request(ctx, user, mgr); !errors.Is(err, delegation.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded for managed limit, got %v", err)
	}
}

func TestConfirmRejectsWrongOwnerAndEmptyCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.newAccount(t, "runner")
	mgr := f.newAccount(t, "coach")
	other := f.newAccount(t, "bystander")

	rec, err := f.svc.Request(ctx, user, mgr)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, other.ID, *rec.Code); !errors.Is(err, delegation.ErrNotFound) {
		t.Fatalf("wrong owner must be NotFound, got %v", err)
	}
	if _, err := f.svc.Confirm(ctx, mgr.ID, "  "); !errors.Is(err, delegation.ErrInvalidInput) {
		t.Fatalf("empty code must be InvalidInput, got %v", err)
	}
	if _, err := f.svc.Confirm(ctx, mgr.ID, "bogus"); !errors.Is(err, delegation.ErrNotFound) {
		t.Fatalf("unknown code must be NotFound, got %v", err)
	}
}

func TestManagersOfExcludesDeletedOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.newAccount(t, "runner")
	mgr := f.newAccount(t, "coach")

	rec, err := f.svc.Request(ctx, user, mgr)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, mgr.ID, *rec.Code); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := f.store.Accounts().Delete(ctx, mgr.ID); err != nil {
		t.Fatalf("delete manager: %v", err)
	}

	// The record survives with a null owner but counts as revoked.
	managers, err := f.svc.ManagersOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("ManagersOf: %v", err)
	}
	if len(managers) != 0 {
		t.Fatalf("null-owner grant must not count, got %v", managers)
	}
}

func TestRevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.newAccount(t, "runner")
	mgr := f.newAccount(t, "coach")

	if err := f.svc.Revoke(ctx, user.ID, mgr.ID); err != nil {
		t.Fatalf("revoke with no records: %v", err)
	}
	rec, err := f.svc.Request(ctx, user, mgr)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, mgr.ID, *rec.Code); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := f.svc.Revoke(ctx, user.ID, mgr.ID); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := f.svc.Revoke(ctx, user.ID, mgr.ID); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
}

func TestConcurrentRequestsSinglePair(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.newAccount(t, "runner")
	mgr := f.newAccount(t, "coach")

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = f.svc.Request(ctx, user, mgr)
		}()
	}
	wg.Wait()

	var live int
	for _, rec := range f.store.RecordsBetween(user.ID, mgr.ID) {
		if rec.State() != delegation.StateRevoked {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("concurrent requests left %d live records, want 1", live)
	}
}
