package memory_test

import (
	"context"
	"errors"
	"testing"

	"jogger.org/internal/account"
	"jogger.org/internal/delegation"
	"jogger.org/internal/scope"
	"jogger.org/internal/store/memory"
	"jogger.org/internal/trip"
)

func mustCreateAccount(t *testing.T, st *memory.Store, email, username string) account.Account {
	t.Helper()
	acc, err := st.Accounts().Create(context.Background(), account.Account{
		Email:        email,
		Username:     username,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create account %s: %v", email, err)
	}
	return acc
}

func TestScopeCatalogProvisioned(t *testing.T) {
	st := memory.New()

	manage, err := st.Scopes().GetByCode(context.Background(), scope.AccountManage)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if len(manage.Includes) == 0 {
		t.Fatal("manage scope must include other scopes")
	}

	all, err := st.Scopes().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != len(scope.Catalog()) {
		t.Fatalf("expected %d scopes, got %d", len(scope.Catalog()), len(all))
	}
}

func TestAccountUniqueness(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	mustCreateAccount(t, st, "a@example.com", "a")

	if _, err := st.Accounts().Create(ctx, account.Account{
		Email: "a@example.com", Username: "other", PasswordHash: "h",
	}); !errors.Is(err, account.ErrConflict) {
		t.Fatalf("duplicate email must conflict, got %v", err)
	}
	if _, err := st.Accounts().Create(ctx, account.Account{
		Email: "b@example.com", Username: "a", PasswordHash: "h",
	}); !errors.Is(err, account.ErrConflict) {
		t.Fatalf("duplicate username must conflict, got %v", err)
	}

	b := mustCreateAccount(t, st, "b@example.com", "b")
	email := "a@example.com"
	if _, err := st.Accounts().Update(ctx, b.ID, account.Update{Email: &email}); !errors.Is(err, account.ErrConflict) {
		t.Fatalf("update onto taken email must conflict, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	user := mustCreateAccount(t, st, "user@example.com", "user")
	owner := mustCreateAccount(t, st, "owner@example.com", "owner")

	tr, err := st.Trips().Create(ctx, trip.Trip{AccountID: user.ID, Duration: 60})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}

	ownerID := owner.ID
	userSide, err := st.Delegations().Create(ctx, delegation.AuthRecord{
		UserID: user.ID, OwnerID: &ownerID, Active: true,
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	userAsOwner := user.ID
	ownerSide, err := st.Delegations().Create(ctx, delegation.AuthRecord{
		UserID: owner.ID, OwnerID: &userAsOwner, Active: true,
	})
	if err != nil {
		t.Fatalf("create reverse record: %v", err)
	}

	if err := st.Accounts().Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, err := st.Trips().GetByID(ctx, tr.ID); !errors.Is(err, trip.ErrNotFound) {
		t.Fatalf("trip must be removed with the account, got %v", err)
	}
	if _, ok := st.RecordByID(userSide.ID); ok {
		t.Fatal("user-side record must be removed with the account")
	}
	rec, ok := st.RecordByID(ownerSide.ID)
	if !ok {
		t.Fatal("owner-side record must survive")
	}
	if rec.OwnerID != nil {
		t.Fatalf("owner-side record must lose its owner, got %v", *rec.OwnerID)
	}
	// Active stays true on the stored row; the nil owner alone keeps it out
	// of every manager query.
	recs, err := st.Delegations().ListActiveByOwner(ctx, user.ID)
	if err != nil || len(recs) != 0 {
		t.Fatalf("nulled record must not surface for the deleted owner: %v %v", recs, err)
	}
}

func TestDeactivatePairLeavesOtherPairsAlone(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	user := mustCreateAccount(t, st, "user@example.com", "user")
	first := mustCreateAccount(t, st, "first@example.com", "first")
	second := mustCreateAccount(t, st, "second@example.com", "second")

	for _, owner := range []account.Account{first, second} {
		ownerID := owner.ID
		if _, err := st.Delegations().Create(ctx, delegation.AuthRecord{
			UserID: user.ID, OwnerID: &ownerID, Active: true,
		}); err != nil {
			t.Fatalf("create record: %v", err)
		}
	}

	if err := st.Delegations().DeactivatePair(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("DeactivatePair: %v", err)
	}

	active, err := st.Delegations().ListActiveByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(active) != 1 || *active[0].OwnerID != second.ID {
		t.Fatalf("only the second pair must stay active: %+v", active)
	}
}
