package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"jogger.org/internal/account"
	"jogger.org/internal/delegation"
	"jogger.org/internal/scope"
	"jogger.org/internal/trip"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestAccountCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into accounts").
		WithArgs("a@example.com", "runner", "hash").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.Accounts().Create(context.Background(), account.Account{
		Email:        "a@example.com",
		Username:     "runner",
		PasswordHash: "hash",
	})
	if !errors.Is(err, account.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountGetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from accounts where id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Accounts().GetByID(context.Background(), 7)
	if !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountSetResetCodeClears(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update accounts set reset_code_hash").
		WithArgs(nil, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Accounts().SetResetCode(context.Background(), 3, nil); err != nil {
		t.Fatalf("SetResetCode: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripListByAccount(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "account_id", "duration", "distance", "created_at", "updated_at"}).
		AddRow(int64(1), int64(9), int64(600), int64(1500), now, now).
		AddRow(int64(2), int64(9), int64(900), int64(2500), now, now)
	mock.ExpectQuery("select .* from trips").
		WithArgs(int64(9), int64(0), 10).
		WillReturnRows(rows)

	trips, err := store.Trips().ListByAccount(context.Background(), 9, 10, 0)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(trips) != 2 || trips[0].Distance != 1500 {
		t.Fatalf("unexpected trips: %+v", trips)
	}
}

func TestTripDeleteNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from trips").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Trips().Delete(context.Background(), 5); !errors.Is(err, trip.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelegationCreateInsertsScopesInOneTx(t *testing.T) {
	store, mock := newMockStore(t)

	owner := int64(2)
	code := "activation-code"
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("insert into auth_records").
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "owner_id", "code", "active", "created_at"}).
			AddRow(int64(11), int64(1), owner, code, false, now))
	mock.ExpectExec("insert into auth_record_scopes").
		WithArgs(int64(11), int64(5)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rec, err := store.Delegations().Create(context.Background(), delegation.AuthRecord{
		UserID:   1,
		OwnerID:  &owner,
		Code:     &code,
		Active:   false,
		ScopeIDs: []int64{5},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != 11 || rec.OwnerID == nil || *rec.OwnerID != owner {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(rec.ScopeIDs) != 1 || rec.ScopeIDs[0] != 5 {
		t.Fatalf("scope ids not carried: %+v", rec.ScopeIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelegationFindPendingByCode(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("select .* from auth_records").
		WithArgs(int64(2), "the-code").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "owner_id", "code", "active", "created_at"}).
			AddRow(int64(4), int64(1), int64(2), "the-code", false, now))
	mock.ExpectQuery("select scope_id from auth_record_scopes").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"scope_id"}).AddRow(int64(5)))

	rec, err := store.Delegations().FindPendingByCode(context.Background(), 2, "the-code")
	if err != nil {
		t.Fatalf("FindPendingByCode: %v", err)
	}
	if rec.ID != 4 || rec.Active || len(rec.ScopeIDs) != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestDelegationDeactivatePairIsIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update auth_records set code = null, active = false").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delegations().DeactivatePair(context.Background(), 1, 2); err != nil {
		t.Fatalf("DeactivatePair: %v", err)
	}
}

func TestProvisionScopes(t *testing.T) {
	store, mock := newMockStore(t)

	defs := []scope.Definition{
		{Code: "view_trip", Name: "Can view trip"},
		{Code: "change_trip", Name: "Can change trip", Includes: []string{"view_trip"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("insert into scopes").WithArgs("view_trip", "Can view trip").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into scopes").WithArgs("change_trip", "Can change trip").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("insert into scope_includes").WithArgs("change_trip", "view_trip").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.ProvisionScopes(context.Background(), defs); err != nil {
		t.Fatalf("ProvisionScopes: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
