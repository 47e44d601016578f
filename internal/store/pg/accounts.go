package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"jogger.org/internal/account"
)

type accountStore struct {
	db *sql.DB
}

const accountColumns = `id, email, username, password_hash, reset_code_hash, superuser, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (account.Account, error) {
	var (
		acc   account.Account
		reset sql.NullString
	)
	err := row.Scan(&acc.ID, &acc.Email, &acc.Username, &acc.PasswordHash,
		&reset, &acc.Superuser, &acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, err
	}
	if reset.Valid {
		acc.ResetCodeHash = &reset.String
	}
	return acc, nil
}

func (s *accountStore) Create(ctx context.Context, acc account.Account) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into accounts (email, username, password_hash)
		values ($1, $2, $3)
		returning `+accountColumns, acc.Email, acc.Username, acc.PasswordHash)
	created, err := scanAccount(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return account.Account{}, account.ErrConflict
		}
		return account.Account{}, err
	}
	return created, nil
}

func (s *accountStore) GetByID(ctx context.Context, id int64) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id = $1`, id)
	return scanAccount(row)
}

func (s *accountStore) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where email = $1`, email)
	return scanAccount(row)
}

func (s *accountStore) Update(ctx context.Context, id int64, upd account.Update) (account.Account, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if upd.Email != nil {
		args = append(args, *upd.Email)
		sets = append(sets, "email = $"+strconv.Itoa(len(args)))
	}
	if upd.Username != nil {
		args = append(args, *upd.Username)
		sets = append(sets, "username = $"+strconv.Itoa(len(args)))
	}
	if upd.PasswordHash != nil {
		args = append(args, *upd.PasswordHash)
		sets = append(sets, "password_hash = $"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}
	args = append(args, id)
	query := `update accounts set ` + strings.Join(sets, ", ") +
		`, updated_at = now() where id = $` + strconv.Itoa(len(args)) +
		` returning ` + accountColumns
	updated, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return account.Account{}, account.ErrConflict
		}
		return account.Account{}, err
	}
	return updated, nil
}

func (s *accountStore) SetResetCode(ctx context.Context, id int64, hash *string) error {
	var value sql.NullString
	if hash != nil {
		value = sql.NullString{String: *hash, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		update accounts set reset_code_hash = $1, updated_at = now() where id = $2
	`, value, id)
	if err != nil {
		return err
	}
	return requireRow(res, account.ErrNotFound)
}

func (s *accountStore) Delete(ctx context.Context, id int64) error {
	// Trips and user-side auth records cascade; owner-side records get
	// owner_id set to null. Both are declared on the schema.
	res, err := s.db.ExecContext(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, account.ErrNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
