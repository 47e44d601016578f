package pg

import (
	"context"
	"database/sql"
	"errors"

	"jogger.org/internal/delegation"
)

type delegationStore struct {
	db *sql.DB
}

const recordColumns = `id, user_id, owner_id, code, active, created_at`

func scanRecord(row interface{ Scan(...any) error }) (delegation.AuthRecord, error) {
	var (
		rec   delegation.AuthRecord
		owner sql.NullInt64
		code  sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.UserID, &owner, &code, &rec.Active, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return delegation.AuthRecord{}, delegation.ErrNotFound
	}
	if err != nil {
		return delegation.AuthRecord{}, err
	}
	if owner.Valid {
		rec.OwnerID = &owner.Int64
	}
	if code.Valid {
		rec.Code = &code.String
	}
	return rec, nil
}

func (s *delegationStore) Create(ctx context.Context, rec delegation.AuthRecord) (delegation.AuthRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return delegation.AuthRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var owner sql.NullInt64
	if rec.OwnerID != nil {
		owner = sql.NullInt64{Int64: *rec.OwnerID, Valid: true}
	}
	var code sql.NullString
	if rec.Code != nil {
		code = sql.NullString{String: *rec.Code, Valid: true}
	}
	row := tx.QueryRowContext(ctx, `
		insert into auth_records (user_id, owner_id, code, active)
		values ($1, $2, $3, $4)
		returning `+recordColumns, rec.UserID, owner, code, rec.Active)
	created, err := scanRecord(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return delegation.AuthRecord{}, delegation.ErrConflict
			case pgErrForeignKeyViolation:
				return delegation.AuthRecord{}, delegation.ErrInvalidInput
			}
		}
		return delegation.AuthRecord{}, err
	}
	for _, scopeID := range rec.ScopeIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into auth_record_scopes (record_id, scope_id) values ($1, $2)
		`, created.ID, scopeID); err != nil {
			return delegation.AuthRecord{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return delegation.AuthRecord{}, err
	}
	created.ScopeIDs = append([]int64(nil), rec.ScopeIDs...)
	return created, nil
}

func (s *delegationStore) SetState(ctx context.Context, id int64, code *string, active bool) error {
	var value sql.NullString
	if code != nil {
		value = sql.NullString{String: *code, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		update auth_records set code = $1, active = $2 where id = $3
	`, value, active, id)
	if err != nil {
		return err
	}
	return requireRow(res, delegation.ErrNotFound)
}

func (s *delegationStore) ListActiveByUser(ctx context.Context, userID int64) ([]delegation.AuthRecord, error) {
	return s.listActive(ctx, `
		select `+recordColumns+` from auth_records
		where user_id = $1 and active order by id
	`, userID)
}

func (s *delegationStore) ListActiveByOwner(ctx context.Context, ownerID int64) ([]delegation.AuthRecord, error) {
	return s.listActive(ctx, `
		select `+recordColumns+` from auth_records
		where owner_id = $1 and active order by id
	`, ownerID)
}

func (s *delegationStore) listActive(ctx context.Context, query string, arg any) ([]delegation.AuthRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []delegation.AuthRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		scopes, err := s.recordScopes(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].ScopeIDs = scopes
	}
	return out, nil
}

func (s *delegationStore) FindPendingByCode(ctx context.Context, ownerID int64, code string) (delegation.AuthRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+recordColumns+` from auth_records
		where owner_id = $1 and code = $2 and not active
	`, ownerID, code)
	rec, err := scanRecord(row)
	if err != nil {
		return delegation.AuthRecord{}, err
	}
	rec.ScopeIDs, err = s.recordScopes(ctx, rec.ID)
	if err != nil {
		return delegation.AuthRecord{}, err
	}
	return rec, nil
}

func (s *delegationStore) DeactivatePair(ctx context.Context, userID, ownerID int64) error {
	_, err := s.db.ExecContext(ctx, `
		update auth_records set code = null, active = false
		where user_id = $1 and owner_id = $2 and (active or code is not null)
	`, userID, ownerID)
	return err
}

func (s *delegationStore) recordScopes(ctx context.Context, recordID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		select scope_id from auth_record_scopes where record_id = $1 order by scope_id
	`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
