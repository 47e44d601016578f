package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jogger.org/internal/scope"
)

type scopeStore struct {
	db *sql.DB
}

// ProvisionScopes loads the catalog into the scopes tables. It is
// idempotent; existing rows are left untouched so ids stay stable.
func (s *Store) ProvisionScopes(ctx context.Context, defs []scope.Definition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, def := range defs {
		if _, err := tx.ExecContext(ctx, `
			insert into scopes(code, name) values ($1, $2)
			on conflict (code) do nothing
		`, def.Code, def.Name); err != nil {
			return fmt.Errorf("provision scope %s: %w", def.Code, err)
		}
	}
	for _, def := range defs {
		for _, inc := range def.Includes {
			if _, err := tx.ExecContext(ctx, `
				insert into scope_includes(scope_id, includes_id)
				select a.id, b.id from scopes a, scopes b
				where a.code = $1 and b.code = $2
				on conflict do nothing
			`, def.Code, inc); err != nil {
				return fmt.Errorf("provision include %s -> %s: %w", def.Code, inc, err)
			}
		}
	}
	return tx.Commit()
}

func (s *scopeStore) GetByID(ctx context.Context, id int64) (scope.Scope, error) {
	return s.get(ctx, `select id, code, name from scopes where id = $1`, id)
}

func (s *scopeStore) GetByCode(ctx context.Context, code string) (scope.Scope, error) {
	return s.get(ctx, `select id, code, name from scopes where code = $1`, code)
}

func (s *scopeStore) get(ctx context.Context, query string, arg any) (scope.Scope, error) {
	var sc scope.Scope
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&sc.ID, &sc.Code, &sc.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return scope.Scope{}, scope.ErrNotFound
	}
	if err != nil {
		return scope.Scope{}, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select includes_id from scope_includes where scope_id = $1 order by includes_id
	`, sc.ID)
	if err != nil {
		return scope.Scope{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var inc int64
		if err := rows.Scan(&inc); err != nil {
			return scope.Scope{}, err
		}
		sc.Includes = append(sc.Includes, inc)
	}
	return sc, rows.Err()
}

func (s *scopeStore) List(ctx context.Context) ([]scope.Scope, error) {
	rows, err := s.db.QueryContext(ctx, `select id, code, name from scopes order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scope.Scope
	index := make(map[int64]int)
	for rows.Next() {
		var sc scope.Scope
		if err := rows.Scan(&sc.ID, &sc.Code, &sc.Name); err != nil {
			return nil, err
		}
		index[sc.ID] = len(out)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	incRows, err := s.db.QueryContext(ctx, `
		select scope_id, includes_id from scope_includes order by scope_id, includes_id
	`)
	if err != nil {
		return nil, err
	}
	defer incRows.Close()
	for incRows.Next() {
		var scopeID, incID int64
		if err := incRows.Scan(&scopeID, &incID); err != nil {
			return nil, err
		}
		if i, ok := index[scopeID]; ok {
			out[i].Includes = append(out[i].Includes, incID)
		}
	}
	return out, incRows.Err()
}
