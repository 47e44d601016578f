package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"jogger.org/internal/trip"
)

type tripStore struct {
	db *sql.DB
}

const tripColumns = `id, account_id, duration, distance, created_at, updated_at`

func scanTrip(row interface{ Scan(...any) error }) (trip.Trip, error) {
	var t trip.Trip
	err := row.Scan(&t.ID, &t.AccountID, &t.Duration, &t.Distance, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return trip.Trip{}, trip.ErrNotFound
	}
	if err != nil {
		return trip.Trip{}, err
	}
	return t, nil
}

func (s *tripStore) Create(ctx context.Context, t trip.Trip) (trip.Trip, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into trips (account_id, duration, distance)
		values ($1, $2, $3)
		returning `+tripColumns, t.AccountID, t.Duration, t.Distance)
	created, err := scanTrip(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return trip.Trip{}, trip.ErrInvalidInput
		}
		return trip.Trip{}, err
	}
	return created, nil
}

func (s *tripStore) GetByID(ctx context.Context, id int64) (trip.Trip, error) {
	row := s.db.QueryRowContext(ctx, `select `+tripColumns+` from trips where id = $1`, id)
	return scanTrip(row)
}

func (s *tripStore) ListByAccount(ctx context.Context, accountID int64, limit int, afterID int64) ([]trip.Trip, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+tripColumns+` from trips
		where account_id = $1 and id > $2
		order by id
		limit $3
	`, accountID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trip.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *tripStore) Update(ctx context.Context, id int64, upd trip.Update) (trip.Trip, error) {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if upd.Duration != nil {
		args = append(args, *upd.Duration)
		sets = append(sets, "duration = $"+strconv.Itoa(len(args)))
	}
	if upd.Distance != nil {
		args = append(args, *upd.Distance)
		sets = append(sets, "distance = $"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}
	args = append(args, id)
	query := `update trips set ` + strings.Join(sets, ", ") +
		`, updated_at = now() where id = $` + strconv.Itoa(len(args)) +
		` returning ` + tripColumns
	return scanTrip(s.db.QueryRowContext(ctx, query, args...))
}

func (s *tripStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from trips where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, trip.ErrNotFound)
}
