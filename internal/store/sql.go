package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLStore keeps records in the trigger_expressions table. Queries use
// PostgreSQL placeholders; the driver is registered by the caller.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) Save(ctx context.Context, rec Record) (int64, error) {
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO trigger_expressions(host, item_key, expression, source, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (host, item_key, expression) DO UPDATE SET source=EXCLUDED.source
		RETURNING id`,
		rec.Host, rec.Key, rec.Expression, rec.Source, created,
	).Scan(&id)
	return id, err
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx, `SELECT id, host, item_key, expression, source, created_at
		FROM trigger_expressions WHERE id=$1`, id,
	).Scan(&r.ID, &r.Host, &r.Key, &r.Expression, &r.Source, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]Record, error) {
	q := `SELECT id, host, item_key, expression, source, created_at FROM trigger_expressions ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Host, &r.Key, &r.Expression, &r.Source, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
