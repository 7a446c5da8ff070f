package presence

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists presence in the user_presence table.
//
// NOTE: assumes the table
//   user_presence (user_id PK, status, current_call_id, last_seen, updated_at)
// Concurrent writers resolve via plain last-write-wins row updates.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Upsert(ctx context.Context, p Presence) (Presence, error) {
	const q = `
INSERT INTO user_presence (user_id, status, current_call_id, last_seen, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id)
DO UPDATE SET status = EXCLUDED.status,
              current_call_id = EXCLUDED.current_call_id,
              last_seen = EXCLUDED.last_seen,
              updated_at = EXCLUDED.updated_at
RETURNING user_id, status, current_call_id, last_seen, updated_at
`
	var out Presence
	if err := r.db.QueryRowContext(ctx, q, p.UserID, p.Status, p.CurrentCallID, p.LastSeen, p.UpdatedAt).Scan(
		&out.UserID,
		&out.Status,
		&out.CurrentCallID,
		&out.LastSeen,
		&out.UpdatedAt,
	); err != nil {
		return Presence{}, err
	}
	return out, nil
}

func (r *PostgresRepo) Get(ctx context.Context, userID string) (Presence, bool, error) {
	const q = `
SELECT user_id, status, current_call_id, last_seen, updated_at
FROM user_presence
WHERE user_id = $1
`
	var out Presence
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&out.UserID,
		&out.Status,
		&out.CurrentCallID,
		&out.LastSeen,
		&out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Presence{}, false, nil
		}
		return Presence{}, false, err
	}
	return out, true, nil
}

func (r *PostgresRepo) GetMany(ctx context.Context, userIDs []string) ([]Presence, error) {
	if len(userIDs) == 0 {
		return []Presence{}, nil
	}
	const q = `
SELECT user_id, status, current_call_id, last_seen, updated_at
FROM user_presence
WHERE user_id = ANY($1)
`
	rows, err := r.db.QueryContext(ctx, q, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Presence, 0, len(userIDs))
	for rows.Next() {
		var p Presence
		if err := rows.Scan(&p.UserID, &p.Status, &p.CurrentCallID, &p.LastSeen, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ResetOnline(ctx context.Context, userIDs []string, now time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	// Update only; users who never reported presence stay absent.
	const q = `
UPDATE user_presence
SET status = 'online', current_call_id = NULL, last_seen = $2, updated_at = $2
WHERE user_id = ANY($1)
`
	_, err := r.db.ExecContext(ctx, q, userIDs, now)
	return err
}
