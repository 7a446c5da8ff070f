package call

import (
	"context"
	"database/sql"
	"errors"

	"ptt-dispatch/pkg/utils"
)

// PostgresRepo persists calls.
//
// NOTE: assumes the table
//   calls (id PK, caller_id, callee_id, channel_id, status, started_at,
//          answered_at, ended_at, duration_seconds, end_reason)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callColumns = `id, caller_id, callee_id, channel_id, status, started_at, answered_at, ended_at, duration_seconds, end_reason`

func scanCall(row interface{ Scan(...any) error }) (Call, error) {
	var c Call
	err := row.Scan(
		&c.ID,
		&c.CallerID,
		&c.CalleeID,
		&c.ChannelID,
		&c.Status,
		&c.StartedAt,
		&c.AnsweredAt,
		&c.EndedAt,
		&c.DurationSeconds,
		&c.EndReason,
	)
	return c, err
}

func (r *PostgresRepo) Create(ctx context.Context, c Call) (Call, error) {
	const q = `
INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING ` + callColumns + `
`
	return scanCall(r.db.QueryRowContext(ctx, q,
		c.ID,
		c.CallerID,
		c.CalleeID,
		c.ChannelID,
		c.Status,
		c.StartedAt,
		c.AnsweredAt,
		c.EndedAt,
		c.DurationSeconds,
		c.EndReason,
	))
}

// ApplyTransition locks the call row, runs fn, and persists the result in one
// transaction. A failed precondition writes nothing.
func (r *PostgresRepo) ApplyTransition(ctx context.Context, callID string, fn func(Call) (Call, error)) (Call, error) {
	var out Call

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `
SELECT ` + callColumns + `
FROM calls
WHERE id = $1
FOR UPDATE
`
		cur, err := scanCall(tx.QueryRowContext(ctx, sel, callID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}

		const upd = `
UPDATE calls
SET status = $2, answered_at = $3, ended_at = $4, duration_seconds = $5, end_reason = $6
WHERE id = $1
RETURNING ` + callColumns + `
`
		out, err = scanCall(tx.QueryRowContext(ctx, upd,
			next.ID,
			next.Status,
			next.AnsweredAt,
			next.EndedAt,
			next.DurationSeconds,
			next.EndReason,
		))
		return err
	})
	if err != nil {
		return Call{}, err
	}
	return out, nil
}

func (r *PostgresRepo) Get(ctx context.Context, callID string) (Call, bool, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE id = $1
`
	c, err := scanCall(r.db.QueryRowContext(ctx, q, callID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, false, nil
		}
		return Call{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) Active(ctx context.Context, userID string) (Call, bool, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE (caller_id = $1 OR callee_id = $1)
  AND status IN ('ringing','active')
ORDER BY started_at DESC
LIMIT 1
`
	c, err := scanCall(r.db.QueryRowContext(ctx, q, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, false, nil
		}
		return Call{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, userID string, limit int) ([]Call, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE caller_id = $1 OR callee_id = $1
ORDER BY started_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Call, 0, limit)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
