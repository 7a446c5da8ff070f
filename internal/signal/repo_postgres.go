package signal

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo persists signals.
//
// NOTE: assumes the table
//   webrtc_signals (id PK, call_id, seq BIGSERIAL, from_user_id, to_user_id,
//                   signal_type, signal_data JSONB, created_at)
// seq is store-assigned and monotonic, so delivery order does not depend on
// created_at resolution.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, s Signal) (Signal, error) {
	const q = `
INSERT INTO webrtc_signals (id, call_id, from_user_id, to_user_id, signal_type, signal_data, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, call_id, seq, from_user_id, to_user_id, signal_type, signal_data, created_at
`
	var out Signal
	if err := r.db.QueryRowContext(ctx, q,
		s.ID,
		s.CallID,
		s.FromUserID,
		s.ToUserID,
		s.Type,
		[]byte(s.Data),
		s.CreatedAt,
	).Scan(
		&out.ID,
		&out.CallID,
		&out.Seq,
		&out.FromUserID,
		&out.ToUserID,
		&out.Type,
		&out.Data,
		&out.CreatedAt,
	); err != nil {
		return Signal{}, err
	}
	return out, nil
}

func (r *PostgresRepo) ListForRecipient(ctx context.Context, callID, toUserID string, since *time.Time) ([]Signal, error) {
	q := `
SELECT id, call_id, seq, from_user_id, to_user_id, signal_type, signal_data, created_at
FROM webrtc_signals
WHERE call_id = $1 AND to_user_id = $2
`
	args := []any{callID, toUserID}
	if since != nil {
		q += ` AND created_at > $3`
		args = append(args, *since)
	}
	q += ` ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Signal, 0)
	for rows.Next() {
		var s Signal
		if err := rows.Scan(&s.ID, &s.CallID, &s.Seq, &s.FromUserID, &s.ToUserID, &s.Type, &s.Data, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
