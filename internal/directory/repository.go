package directory

import (
	"context"
	"database/sql"
	"errors"
)

// Repository reads the externally-owned identity tables. This service never
// writes them; organization/talkgroup administration happens elsewhere.
//
// Assumed tables:
// - profiles
// - user_talkgroup_assignments (user_id, talkgroup_id)
// - supervisor_talkgroup_assignments (supervisor_id, talkgroup_id)
type Repository interface {
	// GetProfile returns ok=false when the user does not exist; absence is not an error.
	GetProfile(ctx context.Context, userID string) (Profile, bool, error)

	GetProfiles(ctx context.Context, userIDs []string) ([]Profile, error)

	// ListTalkgroupMemberIDs returns the user ids assigned to one talkgroup.
	ListTalkgroupMemberIDs(ctx context.Context, talkgroupID string) ([]string, error)

	// ListReachableUserIDs returns the deduplicated user ids that share a
	// talkgroup with userID, counting both member and supervisor assignments.
	ListReachableUserIDs(ctx context.Context, userID string) ([]string, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetProfile(ctx context.Context, userID string) (Profile, bool, error) {
	const q = `
SELECT id, full_name, email, role, created_at
FROM profiles
WHERE id = $1
`
	var p Profile
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, false, nil
		}
		return Profile{}, false, err
	}
	return p, true, nil
}

func (r *PostgresRepo) GetProfiles(ctx context.Context, userIDs []string) ([]Profile, error) {
	if len(userIDs) == 0 {
		return []Profile{}, nil
	}
	const q = `
SELECT id, full_name, email, role, created_at
FROM profiles
WHERE id = ANY($1)
`
	rows, err := r.db.QueryContext(ctx, q, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Profile, 0, len(userIDs))
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListTalkgroupMemberIDs(ctx context.Context, talkgroupID string) ([]string, error) {
	const q = `
SELECT user_id
FROM user_talkgroup_assignments
WHERE talkgroup_id = $1
`
	rows, err := r.db.QueryContext(ctx, q, talkgroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *PostgresRepo) ListReachableUserIDs(ctx context.Context, userID string) ([]string, error) {
	// Union of talkgroups the user belongs to or supervises, then every
	// member of those talkgroups.
	const q = `
SELECT DISTINCT a.user_id
FROM user_talkgroup_assignments a
WHERE a.talkgroup_id IN (
    SELECT talkgroup_id FROM user_talkgroup_assignments WHERE user_id = $1
    UNION
    SELECT talkgroup_id FROM supervisor_talkgroup_assignments WHERE supervisor_id = $1
)
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
