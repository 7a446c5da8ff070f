package call

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory call store for tests and early development.
// ApplyTransition holds the repo mutex for the whole read-modify-write, which
// gives the same no-partial-write property as the SQL row lock.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Call
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[string]Call{}}
}

func (r *MemoryRepo) Create(ctx context.Context, c Call) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = c
	return c, nil
}

func (r *MemoryRepo) ApplyTransition(ctx context.Context, callID string, fn func(Call) (Call, error)) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return Call{}, err
	}
	r.rows[callID] = next
	return next, nil
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[callID]
	return c, ok, nil
}

func (r *MemoryRepo) Active(ctx context.Context, userID string) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best Call
	found := false
	for _, c := range r.rows {
		if !c.Participant(userID) {
			continue
		}
		if c.Status != StatusRinging && c.Status != StatusActive {
			continue
		}
		if !found || c.StartedAt.After(best.StartedAt) {
			best = c
			found = true
		}
	}
	return best, found, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string, limit int) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0)
	for _, c := range r.rows {
		if c.Participant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count is a test helper for asserting that failed initiations create no rows.
func (r *MemoryRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
