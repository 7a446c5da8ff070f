package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory presence store for tests and early development.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Presence
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[string]Presence{}}
}

func (r *MemoryRepo) Upsert(ctx context.Context, p Presence) (Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.UserID] = p
	return p, nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Presence, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[userID]
	return p, ok, nil
}

func (r *MemoryRepo) GetMany(ctx context.Context, userIDs []string) ([]Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Presence, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := r.rows[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ResetOnline(ctx context.Context, userIDs []string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range userIDs {
		p, ok := r.rows[id]
		if !ok {
			continue
		}
		p.Status = StatusOnline
		p.CurrentCallID = nil
		p.LastSeen = now
		p.UpdatedAt = now
		r.rows[id] = p
	}
	return nil
}
