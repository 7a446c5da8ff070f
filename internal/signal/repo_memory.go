package signal

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory signal store for tests and early development.
// Appends assign a process-local monotonic seq.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []Signal
	seq  int64
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, s Signal) (Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.Seq = r.seq
	r.rows = append(r.rows, s)
	return s, nil
}

func (r *MemoryRepo) ListForRecipient(ctx context.Context, callID, toUserID string, since *time.Time) ([]Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Signal, 0)
	// rows are already in seq order
	for _, s := range r.rows {
		if s.CallID != callID || s.ToUserID != toUserID {
			continue
		}
		if since != nil && !s.CreatedAt.After(*since) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
