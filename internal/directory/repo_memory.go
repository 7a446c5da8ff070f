package directory

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory directory for tests and early development.
type MemoryRepo struct {
	mu sync.Mutex

	Profiles map[string]Profile
	// Members maps talkgroup_id -> member user ids.
	Members map[string][]string
	// Supervisors maps talkgroup_id -> supervisor user ids.
	Supervisors map[string][]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		Profiles:    map[string]Profile{},
		Members:     map[string][]string{},
		Supervisors: map[string][]string{},
	}
}

func (r *MemoryRepo) AddProfile(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Profiles[p.ID] = p
}

func (r *MemoryRepo) Assign(talkgroupID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Members[talkgroupID] = append(r.Members[talkgroupID], userID)
}

func (r *MemoryRepo) AssignSupervisor(talkgroupID, supervisorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Supervisors[talkgroupID] = append(r.Supervisors[talkgroupID], supervisorID)
}

func (r *MemoryRepo) GetProfile(ctx context.Context, userID string) (Profile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Profiles[userID]
	return p, ok, nil
}

func (r *MemoryRepo) GetProfiles(ctx context.Context, userIDs []string) ([]Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Profile, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := r.Profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListTalkgroupMemberIDs(ctx context.Context, talkgroupID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Members[talkgroupID]...), nil
}

func (r *MemoryRepo) ListReachableUserIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups := map[string]bool{}
	for tg, members := range r.Members {
		for _, id := range members {
			if id == userID {
				groups[tg] = true
			}
		}
	}
	for tg, sups := range r.Supervisors {
		for _, id := range sups {
			if id == userID {
				groups[tg] = true
			}
		}
	}

	seen := map[string]bool{}
	out := make([]string, 0)
	for tg := range groups {
		for _, id := range r.Members[tg] {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}
