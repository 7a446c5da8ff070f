package presence

import (
	"context"
	"errors"
	"time"

	"ptt-dispatch/internal/directory"
)

var (
	ErrInvalidStatus   = errors.New("presence: invalid status")
	ErrInvalidArgument = errors.New("presence: invalid argument")
)

// Repository abstracts the presence store. Writers resolve concurrent updates
// with the store's last-write-wins semantics; no application-level locking.
type Repository interface {
	Upsert(ctx context.Context, p Presence) (Presence, error)
	Get(ctx context.Context, userID string) (Presence, bool, error)
	GetMany(ctx context.Context, userIDs []string) ([]Presence, error)

	// ResetOnline updates existing rows only (no insert): status=online,
	// current_call_id cleared. Used when a call reaches a terminal state.
	ResetOnline(ctx context.Context, userIDs []string, now time.Time) error
}

// Directory is the slice of the directory read model this tracker needs for
// the talkgroup and reachable-scope listings.
type Directory interface {
	GetProfiles(ctx context.Context, userIDs []string) ([]directory.Profile, error)
	ListTalkgroupMemberIDs(ctx context.Context, talkgroupID string) ([]string, error)
	ListReachableUserIDs(ctx context.Context, userID string) ([]string, error)
}

type Service struct {
	repo Repository
	dir  Directory
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, dir Directory) *Service {
	return &Service{repo: repo, dir: dir, clock: time.Now}
}

// UpsertStatus overwrites the user's status and stamps last_seen/updated_at.
// Idempotent; the only domain error is an unknown status value.
func (s *Service) UpsertStatus(ctx context.Context, userID string, status Status) (Presence, error) {
	if userID == "" {
		return Presence{}, ErrInvalidArgument
	}
	if !status.Valid() {
		return Presence{}, ErrInvalidStatus
	}
	now := s.clock().UTC()
	return s.repo.Upsert(ctx, Presence{
		UserID:    userID,
		Status:    status,
		LastSeen:  now,
		UpdatedAt: now,
	})
}

// Heartbeat unconditionally marks the user online and refreshes last_seen,
// even overriding a prior busy/in_call state. Inherited behavior; a client
// heartbeating mid-call will clobber its own in_call marker.
func (s *Service) Heartbeat(ctx context.Context, userID string) (Presence, error) {
	return s.UpsertStatus(ctx, userID, StatusOnline)
}

// Get returns the user's presence; a missing record is ok=false, not an error.
func (s *Service) Get(ctx context.Context, userID string) (Presence, bool, error) {
	if userID == "" {
		return Presence{}, false, ErrInvalidArgument
	}
	return s.repo.Get(ctx, userID)
}

func (s *Service) GetMany(ctx context.Context, userIDs []string) ([]Presence, error) {
	return s.repo.GetMany(ctx, userIDs)
}

// SetInCall is a side-effect entry point for the call lifecycle manager.
func (s *Service) SetInCall(ctx context.Context, userID, callID string) (Presence, error) {
	if userID == "" || callID == "" {
		return Presence{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	return s.repo.Upsert(ctx, Presence{
		UserID:        userID,
		Status:        StatusInCall,
		CurrentCallID: &callID,
		LastSeen:      now,
		UpdatedAt:     now,
	})
}

// ResetOnline is a side-effect entry point for the call lifecycle manager.
func (s *Service) ResetOnline(ctx context.Context, userIDs ...string) error {
	return s.repo.ResetOnline(ctx, userIDs, s.clock().UTC())
}

// TalkgroupPresence lists the presences of a talkgroup's members joined with
// their directory profiles. Members without a presence row are omitted.
func (s *Service) TalkgroupPresence(ctx context.Context, talkgroupID string) ([]WithProfile, error) {
	if talkgroupID == "" {
		return nil, ErrInvalidArgument
	}
	memberIDs, err := s.dir.ListTalkgroupMemberIDs(ctx, talkgroupID)
	if err != nil {
		return nil, err
	}
	return s.withProfiles(ctx, memberIDs, nil)
}

// OnlinePresence lists every reachable user (sharing a talkgroup with actor,
// via member or supervisor assignment) whose status is online, busy or in_call.
func (s *Service) OnlinePresence(ctx context.Context, actorID string) ([]WithProfile, error) {
	if actorID == "" {
		return nil, ErrInvalidArgument
	}
	userIDs, err := s.dir.ListReachableUserIDs(ctx, actorID)
	if err != nil {
		return nil, err
	}
	visible := map[Status]bool{StatusOnline: true, StatusBusy: true, StatusInCall: true}
	return s.withProfiles(ctx, userIDs, visible)
}

func (s *Service) withProfiles(ctx context.Context, userIDs []string, statusFilter map[Status]bool) ([]WithProfile, error) {
	out := make([]WithProfile, 0, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	presences, err := s.repo.GetMany(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	profiles, err := s.dir.GetProfiles(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]directory.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	for _, p := range presences {
		if statusFilter != nil && !statusFilter[p.Status] {
			continue
		}
		out = append(out, WithProfile{Presence: p, Profile: byID[p.UserID]})
	}
	return out, nil
}
