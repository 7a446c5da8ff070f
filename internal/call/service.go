package call

import (
	"context"
	"errors"
	"time"

	"ptt-dispatch/internal/audit"
	"ptt-dispatch/internal/directory"
	"ptt-dispatch/internal/presence"
	"ptt-dispatch/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument   = errors.New("call: invalid argument")
	ErrSelfCall          = errors.New("call: cannot call yourself")
	ErrCalleeNotFound    = errors.New("call: callee not found")
	ErrCalleeBusy        = errors.New("call: callee is busy")
	ErrNotFound          = errors.New("call: not found")
	ErrForbidden         = errors.New("call: not a participant")
	ErrWrongActor        = errors.New("call: only callee may do this")
	ErrInvalidTransition = errors.New("call: invalid state transition")
)

// Repository abstracts call persistence.
type Repository interface {
	Create(ctx context.Context, c Call) (Call, error)

	// ApplyTransition loads the call, runs fn on it while holding the row, and
	// persists fn's result. If fn errors nothing is written and the call row is
	// returned unchanged alongside the error. Missing call -> ErrNotFound.
	ApplyTransition(ctx context.Context, callID string, fn func(Call) (Call, error)) (Call, error)

	Get(ctx context.Context, callID string) (Call, bool, error)

	// Active returns the most recent ringing/active call involving userID.
	Active(ctx context.Context, userID string) (Call, bool, error)

	// List returns calls involving userID, any status, descending by started_at.
	List(ctx context.Context, userID string, limit int) ([]Call, error)
}

// Tracker is the slice of the presence tracker the lifecycle manager drives.
type Tracker interface {
	Get(ctx context.Context, userID string) (presence.Presence, bool, error)
	SetInCall(ctx context.Context, userID, callID string) (presence.Presence, error)
	ResetOnline(ctx context.Context, userIDs ...string) error
}

// Directory resolves callee existence.
type Directory interface {
	GetProfile(ctx context.Context, userID string) (directory.Profile, bool, error)
}

// LineGuard is an optional atomic hold on a callee's line for the ringing
// window. A nil guard preserves the inherited check-then-act race: two
// simultaneous initiations to the same callee can both succeed.
type LineGuard interface {
	Acquire(ctx context.Context, calleeID string) (bool, error)
	Release(ctx context.Context, calleeID string) error
}

type Service struct {
	repo    Repository
	tracker Tracker
	dir     Directory
	guard   LineGuard // nil-able
	rec     Recorder  // nil-able
	clock   func() time.Time
	newID   func() string
}

func NewService(repo Repository, tracker Tracker, dir Directory, guard LineGuard, rec Recorder) *Service {
	return &Service{
		repo:    repo,
		tracker: tracker,
		dir:     dir,
		guard:   guard,
		rec:     rec,
		clock:   time.Now,
		newID:   uuid.NewString,
	}
}

// Initiate creates a ringing call after checking callee existence and
// availability. The busy check and the insert are separate store operations;
// the optional line guard is the only thing that makes them atomic.
// The callee's presence is left untouched until acceptance.
func (s *Service) Initiate(ctx context.Context, callerID, calleeID string, channelID *string) (Call, error) {
	if callerID == "" || calleeID == "" {
		return Call{}, ErrInvalidArgument
	}
	if callerID == calleeID {
		return Call{}, ErrSelfCall
	}

	if _, ok, err := s.dir.GetProfile(ctx, calleeID); err != nil {
		return Call{}, err
	} else if !ok {
		return Call{}, ErrCalleeNotFound
	}

	if p, ok, err := s.tracker.Get(ctx, calleeID); err != nil {
		return Call{}, err
	} else if ok && p.Status == presence.StatusInCall {
		return Call{}, ErrCalleeBusy
	}

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, calleeID)
		if err != nil {
			return Call{}, err
		}
		if !ok {
			return Call{}, ErrCalleeBusy
		}
	}

	now := s.clock().UTC()
	c, err := s.repo.Create(ctx, Call{
		ID:        s.newID(),
		CallerID:  callerID,
		CalleeID:  calleeID,
		ChannelID: channelID,
		Status:    StatusRinging,
		StartedAt: now,
	})
	if err != nil {
		s.releaseGuard(ctx, calleeID)
		return Call{}, err
	}

	// Best-effort side effect; not rolled back if it fails.
	if _, err := s.tracker.SetInCall(ctx, callerID, c.ID); err != nil {
		logger.From(ctx).Warn("caller presence update failed after initiate", "call_id", c.ID, "err", err)
	}
	s.record(ctx, audit.EventTypeCallInitiated, c, callerID)

	return c, nil
}

// Update drives accept/reject/end. The precondition check and the row update
// run as one repository transition; presence updates afterwards are
// best-effort and not guaranteed transactional with the transition.
func (s *Service) Update(ctx context.Context, actorID, callID string, action Action, endReason string) (Call, error) {
	if actorID == "" || callID == "" || !action.Valid() {
		return Call{}, ErrInvalidArgument
	}

	now := s.clock().UTC()

	updated, err := s.repo.ApplyTransition(ctx, callID, func(c Call) (Call, error) {
		if !c.Participant(actorID) {
			return Call{}, ErrForbidden
		}

		switch action {
		case ActionAccept:
			if actorID != c.CalleeID {
				return Call{}, ErrWrongActor
			}
			if c.Status != StatusRinging {
				return Call{}, ErrInvalidTransition
			}
			c.Status = StatusActive
			c.AnsweredAt = &now

		case ActionReject:
			if actorID != c.CalleeID {
				return Call{}, ErrWrongActor
			}
			if c.Status != StatusRinging {
				return Call{}, ErrInvalidTransition
			}
			reason := EndReasonRejected
			c.Status = StatusRejected
			c.EndedAt = &now
			c.EndReason = &reason

		case ActionEnd:
			if c.Status.Terminal() {
				return Call{}, ErrInvalidTransition
			}
			from := c.StartedAt
			if c.AnsweredAt != nil {
				from = *c.AnsweredAt
			}
			dur := int64(now.Sub(from) / time.Second)
			reason := endReason
			if reason == "" {
				reason = EndReasonCompleted
			}
			c.Status = StatusEnded
			c.EndedAt = &now
			c.DurationSeconds = &dur
			c.EndReason = &reason
		}
		return c, nil
	})
	if err != nil {
		return Call{}, err
	}

	s.applySideEffects(ctx, updated, action, actorID)
	return updated, nil
}

// applySideEffects runs the presence/guard updates that follow a successful
// transition. Failures are logged, not rolled back.
//
// Reject deliberately leaves the caller's presence at in_call; the caller
// clears it via its own end or a later heartbeat. Inherited asymmetry kept
// pending product clarification.
func (s *Service) applySideEffects(ctx context.Context, c Call, action Action, actorID string) {
	log := logger.From(ctx)

	switch action {
	case ActionAccept:
		if _, err := s.tracker.SetInCall(ctx, c.CalleeID, c.ID); err != nil {
			log.Warn("callee presence update failed after accept", "call_id", c.ID, "err", err)
		}
		// Presence is the authoritative busy signal once active.
		s.releaseGuard(ctx, c.CalleeID)
		s.record(ctx, audit.EventTypeCallAccepted, c, actorID)

	case ActionReject:
		s.releaseGuard(ctx, c.CalleeID)
		s.record(ctx, audit.EventTypeCallRejected, c, actorID)

	case ActionEnd:
		if err := s.tracker.ResetOnline(ctx, c.CallerID, c.CalleeID); err != nil {
			log.Warn("presence reset failed after end", "call_id", c.ID, "err", err)
		}
		s.releaseGuard(ctx, c.CalleeID)
		s.record(ctx, audit.EventTypeCallEnded, c, actorID)
	}
}

// record appends to the event trail. Best-effort by contract.
func (s *Service) record(ctx context.Context, t audit.EventType, c Call, actorID string) {
	if s.rec == nil {
		return
	}
	if err := s.rec.RecordTransition(ctx, t, c, actorID); err != nil {
		logger.From(ctx).Warn("event trail append failed", "call_id", c.ID, "err", err)
	}
}

func (s *Service) releaseGuard(ctx context.Context, calleeID string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, calleeID); err != nil {
		logger.From(ctx).Warn("line guard release failed", "callee_id", calleeID, "err", err)
	}
}

// Active returns the user's most recent ringing/active call, if any. The "at
// most one active call per user" rule is advisory; only the busy check in
// Initiate enforces it.
func (s *Service) Active(ctx context.Context, userID string) (Call, bool, error) {
	if userID == "" {
		return Call{}, false, ErrInvalidArgument
	}
	return s.repo.Active(ctx, userID)
}

// History returns the user's calls, any status, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Call, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, userID, limit)
}

// Get returns a call visible to a participant only.
func (s *Service) Get(ctx context.Context, actorID, callID string) (Call, error) {
	c, ok, err := s.repo.Get(ctx, callID)
	if err != nil {
		return Call{}, err
	}
	if !ok {
		return Call{}, ErrNotFound
	}
	if !c.Participant(actorID) {
		return Call{}, ErrForbidden
	}
	return c, nil
}
