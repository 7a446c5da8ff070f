package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ptt-dispatch/internal/call"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument = errors.New("signal: invalid argument")
	ErrCallNotFound    = errors.New("signal: call not found")
	ErrForbidden       = errors.New("signal: sender is not a call participant")
)

// Repository is the append-only signal store.
type Repository interface {
	Append(ctx context.Context, s Signal) (Signal, error)

	// ListForRecipient returns signals for (callID, toUserID) ascending by
	// seq, filtered to created_at > since when since is non-nil.
	ListForRecipient(ctx context.Context, callID, toUserID string, since *time.Time) ([]Signal, error)
}

// Calls resolves call membership for the send authorization check.
type Calls interface {
	Get(ctx context.Context, callID string) (call.Call, bool, error)
}

type Service struct {
	repo  Repository
	calls Calls
	clock func() time.Time
	newID func() string
}

func NewService(repo Repository, calls Calls) *Service {
	return &Service{repo: repo, calls: calls, clock: time.Now, newID: uuid.NewString}
}

type SendRequest struct {
	CallID   string
	ToUserID string
	Type     Type
	Data     json.RawMessage
}

// Send appends one signal. The call must exist and include the sender; the
// recipient field is taken as-is, matching the inherited wire contract.
// Ordering is append order; nothing is deduplicated.
func (s *Service) Send(ctx context.Context, fromUserID string, req SendRequest) (Signal, error) {
	if fromUserID == "" || req.CallID == "" || req.ToUserID == "" {
		return Signal{}, ErrInvalidArgument
	}
	if !req.Type.Valid() {
		return Signal{}, ErrInvalidArgument
	}
	if _, err := ParsePayload(req.Type, req.Data); err != nil {
		return Signal{}, err
	}

	c, ok, err := s.calls.Get(ctx, req.CallID)
	if err != nil {
		return Signal{}, err
	}
	if !ok {
		return Signal{}, ErrCallNotFound
	}
	if !c.Participant(fromUserID) {
		return Signal{}, ErrForbidden
	}

	return s.repo.Append(ctx, Signal{
		ID:         s.newID(),
		CallID:     req.CallID,
		FromUserID: fromUserID,
		ToUserID:   req.ToUserID,
		Type:       req.Type,
		Data:       req.Data,
		CreatedAt:  s.clock().UTC(),
	})
}

// Poll returns the recipient's mailbox for one call, ascending, restartable
// from the since cursor. Replaying the same cursor redelivers; consumers must
// tolerate duplicates. An unknown call simply polls empty.
func (s *Service) Poll(ctx context.Context, recipientID, callID string, since *time.Time) ([]Signal, error) {
	if recipientID == "" || callID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListForRecipient(ctx, callID, recipientID, since)
}
