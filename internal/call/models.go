package call

import "time"

// Call is a negotiated session record between two users, independent of the
// media that flows directly between the peers once signaling completes.
//
// Invariants:
// - CallerID != CalleeID
// - AnsweredAt is set iff the call passed through acceptance
// - DurationSeconds = EndedAt - (AnsweredAt ?? StartedAt) once ended
// - terminal rows (ended/rejected) are immutable
type Call struct {
	ID        string  `json:"id" db:"id"`
	CallerID  string  `json:"caller_id" db:"caller_id"`
	CalleeID  string  `json:"callee_id" db:"callee_id"`
	ChannelID *string `json:"channel_id" db:"channel_id"`

	Status Status `json:"status" db:"status"`

	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	AnsweredAt      *time.Time `json:"answered_at" db:"answered_at"`
	EndedAt         *time.Time `json:"ended_at" db:"ended_at"`
	DurationSeconds *int64     `json:"duration_seconds" db:"duration_seconds"`
	EndReason       *string    `json:"end_reason" db:"end_reason"`
}

func (c Call) Participant(userID string) bool {
	return c.CallerID == userID || c.CalleeID == userID
}

type Status string

const (
	StatusRinging  Status = "ringing"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
	StatusEnded    Status = "ended"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusEnded
}

type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionEnd    Action = "end"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAccept, ActionReject, ActionEnd:
		return true
	default:
		return false
	}
}

const EndReasonCompleted = "completed"
const EndReasonRejected = "rejected"
