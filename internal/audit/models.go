package audit

import "time"

// Event is an immutable, append-only operational record of a call lifecycle
// transition.
//
// Invariants:
// - Events are never updated or deleted.
// - Writers treat appends as best-effort; a failed append must never block or
//   roll back the transition it describes.
//
// Storage (Postgres): table call_events with an INSERT-only policy.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type is the lifecycle transition this record describes.
	Type EventType `json:"type" db:"type"`

	CallID string `json:"call_id" db:"call_id"`

	// ActorUserID is the participant who drove the transition.
	ActorUserID string `json:"actor_user_id" db:"actor_user_id"`
	// PeerUserID is the other participant.
	PeerUserID string `json:"peer_user_id,omitempty" db:"peer_user_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallInitiated EventType = "call_initiated"
	EventTypeCallAccepted  EventType = "call_accepted"
	EventTypeCallRejected  EventType = "call_rejected"
	EventTypeCallEnded     EventType = "call_ended"
)
