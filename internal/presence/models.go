package presence

import (
	"time"

	"ptt-dispatch/internal/directory"
)

// Presence is the latest known availability of one user. Exactly one record
// per user; records are overwritten in place and never hard-deleted here.
//
// Invariant: Status == in_call implies CurrentCallID references a non-terminal
// call. The call lifecycle manager owns that transition; heartbeats can still
// override it (see Service.Heartbeat).
type Presence struct {
	UserID        string    `json:"user_id" db:"user_id"`
	Status        Status    `json:"status" db:"status"`
	CurrentCallID *string   `json:"current_call_id" db:"current_call_id"`
	LastSeen      time.Time `json:"last_seen" db:"last_seen"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusOnline  Status = "online"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
	StatusInCall  Status = "in_call"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusBusy, StatusOffline, StatusInCall:
		return true
	default:
		return false
	}
}

// WithProfile joins a presence row with the directory contact card, mirroring
// the shape the talkgroup and online listings return.
type WithProfile struct {
	Presence
	Profile directory.Profile `json:"profile"`
}
