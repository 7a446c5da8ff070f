package call

import (
	"context"

	"ptt-dispatch/internal/audit"
)

// Recorder receives lifecycle transitions for the operational event trail.
// Appends are best-effort; the call manager logs failures and moves on.
type Recorder interface {
	RecordTransition(ctx context.Context, t audit.EventType, c Call, actorID string) error
}

// AuditAdapter bridges the call manager's transition hook to the shared
// audit.Service, keeping call internals off the trail's persistence.

type AuditAdapter struct {
	Audit *audit.Service
}

func (a AuditAdapter) RecordTransition(ctx context.Context, t audit.EventType, c Call, actorID string) error {
	if a.Audit == nil {
		return nil
	}
	peerID := c.CalleeID
	if actorID == c.CalleeID {
		peerID = c.CallerID
	}
	msg := string(c.Status)
	if c.EndReason != nil {
		msg = string(c.Status) + ": " + *c.EndReason
	}
	return a.Audit.LogTransition(ctx, t, c.ID, actorID, peerID, msg)
}
