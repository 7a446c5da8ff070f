package audit

import (
	"context"
	"testing"
	"time"
)

func TestAppend_FillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	now := time.Unix(1700000000, 0).UTC()
	svc.clock = func() time.Time { return now }

	err := svc.LogTransition(context.Background(), EventTypeCallInitiated, "c1", "alice", "bob", "ringing")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Fatalf("id not assigned")
	}
	if !e.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", e.CreatedAt, now)
	}
	if e.Type != EventTypeCallInitiated || e.ActorUserID != "alice" || e.PeerUserID != "bob" {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestAppend_RejectsIncompleteEvents(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if err := svc.Append(ctx, Event{CallID: "c1"}); err != ErrInvalidEvent {
		t.Fatalf("missing type: got %v", err)
	}
	if err := svc.Append(ctx, Event{Type: EventTypeCallEnded}); err != ErrInvalidEvent {
		t.Fatalf("missing call_id: got %v", err)
	}
}

func TestTrail_FiltersByCall(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.LogTransition(ctx, EventTypeCallInitiated, "c1", "alice", "bob", ""); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := svc.LogTransition(ctx, EventTypeCallEnded, "c1", "alice", "bob", ""); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := svc.LogTransition(ctx, EventTypeCallInitiated, "c2", "carol", "dave", ""); err != nil {
		t.Fatalf("append: %v", err)
	}

	trail, err := svc.Trail(ctx, "c1")
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 2 || trail[0].Type != EventTypeCallInitiated || trail[1].Type != EventTypeCallEnded {
		t.Fatalf("unexpected trail: %+v", trail)
	}
}
