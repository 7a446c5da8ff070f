package presence

import (
	"context"
	"testing"
	"time"

	"ptt-dispatch/internal/directory"
)

func newTestService() (*Service, *MemoryRepo, *directory.MemoryRepo, *time.Time) {
	repo := NewMemoryRepo()
	dir := directory.NewMemoryRepo()
	svc := NewService(repo, dir)
	now := time.Unix(1700000000, 0).UTC()
	svc.clock = func() time.Time { return now }
	return svc, repo, dir, &now
}

func TestUpsertStatus_StampsAndOverwrites(t *testing.T) {
	svc, _, _, now := newTestService()
	ctx := context.Background()

	p, err := svc.UpsertStatus(ctx, "u1", StatusBusy)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.Status != StatusBusy || !p.LastSeen.Equal(*now) || !p.UpdatedAt.Equal(*now) {
		t.Fatalf("unexpected presence: %+v", p)
	}

	// Idempotent overwrite.
	p, err = svc.UpsertStatus(ctx, "u1", StatusOffline)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.Status != StatusOffline {
		t.Fatalf("expected offline, got %s", p.Status)
	}
}

func TestUpsertStatus_RejectsUnknownStatus(t *testing.T) {
	svc, repo, _, _ := newTestService()
	if _, err := svc.UpsertStatus(context.Background(), "u1", Status("dancing")); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, ok, _ := repo.Get(context.Background(), "u1"); ok {
		t.Fatalf("expected no row on validation failure")
	}
}

func TestHeartbeat_OverridesInCall(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SetInCall(ctx, "u1", "call-1"); err != nil {
		t.Fatalf("set in_call: %v", err)
	}

	p, err := svc.Heartbeat(ctx, "u1")
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if p.Status != StatusOnline {
		t.Fatalf("heartbeat must force online, got %s", p.Status)
	}
	if p.CurrentCallID != nil {
		t.Fatalf("heartbeat clears current_call_id, got %v", *p.CurrentCallID)
	}
}

func TestGet_AbsentIsNotAnError(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, ok, err := svc.Get(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok {
		t.Fatalf("expected absent record")
	}
}

func TestGetMany_ReturnsOnlyKnown(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.UpsertStatus(ctx, "a", StatusOnline); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	out, err := svc.GetMany(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(out) != 1 || out[0].UserID != "a" {
		t.Fatalf("unexpected batch: %+v", out)
	}
}

func TestResetOnline_SkipsAbsentUsers(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.SetInCall(ctx, "a", "call-1"); err != nil {
		t.Fatalf("set in_call: %v", err)
	}

	if err := svc.ResetOnline(ctx, "a", "never-seen"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	p, ok, _ := repo.Get(ctx, "a")
	if !ok || p.Status != StatusOnline || p.CurrentCallID != nil {
		t.Fatalf("expected reset to online/nil, got %+v", p)
	}
	if _, ok, _ := repo.Get(ctx, "never-seen"); ok {
		t.Fatalf("reset must not create rows")
	}
}

func TestTalkgroupPresence_JoinsProfiles(t *testing.T) {
	svc, _, dir, _ := newTestService()
	ctx := context.Background()

	dir.AddProfile(directory.Profile{ID: "a", FullName: "Ada", Role: directory.RoleDispatcher})
	dir.AddProfile(directory.Profile{ID: "b", FullName: "Ben", Role: directory.RoleFieldUnit})
	dir.Assign("tg1", "a")
	dir.Assign("tg1", "b")
	dir.Assign("tg2", "b")

	if _, err := svc.UpsertStatus(ctx, "a", StatusOnline); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// b has never reported presence and is omitted.

	out, err := svc.TalkgroupPresence(ctx, "tg1")
	if err != nil {
		t.Fatalf("talkgroup presence: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 presence, got %d", len(out))
	}
	if out[0].UserID != "a" || out[0].Profile.FullName != "Ada" {
		t.Fatalf("unexpected join: %+v", out[0])
	}
}

func TestOnlinePresence_ReachableScopeAndStatusFilter(t *testing.T) {
	svc, _, dir, _ := newTestService()
	ctx := context.Background()

	for _, id := range []string{"sup", "a", "b", "c", "stranger"} {
		dir.AddProfile(directory.Profile{ID: id})
	}
	// sup supervises tg1; a, b, c are members; stranger is in another group.
	dir.AssignSupervisor("tg1", "sup")
	dir.Assign("tg1", "a")
	dir.Assign("tg1", "b")
	dir.Assign("tg1", "c")
	dir.Assign("tg9", "stranger")

	if _, err := svc.UpsertStatus(ctx, "a", StatusOnline); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.UpsertStatus(ctx, "b", StatusOffline); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.SetInCall(ctx, "c", "call-9"); err != nil {
		t.Fatalf("set in_call: %v", err)
	}
	if _, err := svc.UpsertStatus(ctx, "stranger", StatusOnline); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	out, err := svc.OnlinePresence(ctx, "sup")
	if err != nil {
		t.Fatalf("online presence: %v", err)
	}
	got := map[string]bool{}
	for _, p := range out {
		got[p.UserID] = true
	}
	if len(got) != 2 || !got["a"] || !got["c"] {
		t.Fatalf("expected a and c visible, got %v", got)
	}
}
