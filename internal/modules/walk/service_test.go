package walk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pawmarket/internal/notify"
	"pawmarket/internal/types"
)

func TestBookWithPreselectedWalker(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	w, err := svc.Book(ctx, BookCommand{
		Caller:       ownerCaller("o1"),
		PetID:        "pet1",
		PetName:      "Biscuit",
		WalkerID:     &walker,
		ScheduledAt:  time.Now().Add(2 * time.Hour),
		DurationMins: 30,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if w.Status != StatusPending {
		t.Errorf("expected pending, got %s", w.Status)
	}
	if w.WalkerID == nil || *w.WalkerID != walker {
		t.Errorf("expected walker to be set")
	}
	if w.Price.Amount != 300 {
		t.Errorf("expected price 300 for 30 minutes, got %d", w.Price.Amount)
	}
}

func TestBookOpenCall(t *testing.T) {
	svc := newTestService(t)

	id := mustBook(t, svc, "o1", nil)
	w, err := svc.Get(context.Background(), ownerCaller("o1"), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != StatusUnassigned {
		t.Errorf("expected unassigned, got %s", w.Status)
	}
	if w.WalkerID != nil {
		t.Errorf("unassigned walk must have no walker")
	}
}

func TestBookRejectsBadDuration(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, mins := range []int{0, 14, 121, -30} {
		_, err := svc.Book(ctx, BookCommand{
			Caller:       ownerCaller("o1"),
			PetID:        "pet1",
			ScheduledAt:  time.Now().Add(time.Hour),
			DurationMins: mins,
		})
		if !errors.Is(err, ErrBadRequest) {
			t.Errorf("duration %d: expected ErrBadRequest, got %v", mins, err)
		}
	}
}

func TestWalkFlowHappyPath(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	assertStatus(t, svc, id, StatusPending)

	if err := svc.Accept(ctx, AcceptCommand{Caller: walkerCaller(walker), WalkID: id}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	assertStatus(t, svc, id, StatusConfirmed)

	if err := svc.Start(ctx, StartCommand{Caller: walkerCaller(walker), WalkID: id}); err != nil {
		t.Fatalf("start: %v", err)
	}
	assertStatus(t, svc, id, StatusInProgress)

	w, err := svc.Get(ctx, ownerCaller("o1"), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.StartedAt == nil {
		t.Fatal("expected started_at to be set")
	}
	if w.EstimatedEndTime == nil {
		t.Fatal("expected estimated_end_time to be set")
	}
	gotWindow := w.EstimatedEndTime.Sub(*w.StartedAt)
	wantWindow := time.Duration(w.DurationMins) * time.Minute
	if gotWindow != wantWindow {
		t.Errorf("estimated end window = %s, want %s", gotWindow, wantWindow)
	}

	if err := svc.Complete(ctx, CompleteCommand{Caller: walkerCaller(walker), WalkID: id}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertStatus(t, svc, id, StatusCompleted)

	w, err = svc.Get(ctx, ownerCaller("o1"), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.CompletedAt == nil || w.ActualDuration == nil {
		t.Fatal("expected completion telemetry to be set")
	}
	if w.CancelledAt != nil {
		t.Fatal("a completed walk must not be cancelled")
	}
}

func TestAcceptUnassignedClaims(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustBook(t, svc, "o1", nil)
	if err := svc.Accept(ctx, AcceptCommand{Caller: walkerCaller("w9"), WalkID: id}); err != nil {
		t.Fatalf("accept unassigned: %v", err)
	}
	w, err := svc.Get(ctx, walkerCaller("w9"), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != StatusConfirmed {
		t.Errorf("expected confirmed, got %s", w.Status)
	}
	if w.WalkerID == nil || *w.WalkerID != "w9" {
		t.Errorf("expected walker w9, got %v", w.WalkerID)
	}
}

func TestAcceptPendingByOtherWalkerForbidden(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	err := svc.Accept(ctx, AcceptCommand{Caller: walkerCaller("w2"), WalkID: id})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	assertStatus(t, svc, id, StatusPending)
}

func TestDecline(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	if err := svc.Decline(ctx, DeclineCommand{Caller: walkerCaller(walker), WalkID: id}); err != nil {
		t.Fatalf("decline: %v", err)
	}
	w, err := svc.Get(ctx, ownerCaller("o1"), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", w.Status)
	}
	if w.CancellationReason == nil || *w.CancellationReason != "Declined by walker" {
		t.Errorf("expected fixed decline reason, got %v", w.CancellationReason)
	}
}

// Completing twice must fail with a state conflict naming the live status,
// not silently re-complete.
func TestCompleteTwiceConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	mustTransition(t, svc, id, walker, "accept", "start", "complete")

	err := svc.Complete(ctx, CompleteCommand{Caller: walkerCaller(walker), WalkID: id})
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if stateErr.Current != StatusCompleted {
		t.Errorf("conflict should cite completed, got %s", stateErr.Current)
	}
}

func TestCancelAfterCompleteConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	mustTransition(t, svc, id, walker, "accept", "start", "complete")

	err := svc.Cancel(ctx, CancelCommand{Caller: ownerCaller("o1"), WalkID: id})
	var stateErr *StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if stateErr.Current != StatusCompleted {
		t.Errorf("conflict should cite completed, got %s", stateErr.Current)
	}
}

// Owners cannot pull a walk out from under the walker mid-walk.
func TestCancelByOwnerInProgressRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	mustTransition(t, svc, id, walker, "accept", "start")

	err := svc.CancelByOwner(ctx, CancelCommand{Caller: ownerCaller("o1"), WalkID: id})
	if err == nil {
		t.Fatal("expected error")
	}
	want := "cannot cancel walk with status: in-progress"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	assertStatus(t, svc, id, StatusInProgress)
}

func TestCancelByOwnerBeforeStart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	mustTransition(t, svc, id, walker, "accept")

	if err := svc.CancelByOwner(ctx, CancelCommand{Caller: ownerCaller("o1"), WalkID: id}); err != nil {
		t.Fatalf("cancel-by-owner: %v", err)
	}
	assertStatus(t, svc, id, StatusCancelled)
}

func TestGenericCancelByWalkerMidWalk(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	mustTransition(t, svc, id, walker, "accept", "start")

	if err := svc.Cancel(ctx, CancelCommand{Caller: walkerCaller(walker), WalkID: id, Reason: "dog bolted"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	assertStatus(t, svc, id, StatusCancelled)
}

func TestCancelByStrangerForbidden(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustBook(t, svc, "o1", nil)
	err := svc.Cancel(ctx, CancelCommand{Caller: ownerCaller("o2"), WalkID: id})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetUnknownWalk(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), ownerCaller("o1"), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventLogRecordsTransitions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	mustTransition(t, svc, id, walker, "accept", "start", "complete")

	events, err := svc.Events(ctx, Caller{Role: RoleAdmin}, id)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	want := []Status{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, e := range events {
		if e.ToStatus != want[i] {
			t.Errorf("event %d: to_status = %s, want %s", i, e.ToStatus, want[i])
		}
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *recordingSink) Publish(e notify.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) last(t *testing.T) notify.Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		t.Fatal("no events published")
	}
	return s.events[len(s.events)-1]
}

// A walker-initiated cancel must publish an event naming the walker as the
// actor so the dispatcher notifies the owner, not the walker who cancelled.
func TestCancelPublishesActor(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(setupTestStore(t), stubPricing{}, nil, sink)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	mustTransition(t, svc, id, walker, "accept")

	if err := svc.Cancel(ctx, CancelCommand{Caller: walkerCaller(walker), WalkID: id}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	e := sink.last(t)
	if e.Transition != "cancel" {
		t.Fatalf("transition = %s, want cancel", e.Transition)
	}
	if e.Actor != "walker" {
		t.Errorf("actor = %q, want walker", e.Actor)
	}
	if e.OwnerID != "o1" || e.WalkerID != "w1" {
		t.Errorf("parties = %s/%s, want o1/w1", e.OwnerID, e.WalkerID)
	}
}

func TestCancelByOwnerPublishesActor(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(setupTestStore(t), stubPricing{}, nil, sink)
	ctx := context.Background()

	walker := types.ID("w1")
	id := mustBook(t, svc, "o1", &walker)
	mustTransition(t, svc, id, walker, "accept")

	if err := svc.CancelByOwner(ctx, CancelCommand{Caller: ownerCaller("o1"), WalkID: id}); err != nil {
		t.Fatalf("cancel-by-owner: %v", err)
	}
	if e := sink.last(t); e.Actor != "owner" {
		t.Errorf("actor = %q, want owner", e.Actor)
	}
}

func mustTransition(t *testing.T, svc *Service, id types.ID, walker types.ID, ops ...string) {
	t.Helper()
	ctx := context.Background()
	for _, op := range ops {
		var err error
		switch op {
		case "accept":
			err = svc.Accept(ctx, AcceptCommand{Caller: walkerCaller(walker), WalkID: id})
		case "start":
			err = svc.Start(ctx, StartCommand{Caller: walkerCaller(walker), WalkID: id})
		case "complete":
			err = svc.Complete(ctx, CompleteCommand{Caller: walkerCaller(walker), WalkID: id})
		}
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
	}
}
