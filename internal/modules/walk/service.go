package walk

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pawmarket/internal/notify"
	"pawmarket/internal/observability"
	"pawmarket/internal/types"
)

// Pricing quotes a walk price from its duration.
type Pricing interface {
	Quote(durationMins int) (types.Money, error)
}

// Geocoder resolves a free-text address to coordinates, best-effort.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, bool)
}

// EventSink receives committed-transition events for side-effect fan-out.
type EventSink interface {
	Publish(notify.Event)
}

type Service struct {
	store    *Store
	pricing  Pricing
	geocoder Geocoder
	events   EventSink
}

func NewService(store *Store, pricing Pricing, geocoder Geocoder, events EventSink) *Service {
	return &Service{store: store, pricing: pricing, geocoder: geocoder, events: events}
}

// Caller is the authenticated identity performing an operation. Role checks
// happen at the transport edge; ownership checks happen here, against the
// live record.
type Caller struct {
	ID   types.ID
	Role Role
}

type BookCommand struct {
	Caller              Caller
	PetID               types.ID
	PetName             string
	WalkerID            *types.ID // pre-selected walker, optional
	ScheduledAt         time.Time
	DurationMins        int
	SpecialInstructions string
	PickupLocation      string
	DropoffLocation     string
}

type AcceptCommand struct {
	Caller Caller
	WalkID types.ID
}

type DeclineCommand struct {
	Caller Caller
	WalkID types.ID
}

type StartCommand struct {
	Caller Caller
	WalkID types.ID
}

type CompleteCommand struct {
	Caller Caller
	WalkID types.ID
}

type CancelCommand struct {
	Caller Caller
	WalkID types.ID
	Reason string
}

const declineReason = "Declined by walker"

func (s *Service) Book(ctx context.Context, cmd BookCommand) (*Walk, error) {
	if cmd.Caller.ID == "" || cmd.PetID == "" || cmd.ScheduledAt.IsZero() {
		return nil, ErrBadRequest
	}
	price, err := s.pricing.Quote(cmd.DurationMins)
	if err != nil {
		return nil, ErrBadRequest
	}

	status := StatusUnassigned
	if cmd.WalkerID != nil && *cmd.WalkerID != "" {
		status = StatusPending
	} else {
		cmd.WalkerID = nil
	}

	w := &Walk{
		ID:                  types.ID(uuid.NewString()),
		PetID:               cmd.PetID,
		PetName:             cmd.PetName,
		OwnerID:             cmd.Caller.ID,
		WalkerID:            cmd.WalkerID,
		Status:              status,
		StatusVersion:       0,
		ScheduledAt:         cmd.ScheduledAt,
		DurationMins:        cmd.DurationMins,
		Price:               price,
		SpecialInstructions: cmd.SpecialInstructions,
		PickupLocation:      cmd.PickupLocation,
		DropoffLocation:     cmd.DropoffLocation,
		CreatedAt:           time.Now(),
	}
	if s.geocoder != nil && cmd.PickupLocation != "" {
		if pt, ok := s.geocoder.Geocode(ctx, cmd.PickupLocation); ok {
			w.PickupPoint = &pt
		}
	}
	if err := s.store.Create(ctx, w); err != nil {
		return nil, err
	}
	s.recordTransition(ctx, w, StatusNone, status, "owner", &cmd.Caller.ID, "book")
	return w, nil
}

// Accept resolves both accept cases: a pre-selected walker confirming their
// pending walk, and any walker claiming an unassigned walk. The claim goes
// through the store's compare-and-set so exactly one concurrent caller wins;
// the losers get ErrConflict and must re-fetch.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) error {
	w, err := s.store.Get(ctx, cmd.WalkID)
	if err != nil {
		return s.reject("accept", err)
	}

	if w.Status == StatusUnassigned {
		ok, err := s.store.Claim(ctx, w.ID, cmd.Caller.ID)
		if err != nil {
			return err
		}
		if !ok {
			observability.WalkTransitionsTotal.WithLabelValues("accept", "conflict").Inc()
			return ErrConflict
		}
		s.recordTransition(ctx, w, StatusUnassigned, StatusConfirmed, "walker", &cmd.Caller.ID, "accept")
		return nil
	}

	if w.WalkerID == nil || *w.WalkerID != cmd.Caller.ID {
		return s.reject("accept", ErrForbidden)
	}
	if w.Status != StatusPending {
		return s.reject("accept", stateErr("accept", w.Status))
	}
	return s.transition(ctx, w, StatusConfirmed, "walker", &cmd.Caller.ID, "accept", nil, nil)
}

func (s *Service) Decline(ctx context.Context, cmd DeclineCommand) error {
	w, err := s.store.Get(ctx, cmd.WalkID)
	if err != nil {
		return s.reject("decline", err)
	}
	if w.WalkerID == nil || *w.WalkerID != cmd.Caller.ID {
		return s.reject("decline", ErrForbidden)
	}
	if w.Status != StatusPending {
		return s.reject("decline", stateErr("decline", w.Status))
	}
	reason := declineReason
	return s.transition(ctx, w, StatusCancelled, "walker", &cmd.Caller.ID, "decline", &cmd.Caller.ID, &reason)
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) error {
	w, err := s.store.Get(ctx, cmd.WalkID)
	if err != nil {
		return s.reject("start", err)
	}
	if w.WalkerID == nil || *w.WalkerID != cmd.Caller.ID {
		return s.reject("start", ErrForbidden)
	}
	if w.Status != StatusConfirmed {
		return s.reject("start", stateErr("start", w.Status))
	}
	return s.transition(ctx, w, StatusInProgress, "walker", &cmd.Caller.ID, "start", nil, nil)
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) error {
	w, err := s.store.Get(ctx, cmd.WalkID)
	if err != nil {
		return s.reject("complete", err)
	}
	if w.WalkerID == nil || *w.WalkerID != cmd.Caller.ID {
		return s.reject("complete", ErrForbidden)
	}
	if w.Status != StatusInProgress {
		return s.reject("complete", stateErr("complete", w.Status))
	}
	return s.transition(ctx, w, StatusCompleted, "walker", &cmd.Caller.ID, "complete", nil, nil)
}

// Cancel is the generic cancellation: owner or assigned walker, from any
// non-terminal state.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	w, err := s.store.Get(ctx, cmd.WalkID)
	if err != nil {
		return s.reject("cancel", err)
	}
	isOwner := w.OwnerID == cmd.Caller.ID
	isWalker := w.WalkerID != nil && *w.WalkerID == cmd.Caller.ID
	if !isOwner && !isWalker {
		return s.reject("cancel", ErrForbidden)
	}
	if w.Status.IsTerminal() {
		return s.reject("cancel", stateErr("cancel", w.Status))
	}
	actorType := "owner"
	if isWalker && !isOwner {
		actorType = "walker"
	}
	reason := cmd.Reason
	if reason == "" {
		reason = "Cancelled by " + actorType
	}
	return s.transition(ctx, w, StatusCancelled, actorType, &cmd.Caller.ID, "cancel", &cmd.Caller.ID, &reason)
}

// CancelByOwner is the owner-facing endpoint: in-progress walks cannot be
// cancelled out from under the walker.
func (s *Service) CancelByOwner(ctx context.Context, cmd CancelCommand) error {
	w, err := s.store.Get(ctx, cmd.WalkID)
	if err != nil {
		return s.reject("cancel", err)
	}
	if w.OwnerID != cmd.Caller.ID {
		return s.reject("cancel", ErrForbidden)
	}
	if w.Status == StatusInProgress || w.Status.IsTerminal() {
		return s.reject("cancel", stateErr("cancel", w.Status))
	}
	reason := cmd.Reason
	if reason == "" {
		reason = "Cancelled by owner"
	}
	return s.transition(ctx, w, StatusCancelled, "owner", &cmd.Caller.ID, "cancel", &cmd.Caller.ID, &reason)
}

// Get returns one walk. Admins may read any walk; owners and walkers only
// their own. Unauthorized callers learn nothing beyond "not authorized".
func (s *Service) Get(ctx context.Context, caller Caller, id types.ID) (*Walk, error) {
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == RoleAdmin {
		return w, nil
	}
	if w.OwnerID == caller.ID || (w.WalkerID != nil && *w.WalkerID == caller.ID) {
		return w, nil
	}
	return nil, ErrForbidden
}

// List returns the caller's walks per the role-keyed query rules.
func (s *Service) List(ctx context.Context, caller Caller, statusFilter Status) ([]*Walk, error) {
	return s.store.List(ctx, ListQuery{
		Role:         caller.Role,
		CallerID:     caller.ID,
		StatusFilter: statusFilter,
	})
}

// Events returns the append-only transition log for one walk.
func (s *Service) Events(ctx context.Context, caller Caller, id types.ID) ([]Event, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

// transition re-validates against the transition table, performs the
// conditional write, and records the committed change. A failed conditional
// write means a concurrent request changed the walk after our read; the
// caller gets a conflict naming the state it should re-fetch.
func (s *Service) transition(ctx context.Context, w *Walk, to Status, actorType string, actorID *types.ID, op string, cancelledBy *types.ID, cancelReason *string) error {
	if !CanTransition(w.Status, to) {
		return s.reject(op, stateErr(op, w.Status))
	}
	ok, err := s.store.UpdateStatus(ctx, w.ID, w.Status, to, w.StatusVersion, cancelledBy, cancelReason)
	if err != nil {
		return err
	}
	if !ok {
		observability.WalkTransitionsTotal.WithLabelValues(op, "conflict").Inc()
		return ErrConflict
	}
	s.recordTransition(ctx, w, w.Status, to, actorType, actorID, op)
	return nil
}

// recordTransition appends to the event log and publishes to the side-effect
// bus. Both are best-effort after the commit: the transition is the source of
// truth and is already durable.
func (s *Service) recordTransition(ctx context.Context, w *Walk, from, to Status, actorType string, actorID *types.ID, op string) {
	observability.WalkTransitionsTotal.WithLabelValues(op, "ok").Inc()
	_ = s.store.AppendEvent(ctx, &Event{
		WalkID:     w.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
	if s.events == nil {
		return
	}
	walkerID := ""
	if w.WalkerID != nil {
		walkerID = string(*w.WalkerID)
	}
	if to == StatusConfirmed && actorType == "walker" && actorID != nil {
		walkerID = string(*actorID)
	}
	s.events.Publish(notify.Event{
		WalkID:     string(w.ID),
		Transition: op,
		From:       string(from),
		To:         string(to),
		OwnerID:    string(w.OwnerID),
		WalkerID:   walkerID,
		Actor:      actorType,
		PetName:    w.PetName,
		OccurredAt: time.Now(),
	})
}

func (s *Service) reject(op string, err error) error {
	observability.WalkTransitionsTotal.WithLabelValues(op, "rejected").Inc()
	return err
}
