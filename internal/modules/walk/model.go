// Package walk implements the booking lifecycle: the status state machine,
// the unassigned-walk claim, and persistence of the walk record.
package walk

import (
	"time"

	"pawmarket/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusUnassigned Status = "unassigned"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transitions are valid from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Walk is the central aggregate. One record per booking; never hard-deleted.
type Walk struct {
	ID      types.ID
	PetID   types.ID
	PetName string

	OwnerID  types.ID
	WalkerID *types.ID // nil means unassigned

	Status        Status
	StatusVersion int

	ScheduledAt  time.Time
	DurationMins int
	Price        types.Money

	SpecialInstructions string
	PickupLocation      string
	DropoffLocation     string
	PickupPoint         *types.Point // geocoded from PickupLocation, best-effort

	StartedAt        *time.Time
	EstimatedEndTime *time.Time
	CompletedAt      *time.Time
	ActualDuration   *int // minutes

	CurrentLocation *types.TimedPoint
	TotalDistanceKm float64

	CancelledBy        *types.ID
	CancelledAt        *time.Time
	CancellationReason *string

	CreatedAt time.Time
}

// Event is one row of the append-only transition log.
type Event struct {
	ID         int64
	WalkID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the walk state flow as code. Terminal states
// have no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusUnassigned: {StatusConfirmed, StatusCancelled},
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
