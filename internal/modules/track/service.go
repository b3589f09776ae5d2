package track

import (
	"context"
	"time"

	"pawmarket/internal/modules/walk"
	"pawmarket/internal/observability"
	"pawmarket/internal/types"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

type IngestCommand struct {
	Caller   walk.Caller
	WalkID   types.ID
	Lat      float64
	Lng      float64
	Speed    float64
	Accuracy float64
}

// IngestResult is intentionally small: the full route is only served on the
// read path.
type IngestResult struct {
	CurrentLocation types.TimedPoint
	TotalDistanceKm float64
	RouteLen        int
}

// Ingest handles one position report from the assigned walker's device. The
// walk must be in progress; distance accumulates from the previous current
// location via great-circle distance; the route buffer is trimmed to its cap
// after append. The write re-checks state, so nothing is mutated if the walk
// left in-progress between our read and write.
func (s *Service) Ingest(ctx context.Context, cmd IngestCommand) (*IngestResult, error) {
	t, err := s.store.Get(ctx, cmd.WalkID)
	if err != nil {
		return nil, err
	}
	if t.WalkerID == nil || *t.WalkerID != cmd.Caller.ID {
		return nil, walk.ErrForbidden
	}
	if t.Status != walk.StatusInProgress {
		return nil, &walk.StateError{Op: "track", Current: t.Status}
	}

	next := types.Point{Lat: cmd.Lat, Lng: cmd.Lng}
	totalKm := t.TotalDistanceKm + distanceStepKm(t.CurrentLocation, next)

	now := time.Now()
	route := appendBounded(t.Route, RoutePoint{
		Lat:       cmd.Lat,
		Lng:       cmd.Lng,
		Timestamp: now,
		Speed:     cmd.Speed,
		Accuracy:  cmd.Accuracy,
	})
	current := types.TimedPoint{Point: next, At: now}

	ok, err := s.store.Update(ctx, cmd.WalkID, cmd.Caller.ID, route, totalKm, current)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The walk left in-progress between read and write.
		live, err := s.store.Get(ctx, cmd.WalkID)
		if err != nil {
			return nil, err
		}
		return nil, &walk.StateError{Op: "track", Current: live.Status}
	}

	observability.LocationUpdatesTotal.Inc()
	return &IngestResult{
		CurrentLocation: current,
		TotalDistanceKm: totalKm,
		RouteLen:        len(route),
	}, nil
}

// Location is the read-path view of a walk's telemetry.
type Location struct {
	CurrentLocation *types.TimedPoint
	Route           []RoutePoint
	TotalDistanceKm float64
	ElapsedSeconds  int64
}

// Read returns the retained route and running distance. Accessible to the
// owner, the assigned walker, or an admin.
func (s *Service) Read(ctx context.Context, caller walk.Caller, walkID types.ID) (*Location, error) {
	t, err := s.store.Get(ctx, walkID)
	if err != nil {
		return nil, err
	}
	authorized := caller.Role == walk.RoleAdmin ||
		t.OwnerID == caller.ID ||
		(t.WalkerID != nil && *t.WalkerID == caller.ID)
	if !authorized {
		return nil, walk.ErrForbidden
	}

	current := t.CurrentLocation
	if current != nil && current.IsZero() {
		current = nil
	}
	return &Location{
		CurrentLocation: current,
		Route:           t.Route,
		TotalDistanceKm: t.TotalDistanceKm,
		ElapsedSeconds:  elapsedSeconds(t.StartedAt, t.CompletedAt, time.Now()),
	}, nil
}
