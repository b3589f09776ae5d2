package track

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pawmarket/internal/modules/walk"
	"pawmarket/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Tracking is the slice of the walk record this module reads and writes.
type Tracking struct {
	WalkID          types.ID
	Status          walk.Status
	OwnerID         types.ID
	WalkerID        *types.ID
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CurrentLocation *types.TimedPoint
	Route           []RoutePoint
	TotalDistanceKm float64
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Tracking, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, status, owner_id, walker_id, started_at, completed_at,
		       current_lat, current_lng, current_at, route, total_distance_km
		FROM walks
		WHERE id = $1`, string(id))

	var t Tracking
	var walkerID sql.NullString
	var startedAt, completedAt, currentAt sql.NullTime
	var currentLat, currentLng sql.NullFloat64
	var routeJSON []byte

	err := row.Scan(
		&t.WalkID, &t.Status, &t.OwnerID, &walkerID, &startedAt, &completedAt,
		&currentLat, &currentLng, &currentAt, &routeJSON, &t.TotalDistanceKm,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, walk.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if walkerID.Valid {
		v := types.ID(walkerID.String)
		t.WalkerID = &v
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if currentAt.Valid && currentLat.Valid && currentLng.Valid {
		t.CurrentLocation = &types.TimedPoint{
			Point: types.Point{Lat: currentLat.Float64, Lng: currentLng.Float64},
			At:    currentAt.Time,
		}
	}
	if len(routeJSON) > 0 {
		if err := json.Unmarshal(routeJSON, &t.Route); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// Update persists the accumulated route, distance, and current location. The
// WHERE clause re-checks in-progress status and the assigned walker at write
// time, so a racing completion or cancellation makes this a no-op instead of
// corrupting a terminal walk.
func (s *Store) Update(ctx context.Context, id, walkerID types.ID, route []RoutePoint, totalKm float64, current types.TimedPoint) (bool, error) {
	routeJSON, err := json.Marshal(route)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE walks
		SET route = $1,
		    total_distance_km = $2,
		    current_lat = $3,
		    current_lng = $4,
		    current_at = $5
		WHERE id = $6 AND status = 'in-progress' AND walker_id = $7`,
		routeJSON,
		totalKm,
		current.Lat,
		current.Lng,
		current.At,
		string(id),
		string(walkerID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
