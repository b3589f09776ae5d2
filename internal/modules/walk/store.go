package walk

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pawmarket/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const walkColumns = `
	id, pet_id, pet_name, owner_id, walker_id, status, status_version,
	scheduled_at, duration_mins, price, currency,
	special_instructions, pickup_location, dropoff_location, pickup_lat, pickup_lng,
	started_at, estimated_end_time, completed_at, actual_duration_mins,
	current_lat, current_lng, current_at, total_distance_km,
	cancelled_by, cancelled_at, cancellation_reason, created_at`

func (s *Store) Create(ctx context.Context, w *Walk) error {
	var pickupLat, pickupLng *float64
	if w.PickupPoint != nil {
		pickupLat, pickupLng = &w.PickupPoint.Lat, &w.PickupPoint.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO walks (
			id, pet_id, pet_name, owner_id, walker_id, status, status_version,
			scheduled_at, duration_mins, price, currency,
			special_instructions, pickup_location, dropoff_location, pickup_lat, pickup_lng,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			$17
		)`,
		string(w.ID),
		string(w.PetID),
		w.PetName,
		string(w.OwnerID),
		idToStringPtr(w.WalkerID),
		string(w.Status),
		w.StatusVersion,
		w.ScheduledAt,
		w.DurationMins,
		w.Price.Amount,
		w.Price.Currency,
		w.SpecialInstructions,
		w.PickupLocation,
		w.DropoffLocation,
		pickupLat, pickupLng,
		w.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Walk, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walkColumns+` FROM walks WHERE id = $1`, string(id))
	w, err := scanWalk(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// UpdateStatus performs the conditional transition write: the row is updated
// only if its persisted status and version still match what the caller read.
// Returns false when another request changed the walk first.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, cancelledBy *types.ID, cancelReason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE walks
		SET status = $1,
		    status_version = status_version + 1,
		    started_at = CASE WHEN $1 = 'in-progress' THEN NOW() ELSE started_at END,
		    estimated_end_time = CASE WHEN $1 = 'in-progress' THEN NOW() + duration_mins * INTERVAL '1 minute' ELSE estimated_end_time END,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    actual_duration_mins = CASE WHEN $1 = 'completed' THEN ROUND(EXTRACT(EPOCH FROM (NOW() - started_at)) / 60)::int ELSE actual_duration_mins END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancelled_by = CASE WHEN $1 = 'cancelled' THEN $2 ELSE cancelled_by END,
		    cancellation_reason = CASE WHEN $1 = 'cancelled' THEN $3 ELSE cancellation_reason END
		WHERE id = $4 AND status = $5 AND status_version = $6`,
		string(to),
		idToStringPtr(cancelledBy),
		cancelReason,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Claim atomically assigns an unassigned walk to walkerID. The WHERE clause
// is the compare-and-set: it only matches while the walk is still unassigned
// with no walker, so at most one concurrent caller observes RowsAffected==1.
func (s *Store) Claim(ctx context.Context, id, walkerID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE walks
		SET walker_id = $1,
		    status = 'confirmed',
		    status_version = status_version + 1
		WHERE id = $2 AND status = 'unassigned' AND walker_id IS NULL`,
		string(walkerID),
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO walk_state_events (
			walk_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.WalkID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		idToStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) ListEvents(ctx context.Context, walkID types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, walk_id, from_status, to_status, actor_type, actor_id, created_at
		FROM walk_state_events
		WHERE walk_id = $1
		ORDER BY id`, string(walkID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var actorID sql.NullString
		if err := rows.Scan(&e.ID, &e.WalkID, &e.FromStatus, &e.ToStatus, &e.ActorType, &actorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actorID.Valid {
			v := types.ID(actorID.String)
			e.ActorID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// List runs a role-keyed query built by a ListQuery (see query.go).
func (s *Store) List(ctx context.Context, q ListQuery) ([]*Walk, error) {
	sqlText, args := q.Build()
	rows, err := s.db.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Walk
	for rows.Next() {
		w, err := scanWalk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWalk(row rowScanner) (*Walk, error) {
	var w Walk
	var walkerID, cancelledBy, cancelReason sql.NullString
	var pickupLat, pickupLng sql.NullFloat64
	var startedAt, estimatedEnd, completedAt, cancelledAt, currentAt sql.NullTime
	var actualDuration sql.NullInt32
	var currentLat, currentLng sql.NullFloat64

	err := row.Scan(
		&w.ID, &w.PetID, &w.PetName, &w.OwnerID, &walkerID, &w.Status, &w.StatusVersion,
		&w.ScheduledAt, &w.DurationMins, &w.Price.Amount, &w.Price.Currency,
		&w.SpecialInstructions, &w.PickupLocation, &w.DropoffLocation, &pickupLat, &pickupLng,
		&startedAt, &estimatedEnd, &completedAt, &actualDuration,
		&currentLat, &currentLng, &currentAt, &w.TotalDistanceKm,
		&cancelledBy, &cancelledAt, &cancelReason, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if walkerID.Valid {
		v := types.ID(walkerID.String)
		w.WalkerID = &v
	}
	if pickupLat.Valid && pickupLng.Valid {
		w.PickupPoint = &types.Point{Lat: pickupLat.Float64, Lng: pickupLng.Float64}
	}
	w.StartedAt = timePtr(startedAt)
	w.EstimatedEndTime = timePtr(estimatedEnd)
	w.CompletedAt = timePtr(completedAt)
	w.CancelledAt = timePtr(cancelledAt)
	if actualDuration.Valid {
		v := int(actualDuration.Int32)
		w.ActualDuration = &v
	}
	if currentAt.Valid && currentLat.Valid && currentLng.Valid {
		w.CurrentLocation = &types.TimedPoint{
			Point: types.Point{Lat: currentLat.Float64, Lng: currentLng.Float64},
			At:    currentAt.Time,
		}
	}
	if cancelledBy.Valid {
		v := types.ID(cancelledBy.String)
		w.CancelledBy = &v
	}
	if cancelReason.Valid {
		w.CancellationReason = &cancelReason.String
	}
	return &w, nil
}

func idToStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
