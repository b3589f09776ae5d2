// Package track ingests GPS reports during an in-progress walk and maintains
// the bounded route buffer and running distance on the walk record.
package track

import (
	"time"

	"pawmarket/internal/geo"
	"pawmarket/internal/types"
)

// MaxRoutePoints bounds the retained route. When a walk outlives the buffer,
// the oldest samples are dropped, never the newest.
const MaxRoutePoints = 500

// RoutePoint is one retained GPS sample.
type RoutePoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"ts"`
	Speed     float64   `json:"speed"`
	Accuracy  float64   `json:"accuracy"`
}

// appendBounded appends pt and trims from the front until the route fits the
// buffer again. Order is preserved: timestamps stay ascending.
func appendBounded(route []RoutePoint, pt RoutePoint) []RoutePoint {
	route = append(route, pt)
	if n := len(route); n > MaxRoutePoints {
		route = route[n-MaxRoutePoints:]
	}
	return route
}

// distanceStepKm returns the distance contributed by moving from prev to
// next. The first report after start, and any report following the zero
// sentinel, contributes nothing.
func distanceStepKm(prev *types.TimedPoint, next types.Point) float64 {
	if prev == nil || prev.IsZero() {
		return 0
	}
	return geo.HaversineKm(prev.Lat, prev.Lng, next.Lat, next.Lng)
}

// elapsedSeconds is the walk's running time: completion freezes the clock,
// otherwise it runs against now.
func elapsedSeconds(startedAt, completedAt *time.Time, now time.Time) int64 {
	if startedAt == nil {
		return 0
	}
	end := now
	if completedAt != nil {
		end = *completedAt
	}
	return int64(end.Sub(*startedAt).Seconds())
}
