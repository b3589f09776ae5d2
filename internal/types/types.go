// Package types holds small value objects shared across modules.
package types

import "time"

// ID is an opaque entity identifier.
type ID string

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the point is the unset sentinel (0, 0).
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// Money is an amount in the smallest currency unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// TimedPoint is a coordinate with the instant it was observed.
type TimedPoint struct {
	Point
	At time.Time `json:"at"`
}
