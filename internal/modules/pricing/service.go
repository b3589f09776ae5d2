// Package pricing computes walk prices from duration at a fixed
// per-30-minute rate.
package pricing

import (
	"errors"

	"pawmarket/internal/types"
)

var ErrDurationOutOfRange = errors.New("duration out of range")

type Service struct {
	ratePer30Min int64
	currency     string
}

func NewService(ratePer30Min int64, currency string) *Service {
	return &Service{ratePer30Min: ratePer30Min, currency: currency}
}

// Quote prices a walk. Duration must be within [15, 120] minutes; the price
// scales linearly with duration at the per-30-minute rate.
func (s *Service) Quote(durationMins int) (types.Money, error) {
	if durationMins < 15 || durationMins > 120 {
		return types.Money{}, ErrDurationOutOfRange
	}
	return types.Money{
		Amount:   s.ratePer30Min * int64(durationMins) / 30,
		Currency: s.currency,
	}, nil
}
