// Package maps wraps the Google Maps client for best-effort geocoding of
// free-text pickup addresses.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"pawmarket/internal/types"
)

type GeocodeService struct {
	client *maps.Client
}

func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Geocode resolves an address to coordinates. Failures are swallowed: a walk
// booking must never fail because geocoding did.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (types.Point, bool) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil || len(results) == 0 {
		return types.Point{}, false
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, true
}
