// Package presence tracks which walkers are online, backed by Redis: a GEO
// set for positions and a hash of last-seen timestamps.
package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pawmarket/internal/types"
)

const (
	walkerGeoKey      = "presence:walkers"
	walkerLastSeenKey = "presence:walkers:last_seen"
)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) Heartbeat(ctx context.Context, id types.ID, pos types.Point, at time.Time) error {
	pipe := s.redis.Pipeline()
	pipe.GeoAdd(ctx, walkerGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	})
	pipe.HSet(ctx, walkerLastSeenKey, string(id), at.UnixMilli())
	_, err := pipe.Exec(ctx)
	return err
}

// Online returns walkers whose last heartbeat is within ttl.
func (s *Store) Online(ctx context.Context, ttl time.Duration, now time.Time) ([]Walker, error) {
	seen, err := s.redis.HGetAll(ctx, walkerLastSeenKey).Result()
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-ttl).UnixMilli()

	var out []Walker
	for id, raw := range seen {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < cutoff {
			continue
		}
		w := Walker{ID: types.ID(id), LastSeen: time.UnixMilli(ms)}
		pos, err := s.redis.GeoPos(ctx, walkerGeoKey, id).Result()
		if err == nil && len(pos) == 1 && pos[0] != nil {
			w.Position = types.Point{Lat: pos[0].Latitude, Lng: pos[0].Longitude}
		}
		out = append(out, w)
	}
	return out, nil
}

// SweepStale removes walkers whose last heartbeat is older than ttl and
// returns how many were flipped offline.
func (s *Store) SweepStale(ctx context.Context, ttl time.Duration, now time.Time) (int, error) {
	seen, err := s.redis.HGetAll(ctx, walkerLastSeenKey).Result()
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-ttl).UnixMilli()

	removed := 0
	for id, raw := range seen {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && ms >= cutoff {
			continue
		}
		pipe := s.redis.Pipeline()
		pipe.ZRem(ctx, walkerGeoKey, id)
		pipe.HDel(ctx, walkerLastSeenKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
