package presence

import (
	"context"
	"log/slog"
	"time"

	"pawmarket/internal/observability"
	"pawmarket/internal/types"
)

// Walker is one online walker, as served to owners browsing for an open call.
type Walker struct {
	ID       types.ID    `json:"id"`
	Position types.Point `json:"position"`
	LastSeen time.Time   `json:"last_seen"`
}

type Service struct {
	store         *Store
	onlineTTL     time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger
}

func NewService(store *Store, onlineTTL, sweepInterval time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:         store,
		onlineTTL:     onlineTTL,
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

func (s *Service) Heartbeat(ctx context.Context, id types.ID, pos types.Point) error {
	return s.store.Heartbeat(ctx, id, pos, time.Now())
}

// ListAvailable returns the online walkers. No ranking: the list is served
// as-is.
func (s *Service) ListAvailable(ctx context.Context) ([]Walker, error) {
	walkers, err := s.store.Online(ctx, s.onlineTTL, time.Now())
	if err != nil {
		return nil, err
	}
	observability.WalkersOnline.Set(float64(len(walkers)))
	return walkers, nil
}

// RunOfflineSweeper periodically flips stale online flags to offline.
func (s *Service) RunOfflineSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.SweepStale(ctx, s.onlineTTL, time.Now())
			if err != nil {
				s.logger.Error("presence sweep failed", "err", err)
				continue
			}
			if removed > 0 {
				s.logger.Info("presence sweep", "flipped_offline", removed)
			}
		}
	}
}
