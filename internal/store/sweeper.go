package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically purges expired idempotency records.
type Sweeper struct {
	store    IdempotencyStore
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(store IdempotencyStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	logger := log.With().Str("component", "idempotency_sweeper").Logger()
	logger.Info().Dur("interval", s.interval).Msg("starting idempotency sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down idempotency sweeper")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to purge expired idempotency records")
			}
		}
	}
}

// Sweep deletes every record expired at the current time and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	purged, err := s.store.PurgeExpiredIdempotencyRecords(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		log.Debug().Str("component", "idempotency_sweeper").Int64("purged", purged).Msg("purged expired idempotency records")
	}
	return purged, nil
}
