package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pictura/imagegen/internal/metrics"
	"pictura/imagegen/internal/repository"
)

// Sweeper periodically drops expired entries from the state store so
// unqueried status records do not accumulate.
type Sweeper struct {
	store    repository.StateStore
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewSweeper(store repository.StateStore, interval time.Duration, logger *zap.Logger, m *metrics.Collector) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger.With(zap.String("component", "sweeper")),
		metrics:  m,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	n, err := s.store.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("purge expired state failed", zap.Error(err))
		return 0, err
	}
	s.metrics.RecordSwept(n)
	if n > 0 {
		s.logger.Debug("purged expired state", zap.Int("count", n))
	}
	return n, nil
}
