package ranking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/observability"
	"token-risk-monitor/internal/registry"
	"token-risk-monitor/internal/storage"
)

// Sweeper removes expired registry entries and their persisted snapshots.
type Sweeper struct {
	registry *registry.Registry
	store    storage.SnapshotStore // optional
	logger   *logrus.Entry
	now      func() time.Time
}

// NewSweeper creates a sweeper. store may be nil.
func NewSweeper(reg *registry.Registry, store storage.SnapshotStore, logger *logrus.Logger) *Sweeper {
	return &Sweeper{
		registry: reg,
		store:    store,
		logger:   logging.Component(logger, "sweeper"),
		now:      time.Now,
	}
}

// SweepOnce expires entries not seen within the registry TTL as of now and
// returns their ids. Store deletion failures are logged and not retried.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) []string {
	expired := s.registry.Sweep(now)
	if len(expired) == 0 {
		return nil
	}

	observability.RecordExpired(len(expired))
	observability.UpdateRegistrySize(s.registry.Len())

	if s.store != nil {
		for _, id := range expired {
			s.deleteExpired(ctx, id)
		}
	}

	s.logger.WithField("expired", len(expired)).Info("expired stale tokens")
	return expired
}

// deleteExpired removes id from the store unless it was re-ingested after the
// sweep, in which case the ingester's write must stand.
func (s *Sweeper) deleteExpired(ctx context.Context, id string) {
	unlock := s.registry.LockID(id)
	defer unlock()

	if _, ok := s.registry.Get(id); ok {
		s.logger.WithField("id", id).Debug("token re-ingested, keeping persisted snapshot")
		return
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.WithField("id", id).WithError(err).Error("delete expired snapshot")
	}
}

// Run sweeps every interval until ctx is cancelled. A registry without a TTL
// makes Run a no-op that waits for cancellation.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if s.registry.TTL() <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx, s.now())
		}
	}
}
