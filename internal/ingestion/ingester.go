package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/observability"
	"token-risk-monitor/internal/registry"
	"token-risk-monitor/internal/storage"
)

// Ingester decodes inbound payloads and upserts the snapshots they carry.
// It is safe for concurrent use; every connection shares one Ingester.
type Ingester struct {
	registry *registry.Registry
	store    storage.SnapshotStore // optional write-through persistence
	logger   *logrus.Entry
}

// IngesterOptions contains configuration for creating an Ingester.
type IngesterOptions struct {
	Registry *registry.Registry
	Store    storage.SnapshotStore // nil disables persistence
	Logger   *logrus.Logger
}

// Result summarises one ingested payload.
type Result struct {
	Received int         // records in the batch array
	Accepted []string    // ids upserted, in batch order
	Skipped  []ItemError // records that failed to decode
}

// NewIngester creates a new ingester.
func NewIngester(opts IngesterOptions) *Ingester {
	reg := opts.Registry
	if reg == nil {
		reg = registry.New(registry.Options{})
	}
	return &Ingester{
		registry: reg,
		store:    opts.Store,
		logger:   logging.Component(opts.Logger, "ingester"),
	}
}

// Registry returns the registry the ingester writes to.
func (i *Ingester) Registry() *registry.Registry {
	return i.registry
}

// Ingest decodes payload and upserts every valid snapshot.
//
// Batch-level failures (malformed JSON, wrong shape) are returned and nothing
// is upserted. Item-level failures are reported in Result.Skipped. Persistence
// failures are logged and counted but never fail ingestion; the registry stays
// the source of truth.
func (i *Ingester) Ingest(ctx context.Context, payload []byte) (*Result, error) {
	start := time.Now()
	observability.RecordFrameReceived()

	batch, err := DecodeBatch(payload)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrBatchShape) {
			reason = "shape"
		}
		observability.RecordBatchError(reason)
		return nil, err
	}

	result := &Result{
		Received: batch.Size,
		Accepted: make([]string, 0, len(batch.Snapshots)),
		Skipped:  batch.Skipped,
	}

	for _, skipped := range batch.Skipped {
		observability.RecordItemSkipped(skipped.reason())
		i.logger.WithFields(logrus.Fields{
			"index": skipped.Index,
			"id":    skipped.ID,
		}).WithError(skipped.Err).Warn("skipping token record")
	}

	for _, snap := range batch.Snapshots {
		if i.upsert(ctx, snap) {
			result.Accepted = append(result.Accepted, snap.ID)
		}
	}

	observability.RecordBatch(len(result.Accepted), time.Since(start))
	observability.UpdateRegistrySize(i.registry.Len())

	if batch.Size > 0 {
		i.logger.WithFields(logrus.Fields{
			"received": batch.Size,
			"accepted": len(result.Accepted),
			"skipped":  len(result.Skipped),
		}).Debug("batch ingested")
	}
	return result, nil
}

// upsert writes snap to the registry and then the store while holding the
// id lock, so concurrent writers and the sweeper cannot reorder the two.
func (i *Ingester) upsert(ctx context.Context, snap *domain.TokenSnapshot) bool {
	if i.store == nil {
		return i.registry.Upsert(snap)
	}

	unlock := i.registry.LockID(snap.ID)
	defer unlock()

	if !i.registry.Upsert(snap) {
		return false
	}
	err := i.store.Upsert(ctx, snap)
	observability.RecordSnapshotPersist(err)
	if err != nil {
		i.logger.WithField("id", snap.ID).WithError(err).Error("persist snapshot")
	}
	return true
}
