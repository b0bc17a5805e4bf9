package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/domain"
	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/observability"
	"token-risk-monitor/internal/publish"
	"token-risk-monitor/internal/storage"
)

// Pass is the result of one refresh pass.
type Pass struct {
	At      time.Time
	Scheme  string
	Tokens  []RankedToken // every tracked token, in ranking order
	Expired []string
}

// Records returns the score history records of the pass.
func (p *Pass) Records() []*domain.ScoreRecord {
	records := make([]*domain.ScoreRecord, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		records = append(records, t.Record(p.Scheme, p.At))
	}
	return records
}

// ReportWriter exports a pass, e.g. as report files.
type ReportWriter interface {
	WriteReport(ctx context.Context, pass *Pass) error
}

// Refresher periodically scores the whole registry and exports the result.
type Refresher struct {
	ranker    *Ranker
	sweeper   *Sweeper
	scores    storage.ScoreStore
	publisher publish.Publisher
	reports   ReportWriter
	interval  time.Duration
	logger    *logrus.Entry
	now       func() time.Time

	// State
	mu      sync.Mutex
	lastRun time.Time
	runs    int
}

// RefresherOptions contains configuration for creating a Refresher.
// Every sink is optional.
type RefresherOptions struct {
	Ranker    *Ranker
	Sweeper   *Sweeper
	Scores    storage.ScoreStore
	Publisher publish.Publisher
	Reports   ReportWriter
	Interval  time.Duration    // Default: 5s
	Clock     func() time.Time // Default: time.Now
	Logger    *logrus.Logger
}

// NewRefresher creates a new Refresher.
func NewRefresher(opts RefresherOptions) *Refresher {
	interval := opts.Interval
	if interval == 0 {
		interval = 5 * time.Second
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = publish.Nop{}
	}

	return &Refresher{
		ranker:    opts.Ranker,
		sweeper:   opts.Sweeper,
		scores:    opts.Scores,
		publisher: publisher,
		reports:   opts.Reports,
		interval:  interval,
		logger:    logging.Component(opts.Logger, "refresher"),
		now:       clock,
	}
}

// Run runs a pass immediately and then every interval until ctx is cancelled.
// Pass failures are logged and never stop the loop.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.WithError(err).Warn("refresh pass incomplete")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce expires stale entries, scores every remaining token and hands the
// pass to the score store, publisher and report writer. A sink failure does
// not prevent the other sinks from running; all failures are joined.
func (r *Refresher) RunOnce(ctx context.Context) (*Pass, error) {
	start := time.Now()
	at := r.now()

	pass := &Pass{
		At:     at,
		Scheme: r.ranker.Scorer().Scheme().String(),
	}
	if r.sweeper != nil {
		pass.Expired = r.sweeper.SweepOnce(ctx, at)
	}
	pass.Tokens = r.ranker.Rank(Filter{})

	observability.UpdateTierCounts(pass.Scheme, CountByTier(pass.Tokens))
	observability.UpdateRegistrySize(r.ranker.Registry().Len())

	var errs []error
	if len(pass.Tokens) > 0 {
		records := pass.Records()
		if r.scores != nil {
			if err := r.scores.InsertBulk(ctx, records); err != nil {
				errs = append(errs, fmt.Errorf("store scores: %w", err))
			}
		}
		if err := r.publisher.Publish(ctx, records); err != nil {
			errs = append(errs, fmt.Errorf("publish scores: %w", err))
		}
	}
	if r.reports != nil {
		if err := r.reports.WriteReport(ctx, pass); err != nil {
			errs = append(errs, fmt.Errorf("write report: %w", err))
		}
	}

	status := "success"
	if len(errs) > 0 {
		status = "error"
	}
	observability.RecordRefresh(status, len(pass.Tokens), time.Since(start))

	r.mu.Lock()
	r.lastRun = at
	r.runs++
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"tokens":   len(pass.Tokens),
		"expired":  len(pass.Expired),
		"duration": time.Since(start),
	}).Debug("refresh pass complete")

	return pass, errors.Join(errs...)
}

// LastRun returns the time of the last completed pass, zero if none.
func (r *Refresher) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// Runs returns the number of completed passes.
func (r *Refresher) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}
