package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yumiaura/RedditSync/internal/domain"
)

// ErrRunInProgress is returned when a run is triggered while another one
// is still executing. Overlapping triggers are dropped, not queued.
var ErrRunInProgress = errors.New("run already in progress")

// Runner sequences a full run: ingest every subscription, then fetch
// pending media. Sources are processed sequentially and isolated from each
// other's failures; media isolation is the coordinator's job.
type Runner struct {
	subs     SubscriptionStore
	ingester Ingester
	media    MediaFetcher
	logger   *slog.Logger
	running  atomic.Bool
}

func NewRunner(subs SubscriptionStore, ingester Ingester, media MediaFetcher, logger *slog.Logger) *Runner {
	return &Runner{
		subs:     subs,
		ingester: ingester,
		media:    media,
		logger:   logger.With("component", "runner"),
	}
}

// RunOnce executes one ingest-then-fetch run. The run summary is produced
// even when individual sources or downloads failed, so partial success is
// distinguishable from total failure. Only failure to list the
// subscriptions aborts the run.
func (r *Runner) RunOnce(ctx context.Context) (*domain.RunStats, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	r.logger.Info("run started")

	subs, err := r.subs.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.RunStats{}

	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}

		srcStats, err := r.ingester.IngestSource(ctx, sub)
		if err != nil {
			r.logger.Error("source ingest failed", "source_id", sub.SourceID, "error", err)
		}
		if srcStats == nil {
			srcStats = &domain.IngestStats{SourceID: sub.SourceID, Errors: 1}
		}
		stats.Sources = append(stats.Sources, *srcStats)
	}

	if ctx.Err() == nil {
		fetchStats, err := r.media.FetchPending(ctx)
		if err != nil {
			r.logger.Error("media fetch failed", "error", err)
		}
		if fetchStats != nil {
			stats.Fetch = *fetchStats
		}
	}

	stats.Duration = time.Since(start)

	r.logger.Info("run completed",
		"sources", len(stats.Sources),
		"inserted", stats.TotalInserted(),
		"downloaded", stats.Fetch.Downloaded,
		"reused", stats.Fetch.Reused,
		"skipped_too_large", stats.Fetch.SkippedTooLarge,
		"failed", stats.Fetch.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}
