package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yumiaura/RedditSync/internal/domain"
)

// IngestService pulls recent posts for a source and persists the ones not
// seen before. Duplicates are expected steady-state behavior: each poll
// re-fetches a window that mostly overlaps the previous one.
type IngestService struct {
	source    Source
	items     ItemStore
	publisher Publisher
	logger    *slog.Logger
	postLimit int
}

func NewIngestService(
	source Source,
	items ItemStore,
	publisher Publisher,
	logger *slog.Logger,
	postLimit int,
) *IngestService {
	return &IngestService{
		source:    source,
		items:     items,
		publisher: publisher,
		logger:    logger.With("component", "ingest"),
		postLimit: postLimit,
	}
}

// IngestSource fetches and deduplicates one subscription's recent posts.
// Each candidate commits individually, so a failure partway leaves earlier
// inserts in place; a retried run simply sees fewer new items.
func (s *IngestService) IngestSource(ctx context.Context, sub domain.Subscription) (*domain.IngestStats, error) {
	s.logger.Info("ingesting source", "source_id", sub.SourceID, "limit", s.postLimit)

	candidates, err := s.source.FetchRecent(ctx, sub.SourceID, s.postLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent %s: %w", sub.SourceID, err)
	}

	stats := &domain.IngestStats{
		SourceID: sub.SourceID,
		Fetched:  len(candidates),
	}

	for i := range candidates {
		item := &candidates[i]
		if item.ExternalID == "" {
			stats.Errors++
			continue
		}

		inserted, err := s.items.InsertIfAbsent(ctx, item)
		if err != nil {
			// A store failure aborts the rest of this source's batch;
			// earlier per-item commits stay.
			s.logger.Error("insert failed, aborting source batch",
				"source_id", sub.SourceID,
				"external_id", item.ExternalID,
				"error", err,
			)
			stats.Errors++
			return stats, fmt.Errorf("insert %s: %w", item.ExternalID, err)
		}

		if !inserted {
			stats.Skipped++
			if err := s.items.UpdateMetrics(ctx, item.ExternalID, item.Score, item.CommentCount); err != nil {
				s.logger.Warn("metrics refresh failed",
					"source_id", sub.SourceID,
					"external_id", item.ExternalID,
					"error", err,
				)
			}
			continue
		}

		stats.Inserted++
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, item); err != nil {
				s.logger.Warn("publish failed",
					"source_id", sub.SourceID,
					"external_id", item.ExternalID,
					"error", err,
				)
				stats.Errors++
			}
		}
	}

	s.logger.Info("source ingested",
		"source_id", sub.SourceID,
		"fetched", stats.Fetched,
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)

	return stats, nil
}
