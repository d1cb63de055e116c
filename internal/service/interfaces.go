package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/yumiaura/RedditSync/internal/domain"
)

type ItemStore interface {
	InsertIfAbsent(ctx context.Context, item *domain.Item) (bool, error)
	UpdateMetrics(ctx context.Context, externalID string, score, commentCount int) error
}

type SubscriptionStore interface {
	List(ctx context.Context) ([]domain.Subscription, error)
}

type Source interface {
	FetchRecent(ctx context.Context, sourceID string, limit int) ([]domain.Item, error)
}

type Publisher interface {
	Publish(ctx context.Context, item *domain.Item) error
	Close() error
}

type Ingester interface {
	IngestSource(ctx context.Context, sub domain.Subscription) (*domain.IngestStats, error)
}

type MediaFetcher interface {
	FetchPending(ctx context.Context) (*domain.FetchStats, error)
}
