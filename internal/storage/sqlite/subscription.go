package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yumiaura/RedditSync/internal/domain"
)

type SubscriptionStore struct {
	db *sqlx.DB
}

func NewSubscriptionStore(db *sqlx.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// List returns all subscriptions in insertion order.
func (s *SubscriptionStore) List(ctx context.Context) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := s.db.SelectContext(ctx, &subs,
		"SELECT id, source_id, title, added_at FROM subscriptions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// Add registers a source to poll. Adding an already-registered source is a
// no-op.
func (s *SubscriptionStore) Add(ctx context.Context, sourceID, title string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO subscriptions (source_id, title, added_at) VALUES (?, ?, ?) ON CONFLICT (source_id) DO NOTHING",
		sourceID, title, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add subscription %s: %w", sourceID, err)
	}
	return nil
}

// Remove drops the subscription; already-ingested items stay.
func (s *SubscriptionStore) Remove(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("remove subscription %s: %w", sourceID, err)
	}
	return nil
}
