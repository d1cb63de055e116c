package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yumiaura/RedditSync/internal/domain"
)

type ItemStore struct {
	db *sqlx.DB
}

func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db}
}

// InsertIfAbsent atomically inserts the item unless its external id is
// already known. Returns true when a row was inserted, false when the item
// was a duplicate. Duplicates are not an error.
func (s *ItemStore) InsertIfAbsent(ctx context.Context, item *domain.Item) (bool, error) {
	query := `
		INSERT INTO items (
			external_id, source_id, author, created_utc, title, body,
			media_url, raw_json, score, comment_count, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		item.ExternalID,
		item.SourceID,
		item.Author,
		item.CreatedUTC,
		item.Title,
		item.Body,
		item.MediaURL,
		item.RawJSON,
		item.Score,
		item.CommentCount,
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert item %s: %w", item.ExternalID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateMetrics refreshes the vote and comment counters of a known item.
func (s *ItemStore) UpdateMetrics(ctx context.Context, externalID string, score, commentCount int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE items SET score = ?, comment_count = ? WHERE external_id = ?",
		score, commentCount, externalID,
	)
	if err != nil {
		return fmt.Errorf("update metrics for %s: %w", externalID, err)
	}
	return nil
}

// PendingMedia returns items that reference media not yet downloaded,
// oldest first so long-pending items are not starved by fresh ones.
func (s *ItemStore) PendingMedia(ctx context.Context) ([]domain.Item, error) {
	query := `
		SELECT id, external_id, source_id, author, created_utc, title, body,
		       media_url, media_uid, raw_json, score, comment_count, ingested_at
		FROM items
		WHERE media_url IS NOT NULL AND media_url != '' AND media_uid IS NULL
		ORDER BY id`

	var items []domain.Item
	if err := s.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("select pending media: %w", err)
	}
	return items, nil
}

// SetMediaRef links every item referencing originURL to the downloaded
// asset. Items that already carry a media uid are left untouched.
func (s *ItemStore) SetMediaRef(ctx context.Context, originURL, uid string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE items SET media_uid = ? WHERE media_url = ? AND media_uid IS NULL",
		uid, originURL,
	)
	if err != nil {
		return fmt.Errorf("set media ref %s: %w", uid, err)
	}
	return nil
}

// GetByExternalID fetches a single item, or nil when unknown.
func (s *ItemStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Item, error) {
	query := `
		SELECT id, external_id, source_id, author, created_utc, title, body,
		       media_url, media_uid, raw_json, score, comment_count, ingested_at
		FROM items
		WHERE external_id = ?`

	var item domain.Item
	err := s.db.GetContext(ctx, &item, query, externalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", externalID, err)
	}
	return &item, nil
}

// CountBySource returns the number of stored items for one source.
func (s *ItemStore) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM items WHERE source_id = ?", sourceID)
	return count, err
}
