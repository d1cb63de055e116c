package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yumiaura/RedditSync/internal/domain"
)

type MediaStore struct {
	db *sqlx.DB
}

func NewMediaStore(db *sqlx.DB) *MediaStore {
	return &MediaStore{db: db}
}

// Insert records a downloaded asset. The uid is unique; inserting the same
// uid twice is a genuine storage failure, not expected duplication.
func (s *MediaStore) Insert(ctx context.Context, asset *domain.MediaAsset) error {
	query := `
		INSERT INTO media (uid, origin_url, content_type, size_bytes, saved_at)
		VALUES (?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		asset.UID,
		asset.OriginURL,
		asset.ContentType,
		asset.SizeBytes,
		asset.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("insert media %s: %w", asset.UID, err)
	}

	asset.ID, _ = res.LastInsertId()
	return nil
}

// GetByOriginURL returns the earliest asset downloaded from originURL, or
// nil when none exists. Two items sharing a URL share its asset.
func (s *MediaStore) GetByOriginURL(ctx context.Context, originURL string) (*domain.MediaAsset, error) {
	query := `
		SELECT id, uid, origin_url, content_type, size_bytes, saved_at
		FROM media
		WHERE origin_url = ?
		ORDER BY id
		LIMIT 1`

	var asset domain.MediaAsset
	err := s.db.GetContext(ctx, &asset, query, originURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media by url: %w", err)
	}
	return &asset, nil
}

// GetByUID returns the asset stored under uid, or nil when unknown.
func (s *MediaStore) GetByUID(ctx context.Context, uid string) (*domain.MediaAsset, error) {
	query := `
		SELECT id, uid, origin_url, content_type, size_bytes, saved_at
		FROM media
		WHERE uid = ?`

	var asset domain.MediaAsset
	err := s.db.GetContext(ctx, &asset, query, uid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media %s: %w", uid, err)
	}
	return &asset, nil
}

// Count returns the total number of asset rows.
func (s *MediaStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM media")
	return count, err
}
