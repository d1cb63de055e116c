package domain

import "time"

// Subscription is a monitored subreddit/thread.
type Subscription struct {
	ID       int64     `db:"id"`
	SourceID string    `db:"source_id"` // e.g. "unixporn"
	Title    string    `db:"title"`
	AddedAt  time.Time `db:"added_at"`
}

// Item is a single post ingested from a source. ExternalID is the
// source-assigned identifier and the sole deduplication key; MediaUID is
// written once, after the referenced media has been downloaded.
type Item struct {
	ID           int64     `db:"id"`
	ExternalID   string    `db:"external_id"`
	SourceID     string    `db:"source_id"`
	Author       string    `db:"author"`
	CreatedUTC   int64     `db:"created_utc"`
	Title        string    `db:"title"`
	Body         string    `db:"body"`
	MediaURL     *string   `db:"media_url"`
	MediaUID     *string   `db:"media_uid"`
	RawJSON      *string   `db:"raw_json"`
	Score        int       `db:"score"`
	CommentCount int       `db:"comment_count"`
	IngestedAt   time.Time `db:"ingested_at"`
}

// MediaAsset is a downloaded media file plus its metadata row. UID doubles
// as the filename under the media directory, so it maps 1:1 to a file.
type MediaAsset struct {
	ID          int64     `db:"id"`
	UID         string    `db:"uid"`
	OriginURL   string    `db:"origin_url"`
	ContentType string    `db:"content_type"`
	SizeBytes   int64     `db:"size_bytes"`
	SavedAt     time.Time `db:"saved_at"`
}
