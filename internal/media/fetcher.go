// Package media downloads the assets referenced by ingested items into
// content-addressed local storage. Downloads run under a bounded worker
// pool, are deduplicated by origin URL, and stream to disk so an oversized
// payload never occupies memory.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yumiaura/RedditSync/internal/domain"
	"github.com/yumiaura/RedditSync/internal/retry"
)

// ItemStore is the slice of item storage the coordinator needs.
type ItemStore interface {
	PendingMedia(ctx context.Context) ([]domain.Item, error)
	SetMediaRef(ctx context.Context, originURL, uid string) error
}

// AssetStore persists downloaded asset metadata.
type AssetStore interface {
	Insert(ctx context.Context, asset *domain.MediaAsset) error
	GetByOriginURL(ctx context.Context, originURL string) (*domain.MediaAsset, error)
}

type Config struct {
	Dir           string
	MaxBytes      int64
	MaxConcurrent int
	Timeout       time.Duration
	Retry         retry.Policy
}

// Coordinator fetches pending media with bounded concurrency. The worker
// pool is the pipeline's one contended resource; no locks beyond it are
// needed because every URL is processed by exactly one worker.
type Coordinator struct {
	items      ItemStore
	assets     AssetStore
	httpClient *http.Client
	dir        string
	maxBytes   int64
	maxWorkers int
	timeout    time.Duration
	retry      retry.Policy
	logger     *slog.Logger
}

// NewCoordinator creates the asset directory if needed; failure to do so
// is fatal, matching the store-acquisition failures of the run.
func NewCoordinator(items ItemStore, assets AssetStore, cfg Config, logger *slog.Logger) (*Coordinator, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	return &Coordinator{
		items:      items,
		assets:     assets,
		httpClient: &http.Client{}, // redirects followed by default; timeout is per call
		dir:        cfg.Dir,
		maxBytes:   cfg.MaxBytes,
		maxWorkers: cfg.MaxConcurrent,
		timeout:    cfg.Timeout,
		retry:      cfg.Retry,
		logger:     logger.With("component", "media"),
	}, nil
}

// FetchPending downloads media for every item that references a URL and
// has no asset yet. Items sharing a URL are collapsed onto one download;
// URLs beyond the pool's capacity queue in discovery order. Re-running
// after a partial failure only touches items still lacking a media ref.
func (c *Coordinator) FetchPending(ctx context.Context) (*domain.FetchStats, error) {
	pending, err := c.items.PendingMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending media: %w", err)
	}

	stats := &domain.FetchStats{Pending: len(pending)}
	if len(pending) == 0 {
		return stats, nil
	}

	urls := uniqueURLs(pending)
	c.logger.Info("fetching pending media", "items", len(pending), "urls", len(urls))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.maxWorkers)

	for _, u := range urls {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcome := c.processURL(ctx, u)

			mu.Lock()
			switch outcome {
			case outcomeDownloaded:
				stats.Downloaded++
			case outcomeReused:
				stats.Reused++
			case outcomeTooLarge:
				stats.SkippedTooLarge++
			case outcomeFailed:
				stats.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Info("media fetch completed",
		"downloaded", stats.Downloaded,
		"reused", stats.Reused,
		"skipped_too_large", stats.SkippedTooLarge,
		"failed", stats.Failed,
	)

	return stats, nil
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeReused
	outcomeTooLarge
	outcomeFailed
)

// processURL drives one URL to a terminal outcome. Ordering on success is
// deliberate: file on disk first, then the asset row, then the item links,
// so an item never points at a uid whose asset row does not exist.
func (c *Coordinator) processURL(ctx context.Context, originURL string) outcome {
	existing, err := c.assets.GetByOriginURL(ctx, originURL)
	if err != nil {
		c.logger.Error("asset lookup failed", "url", originURL, "error", err)
		return outcomeFailed
	}
	if existing != nil {
		if err := c.items.SetMediaRef(ctx, originURL, existing.UID); err != nil {
			c.logger.Error("link to existing asset failed", "url", originURL, "uid", existing.UID, "error", err)
			return outcomeFailed
		}
		c.logger.Debug("reused existing asset", "url", originURL, "uid", existing.UID)
		return outcomeReused
	}

	var asset *domain.MediaAsset
	err = c.retry.Do(ctx, retryable, func(ctx context.Context) error {
		var err error
		asset, err = c.download(ctx, originURL)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			c.logger.Warn("media skipped, too large", "url", originURL, "limit_bytes", c.maxBytes)
			return outcomeTooLarge
		}
		c.logger.Error("download failed", "url", originURL, "error", err)
		return outcomeFailed
	}

	if err := c.assets.Insert(ctx, asset); err != nil {
		// Nothing references the file yet; discard it so the store and
		// the directory stay consistent.
		_ = os.Remove(filepath.Join(c.dir, asset.UID))
		c.logger.Error("asset insert failed", "url", originURL, "error", err)
		return outcomeFailed
	}

	if err := c.items.SetMediaRef(ctx, originURL, asset.UID); err != nil {
		// The asset row is committed; items stay pending and get linked
		// on the next run via the reuse path.
		c.logger.Error("item link failed", "url", originURL, "uid", asset.UID, "error", err)
		return outcomeFailed
	}

	c.logger.Info("media downloaded",
		"url", originURL,
		"uid", asset.UID,
		"content_type", asset.ContentType,
		"size_bytes", asset.SizeBytes,
	)
	return outcomeDownloaded
}

// download streams one URL into the asset directory via a temp file.
// Aborts past maxBytes; on any failure the partial file is removed and
// nothing is committed.
func (c *Coordinator) download(ctx context.Context, originURL string) (*domain.MediaAsset, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, originURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpError{
			StatusCode:     resp.StatusCode,
			RetryAfterHint: retryAfterHeader(resp),
		}
	}
	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%w: content-length %d", ErrTooLarge, resp.ContentLength)
	}

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op once renamed into place
	}()

	// Copy one byte past the limit so truncation is distinguishable from
	// an exactly-at-limit payload.
	written, err := io.Copy(tmp, io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("stream body: %w", err)
	}
	if written > c.maxBytes {
		return nil, fmt.Errorf("%w: streamed over %d bytes", ErrTooLarge, c.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffContentType(tmp)
	}

	uid := uuid.NewString() + "." + fileExtension(originURL, contentType)
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(c.dir, uid)); err != nil {
		return nil, fmt.Errorf("move into place: %w", err)
	}

	return &domain.MediaAsset{
		UID:         uid,
		OriginURL:   originURL,
		ContentType: contentType,
		SizeBytes:   written,
		SavedAt:     time.Now().UTC(),
	}, nil
}

// uniqueURLs returns the distinct media URLs of pending items in
// discovery order.
func uniqueURLs(pending []domain.Item) []string {
	seen := make(map[string]bool, len(pending))
	urls := make([]string, 0, len(pending))
	for _, item := range pending {
		if item.MediaURL == nil || *item.MediaURL == "" {
			continue
		}
		if !seen[*item.MediaURL] {
			seen[*item.MediaURL] = true
			urls = append(urls, *item.MediaURL)
		}
	}
	return urls
}

func sniffContentType(f *os.File) string {
	buf := make([]byte, 512)
	n, err := f.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return "application/octet-stream"
	}
	return http.DetectContentType(buf[:n])
}

var extensionByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"video/mp4":  "mp4",
	"video/webm": "webm",
}

var knownExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "mp4": true, "webm": true,
}

// fileExtension picks the extension from the URL path when it names a
// known media type, falling back to the content type, then "bin".
func fileExtension(originURL, contentType string) string {
	if u, err := url.Parse(originURL); err == nil {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
		if knownExtensions[ext] {
			return ext
		}
	}
	if ext, ok := extensionByContentType[strings.ToLower(contentType)]; ok {
		return ext
	}
	return "bin"
}
