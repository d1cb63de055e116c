// Package reddit fetches subreddit listings through the OAuth API and maps
// them to domain items. Token refresh is delegated to golang.org/x/oauth2;
// a proactive rate limiter keeps the client inside Reddit's API etiquette.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/yumiaura/RedditSync/internal/config"
	"github.com/yumiaura/RedditSync/internal/domain"
	"github.com/yumiaura/RedditSync/internal/retry"
)

const pageSize = 100

// Source implements the service.Source port against the Reddit listing API.
type Source struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retry      retry.Policy
	logger     *slog.Logger
}

// New builds a Source from config. The OAuth2 transport owns token refresh:
// the refresh token is exchanged for access tokens on demand and renewed
// when they expire.
func New(cfg config.RedditConfig, logger *slog.Logger) *Source {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	})

	httpClient := oauth2.NewClient(context.Background(), tokenSource)
	httpClient.Timeout = cfg.Timeout

	return &Source{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Limit(1), 1), // ~60 req/min, Reddit's free-tier budget
		retry: retry.Policy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
		},
		logger: logger.With("component", "reddit"),
	}
}

// FetchRecent returns up to limit newest posts of a subreddit, newest
// first, mapped to domain items. Pagination follows the listing's "after"
// cursor; malformed records are skipped, not propagated.
func (s *Source) FetchRecent(ctx context.Context, sourceID string, limit int) ([]domain.Item, error) {
	items := make([]domain.Item, 0, limit)
	after := ""

	for len(items) < limit {
		page, err := s.fetchPage(ctx, sourceID, after, min(pageSize, limit-len(items)))
		if err != nil {
			return nil, fmt.Errorf("fetch listing %s: %w", sourceID, err)
		}

		for _, child := range page.Data.Children {
			item, ok := s.transform(sourceID, child)
			if !ok {
				continue
			}
			items = append(items, item)
			if len(items) == limit {
				break
			}
		}

		s.logger.Debug("fetched listing page",
			"source_id", sourceID,
			"page_items", len(page.Data.Children),
			"total", len(items),
		)

		if page.Data.After == "" || len(page.Data.Children) == 0 {
			break
		}
		after = page.Data.After
	}

	return items, nil
}

func (s *Source) fetchPage(ctx context.Context, sourceID, after string, limit int) (*listingResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	reqURL := fmt.Sprintf("%s/r/%s/new?%s", s.baseURL, url.PathEscape(sourceID), q.Encode())

	var page *listingResponse
	err := s.retry.Do(ctx, IsRetryable, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		page, err = s.doRequest(ctx, reqURL)
		return err
	})
	return page, err
}

func (s *Source) doRequest(ctx context.Context, reqURL string) (*listingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	default:
		return nil, &APIError{
			StatusCode:     resp.StatusCode,
			RetryAfterHint: retryAfterHeader(resp),
		}
	}

	var listing listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &listing, nil
}

// transform validates one listing child and maps it to a domain item.
// Posts without an id or creation time cannot be deduplicated and are
// dropped with a warning.
func (s *Source) transform(sourceID string, child listingChild) (domain.Item, bool) {
	var p post
	if err := json.Unmarshal(child.Data, &p); err != nil {
		s.logger.Warn("skipping undecodable listing record", "source_id", sourceID, "error", err)
		return domain.Item{}, false
	}

	externalID := p.Name
	if externalID == "" && p.ID != "" {
		externalID = "t3_" + p.ID
	}
	if externalID == "" || p.CreatedUTC == 0 {
		s.logger.Warn("skipping malformed listing record",
			"source_id", sourceID,
			"external_id", externalID,
		)
		return domain.Item{}, false
	}

	item := domain.Item{
		ExternalID:   externalID,
		SourceID:     sourceID,
		Author:       p.Author,
		CreatedUTC:   int64(p.CreatedUTC),
		Title:        p.Title,
		Body:         p.Selftext,
		Score:        p.Score,
		CommentCount: p.NumComments,
	}

	if mediaURL := extractMediaURL(&p); mediaURL != "" {
		item.MediaURL = &mediaURL
	}

	raw := string(child.Data)
	item.RawJSON = &raw

	return item, true
}

func retryAfterHeader(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
