// file: internal/tmdb/client.go
// version: 1.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-f2a3b4c5d6e7

// Package tmdb is the TMDB API client. It throttles requests client-side
// and retries transient failures (rate limiting, 5xx, network errors)
// with exponential backoff before giving up.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/mediafile"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
)

const (
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p/original"

	maxAttempts    = 4
	initialBackoff = 500 * time.Millisecond
)

// StatusError is a non-2xx response from TMDB.
type StatusError struct {
	StatusCode int
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: %s returned status %d", e.Path, e.StatusCode)
}

// IsTransient reports whether err is worth retrying: rate limiting,
// server errors, and network failures. 4xx responses other than 429 are
// permanent.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// Client talks to the TMDB v3 API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	imageBaseURL string
	apiKey       string
	limiter      *rate.Limiter
	backoffBase  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithImageBaseURL overrides the image download base URL.
func WithImageBaseURL(u string) Option {
	return func(c *Client) { c.imageBaseURL = strings.TrimRight(u, "/") }
}

// WithRequestsPerSecond replaces the default request throttle.
func WithRequestsPerSecond(n float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(n), 5) }
}

// WithRetryBackoff overrides the initial retry backoff (used in tests).
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoffBase = d }
}

// New creates a Client authenticated with the given API read token.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultBaseURL,
		imageBaseURL: defaultImageBaseURL,
		apiKey:       apiKey,
		// TMDB allows ~50 req/s; stay well below it.
		limiter:     rate.NewLimiter(rate.Limit(20), 5),
		backoffBase: initialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type translationsResponse struct {
	Translations []struct {
		Language string `json:"iso_639_1"`
		Region   string `json:"iso_3166_1"`
		Data     struct {
			Name     string `json:"name"`
			Overview string `json:"overview"`
		} `json:"data"`
	} `json:"translations"`
}

// Translations fetches all translations for a series or episode, keyed
// by language tag ("xx-YY", or bare "xx" when TMDB has no region).
func (c *Client) Translations(ctx context.Context, ids models.TmdbIDs) (map[string]models.TranslatedContent, error) {
	var resp translationsResponse
	if err := c.getJSON(ctx, "/"+ids.ResourcePath()+"/translations", &resp); err != nil {
		return nil, err
	}

	translations := make(map[string]models.TranslatedContent)
	for _, tr := range resp.Translations {
		if tr.Language == "" {
			continue
		}
		tag := tr.Language
		if tr.Region != "" {
			tag = tr.Language + "-" + tr.Region
		}
		title := strings.TrimSpace(tr.Data.Name)
		description := strings.TrimSpace(tr.Data.Overview)
		if title == "" && description == "" {
			continue
		}
		translations[tag] = models.TranslatedContent{
			Title:       models.TranslatedString{Content: title, Language: tag},
			Description: models.TranslatedString{Content: description, Language: tag},
		}
	}
	return translations, nil
}

type imagesResponse struct {
	Posters []models.ImageCandidate `json:"posters"`
	Logos   []models.ImageCandidate `json:"logos"`
}

// Images fetches the ranked artwork candidate list for a series or
// season. kind selects posters or clearlogos; provider order is
// preserved.
func (c *Client) Images(ctx context.Context, ids models.TmdbIDs, kind string) ([]models.ImageCandidate, error) {
	path := fmt.Sprintf("/tv/%d/images", ids.SeriesID)
	if ids.Season != nil {
		path = fmt.Sprintf("/tv/%d/season/%d/images", ids.SeriesID, *ids.Season)
	}

	var resp imagesResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	switch kind {
	case mediafile.KindClearlogo:
		return resp.Logos, nil
	default:
		return resp.Posters, nil
	}
}

type findResponse struct {
	TVResults []struct {
		ID int `json:"id"`
	} `json:"tv_results"`
}

// FindByExternalIDs resolves a TMDB series ID via the TVDB or IMDB
// identifier. Returns 0 when neither resolves.
func (c *Client) FindByExternalIDs(ctx context.Context, ext models.ExternalIDs) (int, error) {
	if ext.TvdbID != 0 {
		id, err := c.find(ctx, fmt.Sprintf("%d", ext.TvdbID), "tvdb_id")
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}
	}
	if ext.ImdbID != "" {
		return c.find(ctx, ext.ImdbID, "imdb_id")
	}
	return 0, nil
}

func (c *Client) find(ctx context.Context, externalID, source string) (int, error) {
	var resp findResponse
	path := fmt.Sprintf("/find/%s?external_source=%s", url.PathEscape(externalID), source)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return 0, err
	}
	if len(resp.TVResults) == 0 {
		return 0, nil
	}
	return resp.TVResults[0].ID, nil
}

// OriginalDetails is the provider-original name and language of a series.
type OriginalDetails struct {
	Language string `json:"original_language"`
	Title    string `json:"original_name"`
}

// SeriesOriginalDetails fetches the original language and title for the
// series owning ids.
func (c *Client) SeriesOriginalDetails(ctx context.Context, ids models.TmdbIDs) (OriginalDetails, error) {
	var details OriginalDetails
	err := c.getJSON(ctx, fmt.Sprintf("/tv/%d", ids.SeriesID), &details)
	return details, err
}

// DownloadImage fetches the raw bytes of a provider-relative image
// reference such as "/abc123.png".
func (c *Client) DownloadImage(ctx context.Context, filePath string) ([]byte, error) {
	return c.getRaw(ctx, c.imageBaseURL+filePath)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.getRaw(ctx, c.baseURL+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	backoff := c.backoffBase
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.doOnce(ctx, fullURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Path: req.URL.Path}
	}
	return io.ReadAll(resp.Body)
}
