// file: internal/tmdb/cached.go
// version: 1.0.0
// guid: b8c9d0e1-f2a3-4b4c-5d6e-f7a8b9c0d1e2

package tmdb

import (
	"context"
	"fmt"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/cache"
	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
)

// Cached decorates a Client with the durable response cache. Lookups
// that yield no result are cached too, so a series TMDB never heard of
// does not trigger a lookup on every scan. Image bytes are never cached;
// the marker check upstream already prevents repeat downloads.
type Cached struct {
	client *Client
	store  *cache.Store
}

// NewCached wraps client with store-backed memoization.
func NewCached(client *Client, store *cache.Store) *Cached {
	return &Cached{client: client, store: store}
}

func (c *Cached) Translations(ctx context.Context, ids models.TmdbIDs) (map[string]models.TranslatedContent, error) {
	return cache.GetOrFetch(c.store, "translations:"+ids.ResourcePath(), func() (map[string]models.TranslatedContent, error) {
		return c.client.Translations(ctx, ids)
	})
}

func (c *Cached) Images(ctx context.Context, ids models.TmdbIDs, kind string) ([]models.ImageCandidate, error) {
	return cache.GetOrFetch(c.store, fmt.Sprintf("images:%s:%s", kind, ids.ResourcePath()), func() ([]models.ImageCandidate, error) {
		return c.client.Images(ctx, ids, kind)
	})
}

func (c *Cached) FindByExternalIDs(ctx context.Context, ext models.ExternalIDs) (int, error) {
	key := fmt.Sprintf("find:tvdb:%d:imdb:%s", ext.TvdbID, ext.ImdbID)
	return cache.GetOrFetch(c.store, key, func() (int, error) {
		return c.client.FindByExternalIDs(ctx, ext)
	})
}

func (c *Cached) SeriesOriginalDetails(ctx context.Context, ids models.TmdbIDs) (OriginalDetails, error) {
	return cache.GetOrFetch(c.store, "details:"+ids.ResourcePath(), func() (OriginalDetails, error) {
		return c.client.SeriesOriginalDetails(ctx, ids)
	})
}

func (c *Cached) DownloadImage(ctx context.Context, filePath string) ([]byte, error) {
	return c.client.DownloadImage(ctx, filePath)
}
