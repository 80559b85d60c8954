package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/G-grbz/monwui/internal/cache"
	"github.com/G-grbz/monwui/internal/domain"
)

// GenreCatalog caches the movie genre list for one ISO week.
type GenreCatalog struct {
	catalog domain.Catalog
	cache   *cache.Accessor
	scope   domain.Scope
	logger  *slog.Logger
}

func NewGenreCatalog(catalog domain.Catalog, c *cache.Accessor, scope domain.Scope, logger *slog.Logger) *GenreCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenreCatalog{catalog: catalog, cache: c, scope: scope, logger: logger}
}

// Genres returns this week's cached list, fetching it on a miss. Remote
// failures yield an empty list.
func (g *GenreCatalog) Genres(ctx context.Context) []string {
	key := cache.GenresKey(g.scope, time.UnixMilli(g.cache.NowMillis()))

	var genres []string
	if _, ok := g.cache.GetMeta(ctx, key, &genres); ok {
		return genres
	}

	genres, err := g.catalog.Genres(ctx, []string{domain.ItemTypeMovie})
	if err != nil {
		if !isCanceled(ctx, err) {
			g.logger.Warn("genre fetch failed", "error", err)
		}
		return nil
	}
	if err := g.cache.SetMeta(ctx, key, genres); err != nil {
		g.logger.Debug("failed to cache genres", "error", err)
	}
	return genres
}
