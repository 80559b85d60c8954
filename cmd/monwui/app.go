package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/G-grbz/monwui/internal/adapter"
	"github.com/G-grbz/monwui/internal/adapter/source"
	"github.com/G-grbz/monwui/internal/cache"
	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/indexer"
	"github.com/G-grbz/monwui/internal/service"
	"github.com/G-grbz/monwui/internal/store"
)

// app is the wiring shared by every command. The caller must defer Close.
type app struct {
	cfg     *adapter.Config
	logger  *slog.Logger
	session *source.Session
	cache   *cache.Accessor

	kv        domain.KVStore
	logCloser io.Closer
}

// newApp loads config, connects to the server and opens the cache. A cache
// that fails to open is disabled for the session rather than fatal.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := adapter.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("server is not configured: set server.url and a token or username/password")
	}

	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		logger, closer = adapter.NullLogger(), io.NopCloser(nil)
	}
	slog.SetDefault(logger)
	logger.Info("starting monwui", "version", Version)

	session, err := source.Connect(ctx, cfg, logger)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, session: session, logCloser: closer}

	kv, err := store.OpenBackend(ctx, cfg.Cache.Backend, cfg.GetCachePath(), cfg.Server.URL)
	if err != nil {
		logger.Error("cache unavailable, running without it", "backend", cfg.Cache.Backend, "error", err)
	} else {
		a.kv = kv
	}
	a.cache = cache.New(a.kv, cache.WithLogger(logger))
	return a, nil
}

func (a *app) Close() {
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.logger.Warn("failed to close cache", "error", err)
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

func (a *app) scope() domain.Scope {
	return a.session.Scope
}

func (a *app) collections() *service.CollectionService {
	return service.NewCollectionService(a.session.Client, a.cache, a.scope(), a.cfg.Indexer.CandidateLimit, a.logger)
}

func (a *app) purgePolicy() cache.PurgePolicy {
	return cache.PurgePolicy{
		EntityTTL:    a.cfg.Cache.EntityTTL,
		MaxEntities:  a.cfg.Cache.MaxEntities,
		MetaTTL:      a.cfg.Cache.MetaTTL,
		MetaPrefixes: cache.ScopedMetaPrefixes(a.scope()),
	}
}

func (a *app) indexerOptions() (indexer.Options, error) {
	ic := a.cfg.Indexer
	mode, err := indexer.ParseMode(ic.Mode)
	if err != nil {
		return indexer.Options{}, err
	}
	return indexer.Options{
		Throttle:           ic.Throttle,
		CollectionThrottle: ic.CollectionThrottle,
		MaxItemsPerSession: ic.MaxItemsPerSession,
		SessionCooldown:    ic.SessionCooldown,
		Aggressive:         ic.Aggressive,
		Mode:               mode,
		PageSize:           ic.PageSize,
		NegativeBatchSize:  ic.NegativeBatchSize,
		ErrorBackoff:       ic.ErrorBackoff,
		HiddenDelay:        ic.HiddenDelay,
		MembersTTL:         ic.MembersTTL,
		MembershipTTL:      ic.MembershipTTL,
		CandidateLimit:     ic.CandidateLimit,
		Purge:              a.purgePolicy(),
	}, nil
}

func (a *app) newIndexer(vis indexer.Visibility, observers ...domain.IndexObserver) *indexer.Handle {
	opts := []indexer.Option{
		indexer.WithLogger(a.logger),
		indexer.WithVisibility(vis),
		indexer.WithScheduler(indexer.IdleScheduler{Delay: a.cfg.Indexer.IdleDelay}),
	}
	for _, o := range observers {
		opts = append(opts, indexer.WithObserver(o))
	}
	return indexer.New(a.session.Client, a.cache, a.scope(), opts...)
}
