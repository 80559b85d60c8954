// Package indexer crawls the remote catalog into the cache. A Handle owns at
// most one run per scope; every run advances through cooperative ticks that
// each process one page.
package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/G-grbz/monwui/internal/cache"
	"github.com/G-grbz/monwui/internal/collections"
	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/metrics"
)

const defaultIdleDelay = 50 * time.Millisecond

// Handle controls indexing for one scope. Start and Stop are its only mutators.
type Handle struct {
	catalog    domain.Catalog
	cache      *cache.Accessor
	scope      domain.Scope
	scheduler  Scheduler
	clock      Clock
	visibility Visibility
	logger     *slog.Logger
	observers  []domain.IndexObserver

	mu       sync.Mutex
	current  *run
	done     chan struct{}
	progress domain.IndexProgress
}

// Option configures a Handle.
type Option func(*Handle)

// WithScheduler sets how ticks are queued. Defaults to an IdleScheduler.
func WithScheduler(s Scheduler) Option {
	return func(h *Handle) {
		if s != nil {
			h.scheduler = s
		}
	}
}

// WithClock sets the time source for throttles, backoff and doneAt.
func WithClock(c Clock) Option {
	return func(h *Handle) {
		if c != nil {
			h.clock = c
		}
	}
}

// WithVisibility sets the host visibility probe. Defaults to always visible.
func WithVisibility(v Visibility) Option {
	return func(h *Handle) {
		if v != nil {
			h.visibility = v
		}
	}
}

// WithLogger sets the run logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handle) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithObserver adds a progress observer. May be given more than once.
func WithObserver(o domain.IndexObserver) Option {
	return func(h *Handle) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

// New creates a stopped Handle.
func New(catalog domain.Catalog, c *cache.Accessor, scope domain.Scope, opts ...Option) *Handle {
	h := &Handle{
		catalog:    catalog,
		cache:      c,
		scope:      scope,
		scheduler:  IdleScheduler{Delay: defaultIdleDelay},
		clock:      realClock{},
		visibility: alwaysVisible{},
		logger:     slog.Default(),
		done:       make(chan struct{}),
	}
	close(h.done)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// run is the state of one Start..finish span.
type run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	done   chan struct{}

	state    domain.IndexerState
	resolver *collections.Resolver
	syncer   *collections.Syncer
	fastSkip map[string]struct{}

	// guarded by Handle.mu
	inTick   bool
	finished bool

	// owned by the tick in flight
	sessionItems int
	lastTotal    int
	collections  int
	positive     int
	negative     int
}

// Start begins a run unless one is active. It returns false, and logs, when
// a run is already in progress.
func (h *Handle) Start(ctx context.Context, opts Options) bool {
	h.mu.Lock()
	if h.current != nil {
		id := h.current.id
		h.mu.Unlock()
		h.logger.Info("indexer already running, ignoring start", "scope", h.scope.Key(), "run", id)
		return false
	}

	opts = opts.withDefaults()
	runCtx, cancel := context.WithCancel(ctx)
	fetcher := collections.NewFetcher(h.catalog, 0)
	r := &run{
		id:       uuid.New().String(),
		ctx:      runCtx,
		cancel:   cancel,
		opts:     opts,
		done:     make(chan struct{}),
		state:    initialState(h.cache.LoadIndexerState(ctx, h.scope), opts.Mode),
		resolver: collections.NewResolver(h.catalog, fetcher, opts.CandidateLimit, h.logger),
		syncer:   collections.NewSyncer(h.cache, fetcher, h.logger),
		fastSkip: make(map[string]struct{}),
	}
	h.current = r
	h.done = r.done
	h.progress = domain.IndexProgress{
		RunID:  r.id,
		Phase:  r.state.Phase,
		Cursor: cursorOf(r.state),
	}
	h.mu.Unlock()

	metrics.IndexerRunsTotal.Inc()
	metrics.IndexerIsRunning.Set(1)
	h.logger.Info("indexer started",
		"scope", h.scope.Key(),
		"run", r.id,
		"mode", opts.Mode.String(),
		"phase", r.state.Phase.String(),
		"movie_cursor", r.state.MovieCursor,
		"boxset_cursor", r.state.BoxsetCursor)

	h.scheduler.Schedule(func() { h.tick(r) }, opts.Aggressive)
	return true
}

// initialState applies the requested mode to the persisted state. Movie mode
// keeps a persisted movie cursor; boxset mode abandons a persisted movie run.
func initialState(persisted domain.IndexerState, mode Mode) domain.IndexerState {
	state := persisted.Clone()
	switch mode {
	case ModeMovie:
		if state.Phase != domain.PhaseMovie {
			state.Phase = domain.PhaseMovie
			state.MovieCursor = 0
		}
	default:
		if state.Phase == domain.PhaseMovie {
			fresh := domain.NewIndexerState()
			fresh.DoneAt = state.DoneAt
			state = fresh
		}
	}
	return state
}

// Stop cancels the active run. It is a no-op when nothing is running.
// A tick in flight aborts at its next cancellation check.
func (h *Handle) Stop() {
	h.mu.Lock()
	r := h.current
	if r == nil {
		h.mu.Unlock()
		return
	}
	r.cancel()
	idle := !r.inTick
	h.mu.Unlock()

	if idle {
		h.finish(r, nil)
	}
}

// Running reports whether a run is active.
func (h *Handle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current != nil
}

// Done returns a channel closed when the current (or last) run ends.
func (h *Handle) Done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Progress returns the latest progress snapshot.
func (h *Handle) Progress() domain.IndexProgress {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.progress
}

// tick runs one step of r and schedules the next unless the run ended.
func (h *Handle) tick(r *run) {
	h.mu.Lock()
	if r.finished {
		h.mu.Unlock()
		return
	}
	r.inTick = true
	h.mu.Unlock()

	cont, err := h.advance(r)

	h.mu.Lock()
	r.inTick = false
	h.mu.Unlock()

	if !cont || r.ctx.Err() != nil {
		h.finish(r, err)
		return
	}
	h.scheduler.Schedule(func() { h.tick(r) }, r.opts.Aggressive)
}

// advance performs the work of one tick. It returns false when the run
// should end; err is reported only for runs that end abnormally.
func (h *Handle) advance(r *run) (bool, error) {
	ctx := r.ctx
	if ctx.Err() != nil {
		return false, nil
	}

	if !r.opts.Aggressive && h.visibility.Hidden() {
		h.report(r, func(p *domain.IndexProgress) { p.Paused = true })
		if err := h.clock.Sleep(ctx, r.opts.HiddenDelay); err != nil {
			return false, nil
		}
		return true, nil
	}

	phase := r.state.Phase
	next, cycleDone, err := h.step(ctx, r, r.state)
	if err != nil {
		if isCancellation(ctx, err) {
			return false, nil
		}
		metrics.IndexerErrors.WithLabelValues(phase.String()).Inc()
		h.logger.Warn("indexer page failed, backing off",
			"run", r.id,
			"phase", phase.String(),
			"cursor", cursorOf(r.state),
			"backoff", r.opts.ErrorBackoff,
			"error", err)
		h.report(r, func(p *domain.IndexProgress) { p.Error = err })
		if err := h.clock.Sleep(ctx, r.opts.ErrorBackoff); err != nil {
			return false, nil
		}
		return true, nil
	}

	metrics.IndexerPagesTotal.WithLabelValues(phase.String()).Inc()

	if cycleDone {
		h.completeCycle(r)
		return false, nil
	}

	r.state = next
	h.checkpoint(r, next)
	h.report(r, nil)
	return true, nil
}

// completeCycle stamps doneAt, resets the crawl state and purges the cache.
func (h *Handle) completeCycle(r *run) {
	final := domain.NewIndexerState()
	final.DoneAt = h.clock.Now().UnixMilli()
	r.state = final
	h.checkpoint(r, final)
	h.report(r, nil)
	metrics.IndexerLastCycleTimestamp.Set(float64(final.DoneAt) / 1000)

	h.logger.Info("indexing cycle complete",
		"scope", h.scope.Key(),
		"run", r.id,
		"collections", r.collections,
		"positive", r.positive,
		"negative", r.negative)

	policy := r.opts.Purge
	if policy.EntityTTL > 0 || policy.MaxEntities > 0 || policy.MetaTTL > 0 {
		report, err := h.cache.Purge(context.WithoutCancel(r.ctx), h.scope, policy)
		if err != nil {
			h.logger.Warn("cache purge failed", "scope", h.scope.Key(), "error", err)
		} else {
			metrics.RecordPurge(report.EntitiesExpired, report.EntitiesEvicted, report.MetaExpired)
		}
	}
}

// checkpoint persists state after completed work. It ignores
// cancellation: the work it records has already been applied.
func (h *Handle) checkpoint(r *run, state domain.IndexerState) {
	if err := h.cache.SaveIndexerState(context.WithoutCancel(r.ctx), h.scope, state); err != nil {
		h.logger.Warn("failed to persist indexer state", "run", r.id, "error", err)
	}
}

// finish ends r once: it releases the handle and notifies observers.
func (h *Handle) finish(r *run, err error) {
	h.mu.Lock()
	if r.finished {
		h.mu.Unlock()
		return
	}
	r.finished = true
	r.cancel()
	if h.current == r {
		h.current = nil
	}
	h.progress.Done = true
	h.progress.Paused = false
	if err != nil {
		h.progress.Error = err
	}
	snapshot := h.progress
	h.mu.Unlock()

	metrics.IndexerIsRunning.Set(0)
	h.logger.Info("indexer stopped", "scope", h.scope.Key(), "run", r.id, "phase", r.state.Phase.String())
	h.notify(snapshot)
	close(r.done)
}

// report refreshes the progress snapshot from r and notifies observers.
func (h *Handle) report(r *run, mutate func(*domain.IndexProgress)) {
	h.mu.Lock()
	p := domain.IndexProgress{
		RunID:       r.id,
		Phase:       r.state.Phase,
		Cursor:      cursorOf(r.state),
		Total:       r.lastTotal,
		Collections: r.collections,
		Positive:    r.positive,
		Negative:    r.negative,
	}
	if mutate != nil {
		mutate(&p)
	}
	h.progress = p
	h.mu.Unlock()

	h.notify(p)
}

func (h *Handle) notify(p domain.IndexProgress) {
	for _, o := range h.observers {
		o.OnProgress(p)
	}
}

func cursorOf(s domain.IndexerState) int {
	if s.Phase == domain.PhaseBoxset {
		return s.BoxsetCursor
	}
	return s.MovieCursor
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
