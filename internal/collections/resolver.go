package collections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/search"
)

const defaultCandidateLimit = 5

// ErrUnresolved reports that no collection was found but at least one remote
// lookup failed, so "no collection" cannot be confirmed.
var ErrUnresolved = errors.New("collection lookup incomplete")

// Resolver finds the collection a movie belongs to.
type Resolver struct {
	catalog        domain.Catalog
	fetcher        *Fetcher
	candidateLimit int
	logger         *slog.Logger
}

// NewResolver creates a Resolver. candidateLimit bounds the name search.
func NewResolver(catalog domain.Catalog, fetcher *Fetcher, candidateLimit int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	if fetcher == nil {
		fetcher = NewFetcher(catalog, 0)
	}
	return &Resolver{
		catalog:        catalog,
		fetcher:        fetcher,
		candidateLimit: candidateLimit,
		logger:         logger,
	}
}

// Resolve returns the movie's collection, or nil when none is found.
// Ancestors are tried first; a name search with child verification is the
// fallback. A nil result with a nil error is a confirmed "no collection".
// When nothing was found and a lookup failed, the error wraps ErrUnresolved;
// cancellation is returned as is. live reports whether any remote
// call was made.
func (r *Resolver) Resolve(ctx context.Context, movie domain.Item) (coll *domain.Item, live bool, err error) {
	if movie.ID == "" {
		return nil, false, nil
	}

	live = true
	var failed error
	ancestors, err := r.catalog.Ancestors(ctx, movie.ID)
	if err != nil {
		if isCancel(ctx, err) {
			return nil, live, err
		}
		r.logger.Debug("ancestor lookup failed", "movie", movie.ID, "error", err)
		failed = err
	}
	for _, a := range ancestors {
		if a.IsBoxSet() {
			found := a
			return &found, live, nil
		}
	}

	coll, searchErr := r.searchByName(ctx, movie)
	if searchErr != nil {
		if isCancel(ctx, searchErr) {
			return nil, live, searchErr
		}
		r.logger.Debug("collection name search failed", "movie", movie.ID, "error", searchErr)
		if failed == nil {
			failed = searchErr
		}
	}
	if coll != nil {
		return coll, live, nil
	}
	if failed != nil {
		return nil, live, fmt.Errorf("%w: %w", ErrUnresolved, failed)
	}
	return nil, live, nil
}

// searchByName returns the best verified candidate. A non-nil error with a
// nil item means the search could not rule every candidate out.
func (r *Resolver) searchByName(ctx context.Context, movie domain.Item) (*domain.Item, error) {
	term := search.SearchTerm(movie.Name)
	if term == "" {
		return nil, nil
	}

	candidates, err := r.candidates(ctx, term, r.candidateLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		word := search.FirstSignificantWord(term)
		if word == "" || strings.EqualFold(word, term) {
			return nil, nil
		}
		candidates, err = r.candidates(ctx, word, r.candidateLimit*3)
		if err != nil {
			return nil, err
		}
	}

	var verifyErr error
	for _, c := range search.RankCandidates(term, candidates) {
		ok, err := r.fetcher.ContainsChild(ctx, c.ID, movie.ID)
		if err != nil {
			if isCancel(ctx, err) {
				return nil, err
			}
			r.logger.Debug("candidate verification failed", "collection", c.ID, "error", err)
			if verifyErr == nil {
				verifyErr = err
			}
			continue
		}
		if ok {
			found := c
			return &found, nil
		}
	}
	return nil, verifyErr
}

func (r *Resolver) candidates(ctx context.Context, term string, limit int) ([]domain.Item, error) {
	page, err := r.catalog.Items(ctx, domain.ItemQuery{
		IncludeItemTypes: []string{domain.ItemTypeBoxSet},
		SearchTerm:       term,
		Recursive:        true,
		Limit:            limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Item, 0, len(page.Items))
	for _, it := range page.Items {
		if it.IsBoxSet() {
			out = append(out, it)
		}
	}
	return out, nil
}

func isCancel(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
