package cache

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/G-grbz/monwui/internal/domain"
)

// LoadIndexerState reads the persisted crawl state for scope. Missing or
// unreadable fields fall back to their initial values.
func (a *Accessor) LoadIndexerState(ctx context.Context, scope domain.Scope) domain.IndexerState {
	state := domain.NewIndexerState()
	if !a.Enabled() {
		return state
	}

	fields := []string{FieldPhase, FieldMovieCursor, FieldBoxsetCursor, FieldSeenBoxsets, FieldDoneAt}
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = IndexerKey(scope, f)
	}
	recs, err := a.kv.GetMany(ctx, domain.NamespaceMeta, keys)
	if err != nil {
		a.softFail("load indexer state", scope.Key(), err)
		return state
	}

	decode := func(field string, dest any) {
		rec, ok := recs[IndexerKey(scope, field)]
		if !ok {
			return
		}
		if err := json.Unmarshal(rec.Value, dest); err != nil {
			a.softFail("decode indexer state", field, err)
		}
	}

	var phase string
	decode(FieldPhase, &phase)
	state.Phase = domain.ParsePhase(phase)

	decode(FieldMovieCursor, &state.MovieCursor)
	decode(FieldBoxsetCursor, &state.BoxsetCursor)
	decode(FieldDoneAt, &state.DoneAt)
	state.MovieCursor = max(state.MovieCursor, 0)
	state.BoxsetCursor = max(state.BoxsetCursor, 0)

	var seen []string
	decode(FieldSeenBoxsets, &seen)
	for _, id := range seen {
		state.MarkSeen(id)
	}
	return state
}

// SaveIndexerState writes every state field in one transaction, so a crash
// never leaves a cursor from one checkpoint next to a seen set from another.
func (a *Accessor) SaveIndexerState(ctx context.Context, scope domain.Scope, state domain.IndexerState) error {
	seen := state.SeenIDs()
	sort.Strings(seen)

	return a.SetMetaBatch(ctx, map[string]any{
		IndexerKey(scope, FieldPhase):        state.Phase.String(),
		IndexerKey(scope, FieldMovieCursor):  state.MovieCursor,
		IndexerKey(scope, FieldBoxsetCursor): state.BoxsetCursor,
		IndexerKey(scope, FieldSeenBoxsets):  seen,
		IndexerKey(scope, FieldDoneAt):       state.DoneAt,
	})
}
