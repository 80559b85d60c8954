package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/store"
	"github.com/G-grbz/monwui/internal/testutil"
)

var testScope = domain.Scope{ServerID: "srv", UserID: "u1"}

func newTestAccessor(t *testing.T) (*Accessor, *testutil.StubClock) {
	t.Helper()

	kv := store.NewMemory()
	t.Cleanup(func() { _ = kv.Close() })
	clock := testutil.FixedClock()
	return New(kv, WithClock(clock)), clock
}

func TestStaleBoundary(t *testing.T) {
	ttl := time.Minute
	const written = int64(1_000_000)

	tests := []struct {
		name      string
		updatedAt int64
		now       int64
		want      bool
	}{
		{name: "zero timestamp", updatedAt: 0, now: written, want: true},
		{name: "negative timestamp", updatedAt: -5, now: written, want: true},
		{name: "just written", updatedAt: written, now: written, want: false},
		{name: "age equals ttl", updatedAt: written, now: written + ttl.Milliseconds(), want: false},
		{name: "age exceeds ttl", updatedAt: written, now: written + ttl.Milliseconds() + 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stale(tt.updatedAt, ttl, tt.now))
		})
	}
}

func TestEntityRoundTripRefreshesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	a, clock := newTestAccessor(t)

	item := domain.Item{ID: "m1", Name: "Alien", Type: domain.ItemTypeMovie, Year: 1979, UpdatedAt: 1}
	require.NoError(t, a.PutEntities(ctx, testScope, []domain.Item{item}))

	got := a.GetEntity(ctx, testScope, "m1")
	require.NotNil(t, got)
	assert.Equal(t, "Alien", got.Name)
	assert.Equal(t, clock.Now().UnixMilli(), got.UpdatedAt)
	assert.False(t, a.IsStale(got.UpdatedAt, time.Hour))

	clock.Advance(time.Hour + time.Millisecond)
	assert.True(t, a.IsStale(got.UpdatedAt, time.Hour))
}

func TestGetEntityMissReturnsNil(t *testing.T) {
	a, _ := newTestAccessor(t)
	assert.Nil(t, a.GetEntity(context.Background(), testScope, "missing"))
}

func TestGetEntitiesByIDsKeepsOrderAndSkipsMissing(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccessor(t)

	require.NoError(t, a.PutEntities(ctx, testScope, []domain.Item{
		{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"},
	}))

	got := a.GetEntitiesByIDs(ctx, testScope, []string{"c", "missing", "a"})
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestEntitiesAreScoped(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccessor(t)
	other := domain.Scope{ServerID: "srv", UserID: "u2"}

	require.NoError(t, a.PutEntities(ctx, testScope, []domain.Item{{ID: "m1", Name: "Alien"}}))
	assert.Nil(t, a.GetEntity(ctx, other, "m1"))
}

func TestDisabledAccessor(t *testing.T) {
	ctx := context.Background()
	a := New(nil)

	assert.False(t, a.Enabled())
	assert.NoError(t, a.PutEntities(ctx, testScope, []domain.Item{{ID: "m1"}}))
	assert.Nil(t, a.GetEntity(ctx, testScope, "m1"))
	assert.NoError(t, a.SetMeta(ctx, "k", 1))

	var v int
	_, ok := a.GetMeta(ctx, "k", &v)
	assert.False(t, ok)
	assert.Nil(t, a.GetMembership(ctx, testScope, "m1"))
	assert.Equal(t, domain.NewIndexerState(), a.LoadIndexerState(ctx, testScope))

	report, err := a.Purge(ctx, testScope, PurgePolicy{EntityTTL: time.Second})
	assert.NoError(t, err)
	assert.Zero(t, report.Total())
}

func TestMetaRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, clock := newTestAccessor(t)

	require.NoError(t, a.SetMeta(ctx, PicksKey(testScope, "trending"), []string{"a", "b"}))

	var ids []string
	updatedAt, ok := a.GetMeta(ctx, PicksKey(testScope, "trending"), &ids)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, clock.Now().UnixMilli(), updatedAt)
}

func TestMembershipNegativeVersusUnknown(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccessor(t)

	require.NoError(t, a.PutMemberships(ctx, testScope, []domain.Membership{
		{MovieID: "m1", CollectionID: "c1", CollectionName: "Alien Collection"},
		{MovieID: "m2"},
	}))

	positive := a.GetMembership(ctx, testScope, "m1")
	require.NotNil(t, positive)
	assert.False(t, positive.IsNegative())
	assert.Equal(t, "c1", positive.CollectionID)

	negative := a.GetMembership(ctx, testScope, "m2")
	require.NotNil(t, negative)
	assert.True(t, negative.IsNegative())

	assert.Nil(t, a.GetMembership(ctx, testScope, "m3"))

	all := a.GetMemberships(ctx, testScope, []string{"m1", "m2", "m3"})
	assert.Len(t, all, 2)
	assert.NotContains(t, all, "m3")
}

func TestCollectionMembersRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccessor(t)

	require.NoError(t, a.PutCollectionMembers(ctx, testScope, domain.CollectionMembers{
		CollectionID: "c1",
		Name:         "Alien Collection",
		Items:        []domain.Item{{ID: "m1"}, {ID: "m2"}},
	}))
	require.NoError(t, a.PutCollectionMembers(ctx, testScope, domain.CollectionMembers{
		CollectionID: "c2",
		Name:         "Empty",
	}))

	got := a.GetCollectionMembers(ctx, testScope, "c1")
	require.NotNil(t, got)
	assert.Equal(t, []string{"m1", "m2"}, got.IDs())
	assert.NotZero(t, got.UpdatedAt)

	names := []string{}
	for _, c := range a.ListCollections(ctx, testScope) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Alien Collection", "Empty"}, names)
}

func TestIndexerStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccessor(t)

	assert.Equal(t, domain.NewIndexerState(), a.LoadIndexerState(ctx, testScope))

	state := domain.NewIndexerState()
	state.Phase = domain.PhaseNegative
	state.MovieCursor = 100
	state.BoxsetCursor = 50
	state.DoneAt = 123
	state.MarkSeen("c2")
	state.MarkSeen("c1")
	require.NoError(t, a.SaveIndexerState(ctx, testScope, state))

	got := a.LoadIndexerState(ctx, testScope)
	assert.Equal(t, domain.PhaseNegative, got.Phase)
	assert.Equal(t, 100, got.MovieCursor)
	assert.Equal(t, 50, got.BoxsetCursor)
	assert.Equal(t, int64(123), got.DoneAt)
	assert.True(t, got.Seen("c1"))
	assert.True(t, got.Seen("c2"))
}

func TestIndexerStateToleratesCorruptFields(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccessor(t)

	require.NoError(t, a.SetMetaBatch(ctx, map[string]any{
		IndexerKey(testScope, FieldPhase):       "bogus",
		IndexerKey(testScope, FieldMovieCursor): "not a number",
	}))

	got := a.LoadIndexerState(ctx, testScope)
	assert.Equal(t, domain.PhaseBoxset, got.Phase)
	assert.Zero(t, got.MovieCursor)
}

func TestStatsCountsScopeOnly(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccessor(t)
	other := domain.Scope{ServerID: "srv", UserID: "u10"}

	require.NoError(t, a.PutEntities(ctx, testScope, []domain.Item{{ID: "m1"}, {ID: "m2"}, {ID: "c1"}}))
	require.NoError(t, a.PutEntities(ctx, other, []domain.Item{{ID: "m9"}}))
	require.NoError(t, a.PutMemberships(ctx, testScope, []domain.Membership{
		{MovieID: "m1", CollectionID: "c1"},
		{MovieID: "m2"},
	}))
	require.NoError(t, a.PutMemberships(ctx, other, []domain.Membership{{MovieID: "m9"}}))
	require.NoError(t, a.PutCollectionMembers(ctx, testScope, domain.CollectionMembers{CollectionID: "c1"}))

	got, err := a.Stats(ctx, testScope)
	require.NoError(t, err)
	assert.Equal(t, Stats{Entities: 3, Memberships: 2, Negatives: 1, Collections: 1}, got)
}

func TestStatsDisabled(t *testing.T) {
	got, err := New(nil).Stats(context.Background(), testScope)
	require.NoError(t, err)
	assert.Zero(t, got)
}
