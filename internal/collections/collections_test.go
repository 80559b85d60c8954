package collections

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-grbz/monwui/internal/cache"
	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/store"
	"github.com/G-grbz/monwui/internal/testutil"
)

var testScope = domain.Scope{ServerID: "srv", UserID: "u1"}

func newTestCache(t *testing.T) (*cache.Accessor, *testutil.StubClock) {
	t.Helper()

	kv := store.NewMemory()
	t.Cleanup(func() { _ = kv.Close() })
	clock := testutil.FixedClock()
	return cache.New(kv, cache.WithClock(clock)), clock
}

func TestFetcherPagesAndDedupes(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		cat.AddMovie(id, "Movie "+id)
	}
	cat.AddCollection("c1", "Saga", "m1", "m2", "m3", "m4", "m5")

	members, err := NewFetcher(cat, 2).Members(context.Background(), "c1")
	require.NoError(t, err)

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5"}, ids)
	assert.Len(t, cat.ItemCalls(), 3)
}

func TestFetcherPropagatesErrors(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	boom := errors.New("boom")
	cat.ItemsHook = func(domain.ItemQuery) error { return boom }

	_, err := NewFetcher(cat, 0).Members(context.Background(), "c1")
	assert.ErrorIs(t, err, boom)
}

func TestResolveViaAncestors(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	movie := cat.AddMovie("m1", "Alien")
	coll := cat.AddCollection("c1", "Alien Collection", "m1")
	cat.SetAncestors("m1", domain.Item{ID: "lib", Type: "CollectionFolder"}, coll)

	got, live, err := NewResolver(cat, nil, 5, nil).Resolve(context.Background(), movie)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, live)
	assert.Equal(t, "c1", got.ID)
	assert.Empty(t, cat.ItemCalls(), "name search must not run when ancestors answer")
}

func TestResolveViaNameSearchVerifiesMembership(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	movie := cat.AddMovie("m2", "Alien: Resurrection (1997)")
	cat.AddMovie("p1", "Predator")
	cat.AddCollection("c0", "Alien vs. Predator Collection", "p1")
	cat.AddCollection("c1", "Alien Collection", "m2")

	got, _, err := NewResolver(cat, nil, 5, nil).Resolve(context.Background(), movie)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)
}

func TestResolveWidensSearchOnce(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	movie := cat.AddMovie("m1", "The Lord of the Rings: The Two Towers")
	cat.AddCollection("c1", "Lord Collection", "m1")

	got, _, err := NewResolver(cat, nil, 2, nil).Resolve(context.Background(), movie)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)

	var searches []domain.ItemQuery
	for _, q := range cat.ItemCalls() {
		if q.SearchTerm != "" {
			searches = append(searches, q)
		}
	}
	require.Len(t, searches, 2)
	assert.Equal(t, "The Lord of the Rings", searches[0].SearchTerm)
	assert.Equal(t, 2, searches[0].Limit)
	assert.Equal(t, "lord", searches[1].SearchTerm)
	assert.Equal(t, 6, searches[1].Limit)
}

func TestResolveReportsIncompleteLookup(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	movie := cat.AddMovie("m1", "Alien")
	cat.AncestorsErr = domain.ErrServerOffline
	cat.ItemsHook = func(domain.ItemQuery) error { return domain.ErrServerOffline }

	got, _, err := NewResolver(cat, nil, 5, nil).Resolve(context.Background(), movie)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.ErrorIs(t, err, domain.ErrServerOffline)
	assert.Nil(t, got)
}

func TestResolveAncestorFailureStillFindsByName(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	movie := cat.AddMovie("m1", "Alien")
	cat.AddCollection("c1", "Alien Collection", "m1")
	cat.AncestorsErr = domain.ErrServerOffline

	got, _, err := NewResolver(cat, nil, 5, nil).Resolve(context.Background(), movie)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)
}

func TestResolveVerificationFailureIsIncomplete(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	movie := cat.AddMovie("m1", "Heat")
	cat.AddCollection("c1", "Heat Collection", "m1")
	cat.ItemsHook = func(q domain.ItemQuery) error {
		if q.ParentID == "c1" {
			return errors.New("502")
		}
		return nil
	}

	got, _, err := NewResolver(cat, nil, 5, nil).Resolve(context.Background(), movie)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Nil(t, got)
}

func TestResolveReturnsCancellation(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	movie := cat.AddMovie("m1", "Alien")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewResolver(cat, nil, 5, nil).Resolve(ctx, movie)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveOrphan(t *testing.T) {
	cat := testutil.NewFakeCatalog()
	movie := cat.AddMovie("m1", "Heat")
	cat.AddCollection("c1", "Heat Collection")

	got, _, err := NewResolver(cat, nil, 5, nil).Resolve(context.Background(), movie)
	require.NoError(t, err)
	assert.Nil(t, got, "candidate without the movie as a child must be rejected")
}

func TestSyncFetchesThenReusesFreshList(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t)
	cat := testutil.NewFakeCatalog()
	cat.AddMovie("m1", "Alien")
	cat.AddMovie("m2", "Aliens")
	coll := cat.AddCollection("c1", "Alien Collection", "m1", "m2")

	syncer := NewSyncer(c, NewFetcher(cat, 0), nil)

	live, members, err := syncer.Sync(ctx, testScope, coll, time.Hour)
	require.NoError(t, err)
	assert.True(t, live)
	assert.Len(t, members, 2)

	m := c.GetMembership(ctx, testScope, "m2")
	require.NotNil(t, m)
	assert.Equal(t, "c1", m.CollectionID)
	assert.NotNil(t, c.GetEntity(ctx, testScope, "m1"))
	assert.NotNil(t, c.GetEntity(ctx, testScope, "c1"))

	cat.ResetCalls()
	clock.Advance(30 * time.Minute)
	live, members, err = syncer.Sync(ctx, testScope, coll, time.Hour)
	require.NoError(t, err)
	assert.False(t, live)
	assert.Len(t, members, 2)
	assert.Empty(t, cat.ItemCalls())

	clock.Advance(31 * time.Minute)
	live, _, err = syncer.Sync(ctx, testScope, coll, time.Hour)
	require.NoError(t, err)
	assert.True(t, live, "stale member list must be refetched")
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	cat := testutil.NewFakeCatalog()
	cat.AddMovie("m1", "Alien")
	coll := cat.AddCollection("c1", "Alien Collection", "m1")
	syncer := NewSyncer(c, NewFetcher(cat, 0), nil)

	_, _, err := syncer.Sync(ctx, testScope, coll, 0)
	require.NoError(t, err)
	first := c.GetMembership(ctx, testScope, "m1")

	_, _, err = syncer.Sync(ctx, testScope, coll, 0)
	require.NoError(t, err)
	second := c.GetMembership(ctx, testScope, "m1")

	require.NotNil(t, first)
	assert.Equal(t, *first, *second)
	assert.Equal(t, []string{"m1"}, c.GetCollectionMembers(ctx, testScope, "c1").IDs())
}

// cancelAfterItems cancels the caller's context once a page has been served.
type cancelAfterItems struct {
	*testutil.FakeCatalog
	cancel context.CancelFunc
}

func (c cancelAfterItems) Items(ctx context.Context, q domain.ItemQuery) (domain.ItemPage, error) {
	page, err := c.FakeCatalog.Items(ctx, q)
	c.cancel()
	return page, err
}

func TestRefreshDoesNotWarnWhenCanceledDuringWrite(t *testing.T) {
	c, _ := newTestCache(t)
	fake := testutil.NewFakeCatalog()
	fake.AddMovie("m1", "Alien")
	coll := fake.AddCollection("c1", "Alien Collection", "m1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cat := cancelAfterItems{FakeCatalog: fake, cancel: cancel}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	members, err := NewSyncer(c, NewFetcher(cat, 0), logger).Refresh(ctx, testScope, coll)
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.NotContains(t, logs.String(), "level=WARN")
	assert.Nil(t, c.GetCollectionMembers(context.Background(), testScope, "c1"))
}
