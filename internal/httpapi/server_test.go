package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-grbz/monwui/internal/adapter"
	"github.com/G-grbz/monwui/internal/cache"
	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/indexer"
	"github.com/G-grbz/monwui/internal/service"
	"github.com/G-grbz/monwui/internal/store"
	"github.com/G-grbz/monwui/internal/testutil"
)

var testScope = domain.Scope{ServerID: "srv", UserID: "u1"}

type fakeIndexer struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
}

func (f *fakeIndexer) Start(context.Context, indexer.Options) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakeIndexer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
}

func (f *fakeIndexer) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeIndexer) Progress() domain.IndexProgress {
	return domain.IndexProgress{RunID: "run-1", Phase: domain.PhaseNegative, Cursor: 40, Total: 90, Positive: 7}
}

type fixture struct {
	router  http.Handler
	catalog *testutil.FakeCatalog
	cache   *cache.Accessor
	indexer *fakeIndexer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	kv := store.NewMemory()
	t.Cleanup(func() { _ = kv.Close() })
	c := cache.New(kv, cache.WithClock(testutil.FixedClock()))
	cat := testutil.NewFakeCatalog()
	idx := &fakeIndexer{}

	svc := service.NewCollectionService(cat, c, testScope, 0, adapter.NullLogger())
	srv := New(context.Background(), svc, idx, indexer.DefaultOptions(), adapter.NullLogger())
	return &fixture{router: srv.Router(), catalog: cat, cache: c, indexer: idx}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCollectionForMovieUnknownIs404(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/collections/movie/m1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollectionForMovieNegative(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cache.PutMemberships(context.Background(), testScope, []domain.Membership{{MovieID: "m1"}}))

	rec := f.do(t, http.MethodGet, "/api/collections/movie/m1")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[MembershipResponse](t, rec)
	assert.True(t, got.None)
	assert.Empty(t, got.CollectionID)
}

func TestCollectionForMovieLive(t *testing.T) {
	f := newFixture(t)
	movie := f.catalog.AddMovie("m1", "Alien")
	coll := f.catalog.AddCollection("c1", "Alien Collection", "m1")
	f.catalog.SetAncestors(movie.ID, coll)

	rec := f.do(t, http.MethodGet, "/api/collections/movie/m1?live=1")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[MembershipResponse](t, rec)
	assert.Equal(t, "c1", got.CollectionID)
	assert.Equal(t, "Alien Collection", got.CollectionName)
	assert.False(t, got.None)
}

func TestCollectionForMovieLiveUnknownMovie(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/collections/movie/ghost?live=true")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "movie not found")
}

func TestMembersOfCollection(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/collections/c1/members")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	f.catalog.AddMovie("m1", "Alien")
	f.catalog.AddMovie("m2", "Aliens")
	f.catalog.AddCollection("c1", "Alien Collection", "m1", "m2")

	rec = f.do(t, http.MethodGet, "/api/collections/c1/members?live=1")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]ItemResponse](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "Alien", got[0].Name)
}

func TestFindCollections(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cache.PutCollectionMembers(context.Background(), testScope, domain.CollectionMembers{
		CollectionID: "c1",
		Name:         "The Matrix Collection",
	}))

	rec := f.do(t, http.MethodGet, "/api/collections?q=matrix")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]CollectionMatchResponse](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/collections").Code)
}

func TestIndexerControl(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/indexer/start")
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decode[map[string]any](t, rec)
	assert.Equal(t, true, started["started"])

	rec = f.do(t, http.MethodPost, "/api/indexer/start")
	assert.Equal(t, false, decode[map[string]any](t, rec)["started"])

	rec = f.do(t, http.MethodGet, "/api/indexer")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[ProgressResponse](t, rec)
	assert.True(t, status.Running)
	assert.Equal(t, "negative", status.Phase)
	assert.Equal(t, 40, status.Cursor)

	rec = f.do(t, http.MethodPost, "/api/indexer/stop")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[ProgressResponse](t, rec).Running)
	assert.Equal(t, 1, f.indexer.stops)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		method string
		path   string
	}{
		{method: http.MethodGet, path: "/api/indexer/start"},
		{method: http.MethodPost, path: "/api/indexer"},
		{method: http.MethodPost, path: "/healthz"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "method not allowed", decode[map[string]string](t, rec)["error"])
		})
	}
	assert.Zero(t, f.indexer.starts)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthz")

	rec := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "monwui_http_requests_total")
}
