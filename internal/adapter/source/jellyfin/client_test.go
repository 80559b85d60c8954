package jellyfin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-grbz/monwui/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "tok", "user-1", Options{
		RequestsPerSecond: 1000,
		RetryMax:          2,
		RetryWait:         time.Millisecond,
	}, nil)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestItemsBuildsQueryAndMapsPage(t *testing.T) {
	played := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Users/user-1/Items", r.URL.Path)
		assert.Contains(t, r.Header.Get("X-Emby-Authorization"), `Token="tok"`)

		q := r.URL.Query()
		assert.Equal(t, "BoxSet", q.Get("IncludeItemTypes"))
		assert.Equal(t, "true", q.Get("Recursive"))
		assert.Equal(t, "SortName", q.Get("SortBy"))
		assert.Equal(t, "20", q.Get("StartIndex"))
		assert.Equal(t, "10", q.Get("Limit"))
		assert.Equal(t, "false", q.Get("IsPlayed"))
		assert.Equal(t, "false", q.Get("EnableImages"))
		assert.Equal(t, "a,b", q.Get("Ids"))

		writeJSON(t, w, ItemsResponse{
			Items: []Item{
				{
					ID: "c1", Name: "Alien Collection", Type: "BoxSet", ProductionYear: 1979,
					RemoteTrailers: []RemoteTrailer{{Name: "Trailer", URL: "https://example.com/t"}, {Name: "empty"}},
					ImageTags:      ImageTags{Primary: "p1"},
					UserData:       &UserData{Played: true},
				},
				{Name: "no id"},
			},
			TotalRecordCount: 31,
		})
	})

	page, err := client.Items(context.Background(), domain.ItemQuery{
		IncludeItemTypes: []string{domain.ItemTypeBoxSet},
		IDs:              []string{"a", "b"},
		SortBy:           []string{"SortName"},
		StartIndex:       20,
		Limit:            10,
		Recursive:        true,
		IsPlayed:         &played,
		IDsOnly:          true,
	})
	require.NoError(t, err)
	assert.Equal(t, 31, page.TotalCount)
	require.Len(t, page.Items, 1)

	got := page.Items[0]
	assert.Equal(t, "c1", got.ID)
	assert.True(t, got.IsBoxSet())
	assert.Equal(t, 1979, got.Year)
	assert.Equal(t, "p1", got.ImageTags.Primary)
	assert.True(t, got.Played)
	assert.Equal(t, []domain.Trailer{{Name: "Trailer", URL: "https://example.com/t"}}, got.Trailers)
}

func TestAncestors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Items/m1/Ancestors", r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("userId"))
		writeJSON(t, w, []Item{
			{ID: "c1", Name: "Alien Collection", Type: "BoxSet"},
			{ID: "lib", Name: "Movies", Type: "CollectionFolder"},
		})
	})

	items, err := client.Ancestors(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c1", items[0].ID)
}

func TestGenres(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Genres", r.URL.Path)
		assert.Equal(t, "Movie", r.URL.Query().Get("IncludeItemTypes"))
		writeJSON(t, w, ItemsResponse{Items: []Item{{ID: "g1", Name: "Action"}, {ID: "g2", Name: "Drama"}}})
	})

	genres, err := client.Genres(context.Background(), []string{domain.ItemTypeMovie})
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Drama"}, genres)
}

func TestUnauthorizedMapsToErrAuthFailed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Items(context.Background(), domain.ItemQuery{})
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, ItemsResponse{Items: []Item{{ID: "m1", Type: "Movie"}}, TotalRecordCount: 1})
	})

	page, err := client.Items(context.Background(), domain.ItemQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPersistentServerErrorIsOffline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Items(context.Background(), domain.ItemQuery{})
	assert.True(t, errors.Is(err, domain.ErrServerOffline), "got %v", err)
}

func TestCancelledContextIsReturnedAsIs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, ItemsResponse{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Items(ctx, domain.ItemQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthenticateSwitchesToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Users/AuthenticateByName":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NotContains(t, r.Header.Get("X-Emby-Authorization"), "Token=")

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body["Username"])

			writeJSON(t, w, AuthResponse{
				AccessToken: "fresh",
				User:        User{ID: "user-2", Name: "alice"},
				ServerID:    "srv-1",
			})
		default:
			assert.Equal(t, "/Users/user-2/Items", r.URL.Path)
			assert.Contains(t, r.Header.Get("X-Emby-Authorization"), `Token="fresh"`)
			writeJSON(t, w, ItemsResponse{})
		}
	})
	client.token = ""

	res, err := client.Authenticate(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", res.ServerID)
	assert.Equal(t, "user-2", client.UserID())

	_, err = client.Items(context.Background(), domain.ItemQuery{})
	require.NoError(t, err)
}

func TestServerInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/System/Info/Public", r.URL.Path)
		writeJSON(t, w, SystemInfo{ID: "srv-1", ServerName: "home"})
	})

	info, err := client.ServerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "srv-1", info.ID)
}
