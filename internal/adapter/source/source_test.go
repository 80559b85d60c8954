package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-grbz/monwui/internal/adapter"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/System/Info/Public":
			_ = json.NewEncoder(w).Encode(map[string]string{"Id": "srv-info", "ServerName": "home"})
		case "/Users/AuthenticateByName":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"AccessToken": "tok",
				"ServerId":    "srv-auth",
				"User":        map[string]string{"Id": "u-auth", "Name": "alice"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url string) *adapter.Config {
	cfg := adapter.DefaultConfig()
	cfg.Server.URL = url
	return cfg
}

func TestConnectWithToken(t *testing.T) {
	srv := fakeServer(t)
	cfg := testConfig(srv.URL)
	cfg.Server.Token = "abc"
	cfg.Server.UserID = "u1"

	sess, err := Connect(context.Background(), cfg, adapter.NullLogger())
	require.NoError(t, err)
	assert.Equal(t, "srv-info", sess.Scope.ServerID)
	assert.Equal(t, "u1", sess.Scope.UserID)
}

func TestConnectWithPassword(t *testing.T) {
	srv := fakeServer(t)
	cfg := testConfig(srv.URL)
	cfg.Server.Username = "alice"
	cfg.Server.Password = "secret"

	sess, err := Connect(context.Background(), cfg, adapter.NullLogger())
	require.NoError(t, err)
	assert.Equal(t, "srv-auth", sess.Scope.ServerID)
	assert.Equal(t, "u-auth", sess.Scope.UserID)
}

func TestConnectConfiguredServerIDWins(t *testing.T) {
	srv := fakeServer(t)
	cfg := testConfig(srv.URL)
	cfg.Server.Token = "abc"
	cfg.Server.UserID = "u1"
	cfg.Server.ServerID = "pinned"

	sess, err := Connect(context.Background(), cfg, adapter.NullLogger())
	require.NoError(t, err)
	assert.Equal(t, "pinned", sess.Scope.ServerID)
}

func TestConnectRequiresCredentials(t *testing.T) {
	_, err := Connect(context.Background(), testConfig("http://x"), adapter.NullLogger())
	assert.Error(t, err)

	cfg := testConfig("http://x")
	cfg.Server.Token = "abc"
	_, err = Connect(context.Background(), cfg, adapter.NullLogger())
	assert.ErrorContains(t, err, "user ID")

	_, err = Connect(context.Background(), testConfig(""), adapter.NullLogger())
	assert.ErrorContains(t, err, "URL")
}
