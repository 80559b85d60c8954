// Package source connects to the configured media server and derives the
// cache scope for the session.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/G-grbz/monwui/internal/adapter"
	"github.com/G-grbz/monwui/internal/adapter/source/jellyfin"
	"github.com/G-grbz/monwui/internal/domain"
)

// Session is an authenticated catalog client and the scope it caches under.
type Session struct {
	Client *jellyfin.Client
	Scope  domain.Scope
}

// Connect builds the client from cfg, logging in with username and password
// when no token is configured. The scope's server id is taken from config,
// then from the server's public info, then from the URL.
func Connect(ctx context.Context, cfg *adapter.Config, logger *slog.Logger) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("source config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	server := cfg.Server
	if server.URL == "" {
		return nil, errors.New("server URL is required")
	}

	client := jellyfin.NewClient(server.URL, server.Token, server.UserID, jellyfin.Options{
		Timeout:           server.Timeout,
		RequestsPerSecond: server.RequestsPerSecond,
		RetryMax:          server.RetryMax,
		RetryWait:         server.RetryWait,
	}, logger)

	serverID := server.ServerID
	switch {
	case server.Token != "":
		if server.UserID == "" {
			return nil, errors.New("jellyfin requires user ID when a token is configured")
		}
	case server.Username != "":
		res, err := client.Authenticate(ctx, server.Username, server.Password)
		if err != nil {
			return nil, fmt.Errorf("authenticate %s: %w", server.Username, err)
		}
		if serverID == "" {
			serverID = res.ServerID
		}
		logger.Info("authenticated with jellyfin", "user", res.Username)
	default:
		return nil, errors.New("server token or username is required")
	}

	if serverID == "" {
		info, err := client.ServerInfo(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			logger.Warn("server info unavailable, scoping cache by URL", "error", err)
			serverID = server.URL
		} else {
			serverID = info.ID
		}
	}

	return &Session{
		Client: client,
		Scope:  domain.Scope{ServerID: serverID, UserID: client.UserID()},
	}, nil
}
