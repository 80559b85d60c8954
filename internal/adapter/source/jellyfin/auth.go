package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const deviceID = "monwui-indexer"

// AuthResult is the outcome of a username/password login
type AuthResult struct {
	Token    string
	UserID   string
	Username string
	ServerID string
}

// Authenticate logs in with username and password and switches the client
// to the returned token and user.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	payload := map[string]string{
		"Username": username,
		"Pw":       password,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/Users/AuthenticateByName", nil, payload)
	if err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}

	c.token = resp.AccessToken
	c.userID = resp.User.ID

	return &AuthResult{
		Token:    resp.AccessToken,
		UserID:   resp.User.ID,
		Username: resp.User.Name,
		ServerID: resp.ServerID,
	}, nil
}

// buildAuthHeader constructs the X-Emby-Authorization header
func buildAuthHeader(token string) string {
	parts := []string{
		`MediaBrowser Client="Monwui"`,
		`Device="CLI"`,
		fmt.Sprintf(`DeviceId="%s"`, deviceID),
		`Version="1.0.0"`,
	}

	if token != "" {
		parts = append(parts, fmt.Sprintf(`Token="%s"`, token))
	}

	return strings.Join(parts, ", ")
}
