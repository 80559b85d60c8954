package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/ratelimit"

	"github.com/G-grbz/monwui/internal/domain"
)

const (
	defaultTimeout           = 60 * time.Second
	defaultRequestsPerSecond = 10
	maxRetries               = 3
	baseRetryDelay           = 500 * time.Millisecond
	maxRetryDelay            = 4 * time.Second
)

// Options tunes the HTTP transport.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond int
	RetryMax          int
	RetryWait         time.Duration // first backoff step; doubles per attempt
}

// Client implements domain.Catalog for Jellyfin
type Client struct {
	baseURL string
	token   string
	userID  string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

var _ domain.Catalog = (*Client)(nil)

// NewClient creates a new Jellyfin API client. Requests are rate limited
// and retried with exponential backoff on network errors and 5xx responses.
func NewClient(baseURL, token, userID string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = maxRetries
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = baseRetryDelay
	}

	limiter := ratelimit.New(opts.RequestsPerSecond, ratelimit.WithoutSlack)

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.RetryWait
	rc.RetryWaitMax = max(maxRetryDelay, opts.RetryWait)
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = logger
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		limiter.Take()
		if attempt > 0 {
			logger.Debug("retrying jellyfin request", "attempt", attempt, "path", req.URL.Path)
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		userID:  userID,
		http:    rc,
		logger:  logger,
	}
}

// UserID returns the user the client queries as.
func (c *Client) UserID() string {
	return c.userID
}

// doRequest performs an authenticated HTTP request to the Jellyfin API
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Emby-Authorization", buildAuthHeader(c.token))

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error("jellyfin request failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrItemNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("jellyfin request error", "status", resp.StatusCode, "path", path, "body", string(respBody))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return respBody, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Items runs a paginated item search for the configured user
func (c *Client) Items(ctx context.Context, q domain.ItemQuery) (domain.ItemPage, error) {
	var resp ItemsResponse
	path := fmt.Sprintf("/Users/%s/Items", c.userID)
	if err := c.getJSON(ctx, path, itemsQuery(q), &resp); err != nil {
		return domain.ItemPage{}, err
	}
	return domain.ItemPage{
		Items:      MapItems(resp.Items),
		TotalCount: resp.TotalRecordCount,
	}, nil
}

func itemsQuery(q domain.ItemQuery) url.Values {
	query := url.Values{}
	setList := func(key string, values []string) {
		if len(values) > 0 {
			query.Set(key, strings.Join(values, ","))
		}
	}
	setList("IncludeItemTypes", q.IncludeItemTypes)
	setList("Ids", q.IDs)
	setList("SortBy", q.SortBy)
	setList("Fields", q.Fields)

	if q.ParentID != "" {
		query.Set("ParentId", q.ParentID)
	}
	if q.SearchTerm != "" {
		query.Set("SearchTerm", q.SearchTerm)
	}
	if q.SortOrder != "" {
		query.Set("SortOrder", q.SortOrder)
	}
	if q.Recursive {
		query.Set("Recursive", "true")
	}
	if q.IsPlayed != nil {
		query.Set("IsPlayed", strconv.FormatBool(*q.IsPlayed))
	}
	query.Set("StartIndex", strconv.Itoa(max(q.StartIndex, 0)))
	if q.Limit > 0 {
		query.Set("Limit", strconv.Itoa(q.Limit))
	}
	if q.IDsOnly {
		query.Set("EnableImages", "false")
		query.Set("EnableUserData", "false")
	}
	return query
}

// Ancestors returns the parents of an item, nearest first
func (c *Client) Ancestors(ctx context.Context, itemID string) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("userId", c.userID)

	var resp []Item
	path := fmt.Sprintf("/Items/%s/Ancestors", url.PathEscape(itemID))
	if err := c.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return MapItems(resp), nil
}

// Genres returns genre names for the given item types
func (c *Client) Genres(ctx context.Context, itemTypes []string) ([]string, error) {
	query := url.Values{}
	query.Set("userId", c.userID)
	query.Set("Recursive", "true")
	query.Set("SortBy", "SortName")
	query.Set("SortOrder", "Ascending")
	if len(itemTypes) > 0 {
		query.Set("IncludeItemTypes", strings.Join(itemTypes, ","))
	}

	var resp ItemsResponse
	if err := c.getJSON(ctx, "/Genres", query, &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.Name != "" {
			names = append(names, it.Name)
		}
	}
	return names, nil
}

// ServerInfo returns the server's public identity. It needs no token.
func (c *Client) ServerInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.getJSON(ctx, "/System/Info/Public", nil, &info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, errors.New("server did not report an id")
	}
	return &info, nil
}
