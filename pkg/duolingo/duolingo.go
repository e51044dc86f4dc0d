// Package duolingo fetches a Duolingo profile from the public, unauthenticated API.
package duolingo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/duostreak/pkg/httpcache"
	"github.com/codeGROOVE-dev/duostreak/pkg/normalize"
	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

const name = "public-api"

// endpoints are tried in order; {h} is replaced by the escaped handle.
var endpoints = []struct {
	path   string
	escape func(string) string
}{
	{"/2017-06-30/users?username={h}", url.QueryEscape},
	{"/users/{h}", url.PathEscape},
}

// Client handles Duolingo API requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	baseURL    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpcache.Cacher
	logger  *slog.Logger
	baseURL string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL points the client at another host, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = strings.TrimRight(u, "/") }
}

// New creates a Duolingo client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: profile.BaseURL}
	for _, opt := range opts {
		opt(cfg)
	}

	cache := cfg.cache
	if cache == nil {
		cache = httpcache.NewNull()
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		logger:     cfg.logger,
		baseURL:    cfg.baseURL,
	}, nil
}

// Name identifies the strategy in logs.
func (*Client) Name() string { return name }

// Fetch tries each endpoint once and normalizes the first parseable payload.
func (c *Client) Fetch(ctx context.Context, handle string) (*profile.Partial, error) {
	c.logger.InfoContext(ctx, "fetching duolingo profile", "handle", handle)

	var errs []error
	for _, ep := range endpoints {
		apiURL := c.baseURL + strings.ReplaceAll(ep.path, "{h}", ep.escape(handle))
		p, err := c.fetchOne(ctx, apiURL)
		if err == nil {
			return p, nil
		}
		c.logger.DebugContext(ctx, "endpoint failed", "url", apiURL, "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, classify(errors.Join(errs...))
}

func (c *Client) fetchOne(ctx context.Context, apiURL string) (*profile.Partial, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "application/json")

	body, err := httpcache.FetchURLWithValidator(ctx, c.cache, c.httpClient, req, c.logger, parseable)
	if err != nil {
		return nil, err
	}
	return parseJSON(body)
}

// parseable keeps bodies without a user object out of the cache.
func parseable(body []byte) bool {
	_, err := parseJSON(body)
	return err == nil
}

func parseJSON(data []byte) (*profile.Partial, error) {
	payload, err := normalize.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrProfileNotFound, err)
	}
	user, err := normalize.UserObject(payload)
	if err != nil {
		return nil, err
	}
	return normalize.Partial(user), nil
}

// classify maps transport errors onto the shared profile errors.
func classify(err error) error {
	var httpErr *httpcache.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", profile.ErrProfileNotFound, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", profile.ErrRateLimited, err)
		}
	}
	return err
}
