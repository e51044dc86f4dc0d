// Package session acquires a Duolingo profile by rendering the public profile page
// in a headless browser, optionally signed in.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/duostreak/pkg/htmlutil"
	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

const name = "session"

// Page is a rendered document.
type Page struct {
	HTML string
	Text string
}

// Browser is one live browser session. Close must release every resource the
// session holds and is safe to call once on any exit path.
type Browser interface {
	SetCookies(ctx context.Context, cookies map[string]string) error
	Login(ctx context.Context, user, pass string) error
	Render(ctx context.Context, url string) (Page, error)
	// ProfileLink returns the href of the first profile link on the current page.
	ProfileLink(ctx context.Context) (string, error)
	Close() error
}

// Launcher opens a Browser whose lifetime is bounded by ctx.
type Launcher func(ctx context.Context) (Browser, error)

// CookieSource supplies existing session cookies, such as auth.BrowserSource.
type CookieSource interface {
	Cookies(ctx context.Context) (map[string]string, error)
}

// Client is the browser-backed acquisition strategy.
type Client struct {
	launch  Launcher
	cookies CookieSource
	logger  *slog.Logger
	user    string
	pass    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	launch  Launcher
	cookies CookieSource
	logger  *slog.Logger
	user    string
	pass    string
	settle  time.Duration
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithCredentials signs in before rendering the profile. Empty values disable login.
func WithCredentials(user, pass string) Option {
	return func(c *config) { c.user, c.pass = user, pass }
}

// WithCookies seeds the browser with cookies from src before anything else.
func WithCookies(src CookieSource) Option {
	return func(c *config) { c.cookies = src }
}

// WithLauncher replaces the default headless Chrome launcher.
func WithLauncher(l Launcher) Option {
	return func(c *config) { c.launch = l }
}

// WithSettle sets how long a page may keep hydrating after it loads.
func WithSettle(d time.Duration) Option {
	return func(c *config) { c.settle = d }
}

// New creates a session client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), settle: 2500 * time.Millisecond}
	for _, opt := range opts {
		opt(cfg)
	}
	launch := cfg.launch
	if launch == nil {
		launch = ChromeLauncher(cfg.logger, cfg.settle)
	}
	return &Client{
		launch:  launch,
		cookies: cfg.cookies,
		logger:  cfg.logger,
		user:    cfg.user,
		pass:    cfg.pass,
	}, nil
}

// Name identifies the strategy in logs.
func (*Client) Name() string { return name }

// Fetch renders the profile page and extracts what it can. The browser is
// released before Fetch returns, whatever the outcome.
func (c *Client) Fetch(ctx context.Context, handle string) (*profile.Partial, error) {
	b, err := c.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "browser close failed", "error", cerr)
		}
	}()

	c.seedCookies(ctx, b)

	if c.user != "" && c.pass != "" {
		if err := b.Login(ctx, c.user, c.pass); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WarnContext(ctx, "login failed, continuing without a session", "error", err)
		} else {
			c.logger.InfoContext(ctx, "signed in")
		}
	}

	profileURL := profile.URL(handle) + "?via=share"
	c.logger.InfoContext(ctx, "rendering profile", "url", profileURL)
	page, err := b.Render(ctx, profileURL)
	if err != nil {
		return nil, fmt.Errorf("render profile: %w", err)
	}

	if htmlutil.IsNotFound(page.Text) || htmlutil.IsNotFound(htmlutil.Title(page.HTML)) {
		return nil, fmt.Errorf("%s: %w", handle, profile.ErrProfileNotFound)
	}

	p, source := Extract(page)
	if p.Empty() {
		if htmlutil.IsLoginWall(page.Text) {
			return nil, fmt.Errorf("profile behind login wall: %w", profile.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("nothing recognizable on %s: %w", profileURL, profile.ErrProfileNotFound)
	}
	c.logger.DebugContext(ctx, "extracted profile", "source", source)
	return p, nil
}

// DiscoverHandle signs in and reads the handle from the signed-in page's
// profile link. It needs credentials.
func (c *Client) DiscoverHandle(ctx context.Context) (string, error) {
	if c.user == "" || c.pass == "" {
		return "", fmt.Errorf("%w: no credentials", profile.ErrLoginFailed)
	}
	b, err := c.launch(ctx)
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "browser close failed", "error", cerr)
		}
	}()

	c.seedCookies(ctx, b)
	if err := b.Login(ctx, c.user, c.pass); err != nil {
		return "", err
	}
	href, err := b.ProfileLink(ctx)
	if err != nil {
		return "", fmt.Errorf("find profile link: %w", err)
	}
	if !strings.Contains(href, "/profile/") {
		return "", fmt.Errorf("%w: %q", errNoProfileLink, href)
	}
	handle := profile.Handle(href)
	if handle == "" {
		return "", fmt.Errorf("%w: %q", errNoProfileLink, href)
	}
	c.logger.InfoContext(ctx, "discovered profile handle", "handle", handle)
	return handle, nil
}

func (c *Client) seedCookies(ctx context.Context, b Browser) {
	if c.cookies == nil {
		return
	}
	cookies, err := c.cookies.Cookies(ctx)
	if err != nil || len(cookies) == 0 {
		c.logger.DebugContext(ctx, "no browser cookies to seed", "error", err)
		return
	}
	if err := b.SetCookies(ctx, cookies); err != nil {
		c.logger.WarnContext(ctx, "seeding cookies failed", "error", err)
	}
}

var (
	// errStillOnLogin is returned when the sign-in form is still showing after submit.
	errStillOnLogin  = errors.New("still on the log-in page")
	errNoProfileLink = errors.New("no profile link on the signed-in page")
)
