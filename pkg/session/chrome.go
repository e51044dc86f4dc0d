package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/codeGROOVE-dev/duostreak/pkg/auth"
	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

const chromeUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0 Safari/537.36"

const (
	userFieldSelector   = `input[data-test="email-input"], input[type="email"], input[name="email"], input[type="text"]`
	passFieldSelector   = `input[type="password"]`
	submitSelector      = `button[type="submit"], button[data-test="register-button"]`
	profileLinkSelector = `a[href*="/profile/"]`
)

// ChromeLauncher starts headless Chrome through chromedp. CHROME_PATH selects the binary.
func ChromeLauncher(logger *slog.Logger, settle time.Duration) Launcher {
	return func(ctx context.Context) (Browser, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(chromeUserAgent),
			chromedp.WindowSize(1280, 900),
		)
		if p := strings.TrimSpace(os.Getenv("CHROME_PATH")); p != "" {
			opts = append(opts, chromedp.ExecPath(p))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
		bctx, bcancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chromedp: " + fmt.Sprintf(format, args...))
		}))

		// An empty Run starts the browser so launch failures surface here.
		if err := chromedp.Run(bctx); err != nil {
			bcancel()
			allocCancel()
			return nil, err
		}
		return &chromeBrowser{ctx: bctx, cancel: bcancel, allocCancel: allocCancel, settle: settle}, nil
	}
}

type chromeBrowser struct {
	ctx         context.Context //nolint:containedctx // chromedp binds the browser to a context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	settle      time.Duration
}

func (b *chromeBrowser) SetCookies(_ context.Context, cookies map[string]string) error {
	return chromedp.Run(b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for name, value := range cookies {
			err := network.SetCookie(name, value).
				WithDomain("." + auth.Domain).
				WithPath("/").
				WithSecure(true).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("set cookie %s: %w", name, err)
			}
		}
		return nil
	}))
}

func (b *chromeBrowser) Login(_ context.Context, user, pass string) error {
	err := chromedp.Run(b.ctx,
		chromedp.Navigate(profile.BaseURL+"/log-in"),
		chromedp.WaitVisible(userFieldSelector, chromedp.ByQuery),
		chromedp.SendKeys(userFieldSelector, user, chromedp.ByQuery),
		chromedp.SendKeys(passFieldSelector, pass, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", profile.ErrLoginFailed, err)
	}

	clickCtx, cancel := context.WithTimeout(b.ctx, 10*time.Second)
	clickErr := chromedp.Run(clickCtx, chromedp.Click(submitSelector, chromedp.ByQuery, chromedp.NodeVisible))
	cancel()
	if clickErr != nil {
		if err := chromedp.Run(b.ctx, chromedp.SendKeys(passFieldSelector, kb.Enter, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("%w: submit: %w", profile.ErrLoginFailed, err)
		}
	}

	var location string
	if err := chromedp.Run(b.ctx, chromedp.Sleep(b.settle), chromedp.Location(&location)); err != nil {
		return fmt.Errorf("%w: %w", profile.ErrLoginFailed, err)
	}
	if strings.Contains(location, "/log-in") {
		return fmt.Errorf("%w: %w", profile.ErrLoginFailed, errStillOnLogin)
	}
	return nil
}

func (b *chromeBrowser) Render(_ context.Context, url string) (Page, error) {
	var p Page
	err := chromedp.Run(b.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &p.HTML, chromedp.ByQuery),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &p.Text),
	)
	return p, err
}

func (b *chromeBrowser) ProfileLink(_ context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(b.ctx, 15*time.Second)
	defer cancel()

	var href string
	var ok bool
	err := chromedp.Run(ctx,
		chromedp.WaitReady(profileLinkSelector, chromedp.ByQuery),
		chromedp.AttributeValue(profileLinkSelector, "href", &href, &ok, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errNoProfileLink
	}
	return href, nil
}

func (b *chromeBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	return err
}
