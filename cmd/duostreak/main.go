// Command duostreak refreshes a Duolingo profile snapshot for a static site.
//
// Usage:
//
//	DUO_PROFILE=ana duostreak
//	DUO_PROFILE=ana DUO_USER=ana@example.com DUO_PASS=... duostreak  # signed-in browser fallback
//	DUO_USER=ana@example.com DUO_PASS=... duostreak                  # handle read after signing in
//	duostreak -browser -out public/duolingo.json
//
// A .env file in the working directory is read when present.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/codeGROOVE-dev/duostreak/pkg/auth"
	"github.com/codeGROOVE-dev/duostreak/pkg/config"
	"github.com/codeGROOVE-dev/duostreak/pkg/duolingo"
	"github.com/codeGROOVE-dev/duostreak/pkg/duostreak"
	"github.com/codeGROOVE-dev/duostreak/pkg/httpcache"
	"github.com/codeGROOVE-dev/duostreak/pkg/session"
	"github.com/codeGROOVE-dev/duostreak/pkg/snapshot"
)

func main() {
	os.Exit(run())
}

func run() int {
	debug := flag.Bool("debug", false, "enable debug logging")
	verbose := flag.Bool("v", false, "verbose logging (same as -debug)")
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	out := flag.String("out", "", "snapshot path (default $DUO_OUT or "+config.DefaultOut+")")
	noCache := flag.Bool("no-cache", false, "disable HTTP caching")
	cacheTTL := flag.Duration("cache-ttl", 30*time.Minute, "HTTP cache time-to-live")
	timeout := flag.Duration("timeout", 5*time.Minute, "budget for the whole acquisition")
	strategyTimeout := flag.Duration("strategy-timeout", 60*time.Second, "budget for each acquisition strategy")
	browser := flag.Bool("browser", false, "fall back to a headless browser even without credentials")
	browserCookies := flag.Bool("browser-cookies", false, "seed the headless browser with Duolingo cookies from local browsers")
	pruneLanguages := flag.Bool("prune-languages", false, "drop courses no longer shown on the profile")
	rateLimit := flag.Duration("rate-limit", 1100*time.Millisecond, "minimum delay between requests to the same host")
	printRecord := flag.Bool("print", false, "print the written snapshot to stdout")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug || *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(*envFile, logger)
	if err != nil {
		if errors.Is(err, config.ErrNoHandle) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			flag.Usage()
		} else {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		}
		return 1
	}
	if *out != "" {
		cfg.Out = *out
	}

	httpcache.SetRateLimit(*rateLimit)
	httpCache := httpcache.NewNull()
	if !*noCache {
		c, err := httpcache.New(*cacheTTL)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			httpCache = c
			defer func() {
				if err := httpCache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			logger.Debug("HTTP cache initialized", "ttl", cacheTTL.String())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if cfg.DiscoverHandle() {
		handle, err := discoverHandle(ctx, cfg, logger, *browserCookies)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not find the profile handle after signing in: %v\n", err)
			return 1
		}
		cfg.Handle = handle
	}

	acq, err := buildAcquirer(ctx, cfg, httpCache, logger, acquirerFlags{
		browser:         *browser,
		browserCookies:  *browserCookies,
		strategyTimeout: *strategyTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	store := snapshot.New(cfg.Out, snapshot.WithLogger(logger))
	logger.Info("refreshing profile", "handle", cfg.Handle, "out", store.Path(), "strategies", acq.Strategies())

	rec, err := duostreak.Update(ctx, cfg.Handle, store, acq, duostreak.UpdateOptions{
		Merge: snapshot.MergeOptions{FullRefresh: *pruneLanguages},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	stats := httpcache.CacheStats()
	logger.Debug("HTTP cache stats", "hits", stats.Hits, "misses", stats.Misses)

	if *printRecord {
		data, err := snapshot.Marshal(*rec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
			return 1
		}
		os.Stdout.Write(data) //nolint:errcheck // best effort
	}
	return 0
}

// discoverHandle signs in with the configured credentials and reads the handle
// from the signed-in page, for runs that set only DUO_USER and DUO_PASS.
func discoverHandle(ctx context.Context, cfg *config.Config, logger *slog.Logger, browserCookies bool, extra ...session.Option) (string, error) {
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithCredentials(cfg.User, cfg.Pass),
	}
	opts = append(opts, extra...)
	if browserCookies {
		opts = append(opts, session.WithCookies(auth.NewBrowserSource(logger)))
	}
	sess, err := session.New(ctx, opts...)
	if err != nil {
		return "", err
	}
	return sess.DiscoverHandle(ctx)
}

type acquirerFlags struct {
	browser         bool
	browserCookies  bool
	strategyTimeout time.Duration
}

// buildAcquirer ranks the public API first. The browser strategy joins only
// when there are credentials or the operator asked for it.
func buildAcquirer(ctx context.Context, cfg *config.Config, cache httpcache.Cacher, logger *slog.Logger, f acquirerFlags) (*duostreak.Acquirer, error) {
	api, err := duolingo.New(ctx, duolingo.WithHTTPCache(cache), duolingo.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	opts := []duostreak.Option{
		duostreak.WithLogger(logger),
		duostreak.WithStrategyTimeout(f.strategyTimeout),
		duostreak.WithStrategy(api),
	}

	if cfg.HasCredentials() || f.browser || f.browserCookies {
		sessOpts := []session.Option{
			session.WithLogger(logger),
			session.WithCredentials(cfg.User, cfg.Pass),
		}
		if f.browserCookies {
			sessOpts = append(sessOpts, session.WithCookies(auth.NewBrowserSource(logger)))
		}
		sess, err := session.New(ctx, sessOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, duostreak.WithStrategy(sess))
	}
	return duostreak.New(opts...), nil
}
