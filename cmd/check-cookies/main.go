// Command check-cookies reports which Duolingo session cookies local browsers hold,
// so the -browser-cookies option of duostreak can be checked before a run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser cookie stores

	"github.com/codeGROOVE-dev/duostreak/pkg/auth"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelWarn
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	ctx := context.Background()

	// First, list every cookie the browsers hold for the domain
	all, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(auth.Domain))
	if err != nil {
		logger.Debug("some cookie stores could not be read", "error", err)
	}
	names := make([]string, 0, len(all))
	seen := make(map[string]bool)
	for _, c := range all {
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	fmt.Printf("Found %d %s cookies in browser stores: %v\n", len(all), auth.Domain, names)

	cookies, err := auth.NewBrowserSource(logger).Cookies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ok := true
	for _, name := range auth.EssentialCookies {
		if _, found := cookies[name]; found {
			fmt.Printf("✅ %s\n", name)
		} else {
			fmt.Printf("❌ %s\n", name)
			ok = false
		}
	}
	if !ok {
		fmt.Println("\nSign in to duolingo.com in a local browser, or set DUO_USER and DUO_PASS.")
		os.Exit(1)
	}
}
