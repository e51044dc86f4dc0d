// Package auth reads an existing Duolingo session from local browser cookie stores.
package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser cookie stores
	"github.com/browserutils/kooky/browser/chrome"
	"github.com/browserutils/kooky/browser/firefox"
)

// Domain is the cookie domain of the Duolingo site.
const Domain = "duolingo.com"

// EssentialCookies are the cookies that carry a signed-in Duolingo session.
var EssentialCookies = []string{"jwt_token"}

// BrowserSource reads cookies from browser cookie stores.
type BrowserSource struct {
	logger *slog.Logger
	home   string
}

// NewBrowserSource creates a new browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserSource{logger: logger, home: os.Getenv("HOME")}
}

// Cookies returns the essential Duolingo cookies found in browser stores.
// A missing or unreadable store is not an error; the result is simply empty.
func (s *BrowserSource) Cookies(ctx context.Context) (map[string]string, error) {
	s.logger.DebugContext(ctx, "reading browser cookies", "domain", Domain)

	// Firefox-based profiles first; kooky does not auto-detect Zen or Linux Firefox paths.
	if cookies := s.tryFirefoxProfiles(ctx); len(cookies) > 0 {
		return cookies, nil
	}
	if cookies := s.tryChromeCanary(ctx); len(cookies) > 0 {
		return cookies, nil
	}

	// Fall back to kooky's automatic browser detection
	kookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(Domain))
	if err != nil {
		s.logger.Debug("failed to read browser cookies", "error", err)
		return nil, nil //nolint:nilnil // failed browser read is not a fatal error
	}
	if len(kookies) == 0 {
		return nil, nil //nolint:nilnil // no browser cookies is not an error
	}
	return s.filterEssentialCookies(kookies), nil
}

func (s *BrowserSource) firefoxCookieFiles() []string {
	if s.home == "" {
		return nil
	}
	patterns := []string{
		filepath.Join(s.home, "Library", "Application Support", "zen", "Profiles", "*", "cookies.sqlite"),
		filepath.Join(s.home, "Library", "Application Support", "Firefox", "Profiles", "*", "cookies.sqlite"),
		filepath.Join(s.home, ".mozilla", "firefox", "*", "cookies.sqlite"),
	}
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	return files
}

// tryFirefoxProfiles attempts to read cookies from Firefox and Zen Browser profiles.
func (s *BrowserSource) tryFirefoxProfiles(ctx context.Context) map[string]string {
	for _, f := range s.firefoxCookieFiles() {
		kookies, err := firefox.ReadCookies(ctx, f, kooky.Valid, kooky.DomainHasSuffix(Domain))
		if err != nil {
			s.logger.Debug("failed to read Firefox cookies", "profile", filepath.Base(filepath.Dir(f)), "error", err)
			continue
		}
		if len(kookies) > 0 {
			s.logger.Debug("found Firefox cookies", "profile", filepath.Base(filepath.Dir(f)), "count", len(kookies))
			if cookies := s.filterEssentialCookies(kookies); len(cookies) > 0 {
				return cookies
			}
		}
	}
	return nil
}

// tryChromeCanary attempts to read cookies from Chrome Canary profiles.
func (s *BrowserSource) tryChromeCanary(ctx context.Context) map[string]string {
	if s.home == "" {
		return nil
	}

	canaryDir := filepath.Join(s.home, "Library", "Application Support", "Google", "Chrome Canary")
	for _, profile := range []string{"Default", "Profile 1", "Profile 2", "Profile 3"} {
		cookiesFile := filepath.Join(canaryDir, profile, "Cookies")
		if _, err := os.Stat(cookiesFile); err != nil {
			continue
		}

		kookies, err := chrome.ReadCookies(ctx, cookiesFile, kooky.Valid, kooky.DomainHasSuffix(Domain))
		if err != nil {
			if strings.Contains(err.Error(), "encryption") || strings.Contains(err.Error(), "decrypt") {
				s.logger.Warn("Chrome Canary cookies exist but cannot be decrypted",
					"profile", profile,
					"hint", "try Firefox, or set DUO_USER and DUO_PASS")
			} else {
				s.logger.Debug("failed to read Chrome Canary cookies", "profile", profile, "error", err)
			}
			continue
		}
		if len(kookies) > 0 {
			s.logger.Debug("found Chrome Canary cookies", "profile", profile, "count", len(kookies))
			return s.filterEssentialCookies(kookies)
		}
	}
	return nil
}

// filterEssentialCookies keeps only the session cookies.
func (s *BrowserSource) filterEssentialCookies(kookies []*kooky.Cookie) map[string]string {
	essentialSet := make(map[string]bool, len(EssentialCookies))
	for _, name := range EssentialCookies {
		essentialSet[name] = true
	}

	cookies := make(map[string]string)
	for _, c := range kookies {
		if essentialSet[c.Name] && c.Value != "" {
			cookies[c.Name] = c.Value
		}
	}

	var found, missing []string
	for _, name := range EssentialCookies {
		if _, ok := cookies[name]; ok {
			found = append(found, name)
		} else {
			missing = append(missing, name)
		}
	}
	if len(found) > 0 {
		s.logger.Info("browser cookies found", "keys", found)
	}
	if len(missing) > 0 {
		s.logger.Info("browser cookies missing", "keys", missing)
	}

	return cookies
}
