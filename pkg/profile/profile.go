// Package profile defines the canonical Duolingo profile record shared by every acquisition strategy.
package profile

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Common errors returned by strategy packages.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrLoginFailed     = errors.New("login failed")
	ErrRateLimited     = errors.New("rate limited")
)

// BaseURL is the public Duolingo site.
const BaseURL = "https://www.duolingo.com"

// URL returns the public profile page for a handle.
func URL(handle string) string {
	return BaseURL + "/profile/" + url.PathEscape(handle)
}

var handlePattern = regexp.MustCompile(`(?i)(?:^|duolingo\.com)/profile/([^/?#\s]+)`)

// Handle extracts the handle from a profile URL or path such as
// "https://www.duolingo.com/profile/ana" or "/profile/ana". Anything else is
// returned trimmed, without a leading "@".
func Handle(s string) string {
	s = strings.TrimSpace(s)
	if m := handlePattern.FindStringSubmatch(s); len(m) > 1 {
		if h, err := url.PathUnescape(m[1]); err == nil {
			return h
		}
		return m[1]
	}
	return strings.TrimPrefix(s, "@")
}

// Language is one course on the profile.
type Language struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	XP    *int   `json:"xp,omitempty"`
	Level *int   `json:"level,omitempty"`
}

// Achievement is a named badge.
type Achievement struct {
	Name string `json:"name"`
}

// Record is the persisted snapshot. Field order is the on-disk key order.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Record struct {
	ProfileHandle string        `json:"profileHandle"`
	ProfileURL    string        `json:"profileUrl"`
	StreakDays    int           `json:"streakDays"`
	TotalXP       *int          `json:"totalXp,omitempty"`
	League        string        `json:"league,omitempty"`
	Top3Count     *int          `json:"top3Count,omitempty"`
	Languages     []Language    `json:"languages"`
	Achievements  []Achievement `json:"achievements,omitempty"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}

// Partial is whatever a strategy managed to acquire. Nil and empty fields mean "not found".
//
//nolint:govet // fieldalignment: intentional layout for readability
type Partial struct {
	StreakDays   *int
	TotalXP      *int
	League       string
	Top3Count    *int
	Languages    []Language
	Achievements []Achievement
}

// Empty reports whether p carries neither a streak nor any language.
func (p *Partial) Empty() bool {
	return p == nil || (p.StreakDays == nil && len(p.Languages) == 0)
}

// Int returns a pointer to n, or nil when n is negative.
func Int(n int) *int {
	if n < 0 {
		return nil
	}
	return &n
}
