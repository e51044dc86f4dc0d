package duolingo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/duostreak/pkg/httpcache"
	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

func init() {
	httpcache.SetRateLimit(0)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	modernPayload = `{"users":[{"username":"ana","streak":321,"totalXp":120609,
		"courses":[{"title":"French","learningLanguage":"fr","xp":500,"crowns":12}]}]}`
	legacyPayload = `{"username":"ana","site_streak":12,
		"language_data":{"es":{"language_string":"Spanish","points":40,"level":3}}}`
)

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(context.Background(), WithBaseURL(srv.URL), WithLogger(quiet))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestFetchModernEndpoint(t *testing.T) {
	var legacyHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2017-06-30/users":
			if got := r.URL.Query().Get("username"); got != "ana maria" {
				t.Errorf("username = %q", got)
			}
			w.Write([]byte(modernPayload)) //nolint:errcheck // test
		default:
			legacyHits.Add(1)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	got, err := newClient(t, srv).Fetch(context.Background(), "ana maria")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	want := &profile.Partial{
		StreakDays: profile.Int(321),
		TotalXP:    profile.Int(120609),
		Languages:  []profile.Language{{Name: "French", Code: "fr", XP: profile.Int(500), Level: profile.Int(12)}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
	if legacyHits.Load() != 0 {
		t.Errorf("legacy endpoint called %d times, want 0", legacyHits.Load())
	}
}

func TestFetchFallsBackToLegacyEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2017-06-30/users":
			w.WriteHeader(http.StatusInternalServerError)
		case "/users/ana":
			w.Write([]byte(legacyPayload)) //nolint:errcheck // test
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	got, err := newClient(t, srv).Fetch(context.Background(), "ana")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.StreakDays == nil || *got.StreakDays != 12 {
		t.Errorf("StreakDays = %v, want 12", got.StreakDays)
	}
	want := []profile.Language{{Name: "Spanish", Code: "es", XP: profile.Int(40), Level: profile.Int(3)}}
	if diff := cmp.Diff(want, got.Languages); diff != "" {
		t.Errorf("Languages mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2017-06-30/users" {
			w.Write([]byte(`{"users":[]}`)) //nolint:errcheck // test
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Fetch(context.Background(), "ghost")
	if !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("Fetch() error = %v, want ErrProfileNotFound", err)
	}
}

func TestFetchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Fetch(context.Background(), "ana")
	if !errors.Is(err, profile.ErrRateLimited) {
		t.Errorf("Fetch() error = %v, want ErrRateLimited", err)
	}
}

func TestFetchGarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`)) //nolint:errcheck // test
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Fetch(context.Background(), "ana")
	if !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("Fetch() error = %v, want ErrProfileNotFound", err)
	}
}

func TestName(t *testing.T) {
	c, err := New(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "public-api" {
		t.Errorf("Name() = %q", c.Name())
	}
}
