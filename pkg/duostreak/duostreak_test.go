package duostreak

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
	"github.com/codeGROOVE-dev/duostreak/pkg/snapshot"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeStrategy struct {
	name   string
	result *profile.Partial
	err    error
	block  bool
	calls  atomic.Int32
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Fetch(ctx context.Context, _ string) (*profile.Partial, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func found(streak int) *profile.Partial {
	return &profile.Partial{
		StreakDays: profile.Int(streak),
		Languages:  []profile.Language{{Name: "French", Code: "fr", XP: profile.Int(500)}},
	}
}

func TestAcquireStopsAtFirstSuccess(t *testing.T) {
	api := &fakeStrategy{name: "public-api", result: found(321)}
	browser := &fakeStrategy{name: "session", result: found(1)}
	acq := New(WithLogger(quiet), WithStrategy(api), WithStrategy(browser))

	got, source := acq.Acquire(context.Background(), "ana")
	if source != "public-api" {
		t.Errorf("source = %q, want public-api", source)
	}
	if diff := cmp.Diff(found(321), got); diff != "" {
		t.Errorf("Acquire() mismatch (-want +got):\n%s", diff)
	}
	if n := browser.calls.Load(); n != 0 {
		t.Errorf("session strategy called %d times, want 0", n)
	}
}

func TestAcquireFallsThrough(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeStrategy
	}{
		{"not found", &fakeStrategy{name: "public-api", err: profile.ErrProfileNotFound}},
		{"empty result", &fakeStrategy{name: "public-api", result: &profile.Partial{TotalXP: profile.Int(10)}}},
		{"nil result", &fakeStrategy{name: "public-api"}},
		{"transport error", &fakeStrategy{name: "public-api", err: errors.New("connection reset")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser := &fakeStrategy{name: "session", result: found(7)}
			acq := New(WithLogger(quiet), WithStrategy(tt.api), WithStrategy(browser))
			got, source := acq.Acquire(context.Background(), "ana")
			if source != "session" || *got.StreakDays != 7 {
				t.Errorf("Acquire() = %v from %q, want streak 7 from session", got.StreakDays, source)
			}
			if tt.api.calls.Load() != 1 || browser.calls.Load() != 1 {
				t.Errorf("calls = %d/%d, want 1/1", tt.api.calls.Load(), browser.calls.Load())
			}
		})
	}
}

func TestAcquireTimeoutMovesOn(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	slow := &fakeStrategy{name: "public-api", block: true}
	browser := &fakeStrategy{name: "session", result: found(3)}
	acq := New(WithLogger(logger), WithStrategyTimeout(20*time.Millisecond), WithStrategy(slow), WithStrategy(browser))

	_, source := acq.Acquire(context.Background(), "ana")
	if source != "session" {
		t.Errorf("source = %q, want session", source)
	}
	if !strings.Contains(logs.String(), "kind=timeout") || !strings.Contains(logs.String(), "strategy=public-api") {
		t.Errorf("log does not classify the timeout:\n%s", logs.String())
	}
}

func TestAcquireAllFail(t *testing.T) {
	acq := New(WithLogger(quiet),
		WithStrategy(&fakeStrategy{name: "public-api", err: profile.ErrRateLimited}),
		WithStrategy(&fakeStrategy{name: "session", err: profile.ErrProfileNotFound}),
	)
	got, source := acq.Acquire(context.Background(), "ana")
	if source != "" {
		t.Errorf("source = %q, want none", source)
	}
	if diff := cmp.Diff(&profile.Partial{}, got); diff != "" {
		t.Errorf("Acquire() mismatch (-want +got):\n%s", diff)
	}
}

func TestAcquireCancelledParentStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeStrategy{name: "public-api", err: errors.New("boom")}
	second := &fakeStrategy{name: "session", result: found(1)}
	cancel()

	_, source := New(WithLogger(quiet), WithStrategy(first), WithStrategy(second)).Acquire(ctx, "ana")
	if source != "" || first.calls.Load() != 0 || second.calls.Load() != 0 {
		t.Errorf("source=%q calls=%d/%d, want nothing to run", source, first.calls.Load(), second.calls.Load())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, KindTimeout},
		{errors.Join(errors.New("x"), profile.ErrProfileNotFound), KindNotFound},
		{profile.ErrLoginFailed, KindError},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestStrategies(t *testing.T) {
	acq := New(WithStrategy(&fakeStrategy{name: "public-api"}), WithStrategy(&fakeStrategy{name: "session"}))
	if diff := cmp.Diff([]string{"public-api", "session"}, acq.Strategies()); diff != "" {
		t.Errorf("Strategies() mismatch (-want +got):\n%s", diff)
	}
}

func fixedNow() time.Time { return time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC) }

func TestUpdateKeepsPreviousOnTotalFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duolingo.json")
	store := snapshot.New(path, snapshot.WithLogger(quiet))
	ctx := context.Background()

	good := New(WithLogger(quiet), WithStrategy(&fakeStrategy{name: "public-api", result: found(321)}))
	first, err := Update(ctx, "ana", store, good, UpdateOptions{Now: fixedNow})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	broken := New(WithLogger(quiet), WithStrategy(&fakeStrategy{name: "public-api", err: profile.ErrRateLimited}))
	later := func() time.Time { return fixedNow().Add(24 * time.Hour) }
	second, err := Update(ctx, "ana", store, broken, UpdateOptions{Now: later})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if second.StreakDays != 321 {
		t.Errorf("StreakDays = %d, want the previous 321", second.StreakDays)
	}
	if diff := cmp.Diff(first.Languages, second.Languages); diff != "" {
		t.Errorf("Languages changed (-first +second):\n%s", diff)
	}
	if !second.LastUpdated.Equal(later()) {
		t.Errorf("LastUpdated = %v, want %v", second.LastUpdated, later())
	}
}

func TestUpdateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duolingo.json")
	store := snapshot.New(path, snapshot.WithLogger(quiet))
	acq := New(WithLogger(quiet), WithStrategy(&fakeStrategy{name: "public-api", result: found(321)}))
	ctx := context.Background()

	var files []string
	for range 2 {
		if _, err := Update(ctx, "ana", store, acq, UpdateOptions{Now: fixedNow}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		files = append(files, string(data))
	}
	if diff := cmp.Diff(files[0], files[1]); diff != "" {
		t.Errorf("second run changed the file (-first +second):\n%s", diff)
	}
}

func TestUpdateWritesAfterDeadline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duolingo.json")
	store := snapshot.New(path, snapshot.WithLogger(quiet))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := Update(ctx, "ana", store, New(WithLogger(quiet)), UpdateOptions{Now: fixedNow})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if rec.ProfileHandle != "ana" || rec.StreakDays != 0 {
		t.Errorf("Update() = %+v", rec)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestUpdateSaveFailure(t *testing.T) {
	dir := t.TempDir()
	// Renaming a file over a non-empty directory fails.
	if err := os.WriteFile(filepath.Join(dir, "keep"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	store := snapshot.New(dir, snapshot.WithLogger(quiet))
	if _, err := Update(context.Background(), "ana", store, New(WithLogger(quiet))); err == nil {
		t.Error("Update() error = nil, want a save failure")
	}
}
