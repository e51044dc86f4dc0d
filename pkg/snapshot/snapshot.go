// Package snapshot persists the canonical profile record and merges new
// acquisitions into the previously known state.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
)

// Store reads and atomically replaces one snapshot file.
type Store struct {
	logger *slog.Logger
	rename func(oldpath, newpath string) error
	path   string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store for path.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: slog.Default(), rename: os.Rename}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the snapshot location.
func (s *Store) Path() string { return s.path }

// Load returns the previous snapshot for handle, or nil when there is none
// usable. A missing, unreadable, or corrupt file is never an error.
func (s *Store) Load(ctx context.Context, handle string) *profile.Record {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.InfoContext(ctx, "no previous snapshot", "path", s.path)
		return nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "previous snapshot unreadable", "path", s.path, "error", err)
		return nil
	}

	var rec profile.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.WarnContext(ctx, "previous snapshot corrupt", "path", s.path, "error", err)
		return nil
	}
	if rec.ProfileHandle != "" && !strings.EqualFold(rec.ProfileHandle, handle) {
		s.logger.WarnContext(ctx, "previous snapshot belongs to another profile, ignoring",
			"path", s.path, "snapshot", rec.ProfileHandle, "handle", handle)
		return nil
	}
	sanitize(&rec)
	return &rec
}

// sanitize drops values no acquisition could have produced.
func sanitize(rec *profile.Record) {
	if rec.StreakDays < 0 {
		rec.StreakDays = 0
	}
	if rec.TotalXP != nil && *rec.TotalXP < 0 {
		rec.TotalXP = nil
	}
	if rec.Top3Count != nil && *rec.Top3Count < 0 {
		rec.Top3Count = nil
	}
	if name := profile.LeagueName(rec.League); name != "" {
		rec.League = name
	}
	rec.Languages = profile.NormalizeLanguages(rec.Languages)
}

// MergeOptions tune Merge.
type MergeOptions struct {
	// FullRefresh replaces the language list when the acquisition found any,
	// dropping courses the profile no longer shows.
	FullRefresh bool
}

// Merge combines the previous record with a new acquisition. Every field the
// acquisition found wins; every field it missed keeps its previous value.
// prev and acquired may each be nil.
func Merge(prev *profile.Record, acquired *profile.Partial, handle string, now time.Time, opts MergeOptions) profile.Record {
	if prev == nil {
		prev = &profile.Record{}
	}
	if acquired == nil {
		acquired = &profile.Partial{}
	}

	rec := profile.Record{
		ProfileHandle: handle,
		ProfileURL:    profile.URL(handle),
		StreakDays:    prev.StreakDays,
		TotalXP:       firstInt(acquired.TotalXP, prev.TotalXP),
		League:        prev.League,
		Top3Count:     firstInt(acquired.Top3Count, prev.Top3Count),
		Languages:     mergeLanguages(prev.Languages, acquired.Languages, opts.FullRefresh),
		Achievements:  prev.Achievements,
		LastUpdated:   now.UTC().Truncate(time.Second),
	}
	if acquired.StreakDays != nil && *acquired.StreakDays >= 0 {
		rec.StreakDays = *acquired.StreakDays
	}
	if acquired.League != "" {
		rec.League = acquired.League
	}
	if len(acquired.Achievements) > 0 {
		rec.Achievements = acquired.Achievements
	}
	if rec.StreakDays < 0 {
		rec.StreakDays = 0
	}
	return rec
}

func firstInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil && *v >= 0 {
			n := *v
			return &n
		}
	}
	return nil
}

// mergeLanguages overlays acquired entries onto matching previous ones and keeps
// the rest of both sides. The result is never nil.
func mergeLanguages(prev, acquired []profile.Language, fullRefresh bool) []profile.Language {
	acquired = profile.NormalizeLanguages(acquired)
	if fullRefresh && len(acquired) > 0 {
		return acquired
	}

	out := profile.NormalizeLanguages(prev)
	for _, l := range acquired {
		if i := indexOf(out, l); i >= 0 {
			out[i] = profile.Overlay(out[i], l)
			continue
		}
		out = append(out, l)
	}
	return profile.NormalizeLanguages(out)
}

// indexOf matches by key, then by name so a code-less entry still pairs up.
func indexOf(langs []profile.Language, l profile.Language) int {
	for i, x := range langs {
		if x.Key() == l.Key() {
			return i
		}
	}
	for i, x := range langs {
		if l.Name != "" && strings.EqualFold(x.Name, l.Name) && (x.Code == "" || l.Code == "") {
			return i
		}
	}
	return -1
}

// Marshal renders rec in the on-disk format: two-space indent, no HTML
// escaping, trailing newline.
func Marshal(rec profile.Record) ([]byte, error) {
	if rec.Languages == nil {
		rec.Languages = []profile.Language{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes rec next to the destination and renames it into place. Until the
// rename succeeds the previous file is untouched.
func (s *Store) Save(ctx context.Context, rec profile.Record) (err error) {
	data, err := Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // published asset directory
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()        //nolint:errcheck,gosec // best effort on failure path
			os.Remove(tmpName) //nolint:errcheck,gosec // best effort on failure path
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // snapshot is a public asset
		return fmt.Errorf("chmod temp file: %w", err)
	}

	var renameErr error
	err = retry.Do(
		func() error {
			renameErr = s.rename(tmpName, s.path)
			return renameErr
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.OnRetry(func(n uint, rerr error) {
			s.logger.DebugContext(ctx, "retrying snapshot rename", "attempt", n+1, "error", rerr)
		}),
	)
	if err != nil {
		if renameErr != nil {
			err = renameErr
		}
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	s.logger.InfoContext(ctx, "snapshot written", "path", s.path, "bytes", len(data))
	return nil
}
