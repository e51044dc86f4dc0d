// Package duostreak keeps a Duolingo profile snapshot current by trying a
// ranked list of acquisition strategies and merging the result into the
// previous snapshot.
//
// Basic usage:
//
//	api, _ := duolingo.New(ctx)
//	acq := duostreak.New(duostreak.WithStrategy(api))
//	rec, err := duostreak.Update(ctx, "ana", snapshot.New("assets/data/duolingo.json"), acq)
//
// Acquisition failures never surface as errors; the snapshot is rewritten from
// what is already known. Only a failed write is reported.
package duostreak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/duostreak/pkg/profile"
	"github.com/codeGROOVE-dev/duostreak/pkg/snapshot"
)

type (
	// Record re-exports profile.Record for convenience.
	Record = profile.Record
	// Partial re-exports profile.Partial for convenience.
	Partial = profile.Partial
)

// Strategy is one self-contained way of acquiring profile data.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, handle string) (*profile.Partial, error)
}

// Failure kinds reported in logs.
const (
	KindTimeout  = "timeout"
	KindNotFound = "not_found"
	KindError    = "error"
)

// Acquirer runs strategies in priority order.
type Acquirer struct {
	logger     *slog.Logger
	strategies []Strategy
	timeout    time.Duration
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithStrategy appends a strategy; earlier strategies are tried first.
func WithStrategy(s Strategy) Option {
	return func(a *Acquirer) { a.strategies = append(a.strategies, s) }
}

// WithStrategyTimeout bounds each strategy separately.
func WithStrategyTimeout(d time.Duration) Option {
	return func(a *Acquirer) { a.timeout = d }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) { a.logger = logger }
}

// New creates an Acquirer.
func New(opts ...Option) *Acquirer {
	a := &Acquirer{logger: slog.Default(), timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Strategies returns the configured strategy names in order.
func (a *Acquirer) Strategies() []string {
	names := make([]string, len(a.strategies))
	for i, s := range a.strategies {
		names[i] = s.Name()
	}
	return names
}

// Acquire returns the first non-empty result. When every strategy fails the
// result is an empty Partial; the second return names the strategy that
// succeeded, or is empty.
func (a *Acquirer) Acquire(ctx context.Context, handle string) (*profile.Partial, string) {
	for _, s := range a.strategies {
		if ctx.Err() != nil {
			a.logger.WarnContext(ctx, "acquisition cancelled", "error", ctx.Err())
			break
		}
		p, err := a.run(ctx, s, handle)
		if err != nil {
			a.logger.WarnContext(ctx, "strategy failed",
				"strategy", s.Name(), "kind", Classify(err), "error", err)
			continue
		}
		a.logger.InfoContext(ctx, "strategy succeeded", "strategy", s.Name(),
			"languages", len(p.Languages), "streak", p.StreakDays != nil)
		return p, s.Name()
	}
	return &profile.Partial{}, ""
}

func (a *Acquirer) run(ctx context.Context, s Strategy, handle string) (*profile.Partial, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	p, err := s.Fetch(ctx, handle)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return nil, fmt.Errorf("empty result: %w", profile.ErrProfileNotFound)
	}
	return p, nil
}

// Classify names the failure kind of a strategy error.
func Classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, profile.ErrProfileNotFound):
		return KindNotFound
	default:
		return KindError
	}
}

// UpdateOptions tune Update.
type UpdateOptions struct {
	Merge snapshot.MergeOptions
	Now   func() time.Time
}

// Update loads the previous snapshot, acquires fresh data, merges, and writes
// the result. The returned error is non-nil only when the write fails.
func Update(ctx context.Context, handle string, store *snapshot.Store, acq *Acquirer, opts ...UpdateOptions) (*Record, error) {
	var o UpdateOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	prev := store.Load(ctx, handle)
	acquired, source := acq.Acquire(ctx, handle)
	if source == "" {
		acq.logger.WarnContext(ctx, "all strategies failed, keeping previous values", "handle", handle)
	}

	rec := snapshot.Merge(prev, acquired, handle, o.Now(), o.Merge)

	// The write happens even when the run deadline has passed.
	if err := store.Save(context.WithoutCancel(ctx), rec); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	acq.logger.InfoContext(ctx, "profile updated",
		"handle", handle,
		"source", source,
		"streak", rec.StreakDays,
		"languages", len(rec.Languages))
	return &rec, nil
}
