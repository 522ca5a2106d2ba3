// Package pipeline drives a full vote-study run: list every completed debate, fetch each
// detail record and fold it into a stats.Aggregator in listing order.
//
// A failed listing aborts the run. A failed detail fetch is logged and that debate is
// skipped; the run carries on.
//
// Sequential runs pause for RequestDelay after each detail fetch completes, so the gap
// between two requests never drops below the delay however slow the API is. Parallel
// runs cap request starts at one per RequestDelay with a token bucket instead.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/votestudy/internal/logger"
	"github.com/rewired-gh/votestudy/internal/models"
	"github.com/rewired-gh/votestudy/internal/stats"
)

// Source supplies debate records.
type Source interface {
	FetchAllCompleted(ctx context.Context) ([]models.DebateSummary, error)
	FetchDetail(ctx context.Context, id string) (*models.DebateDetail, error)
}

// DefaultProgressEvery is how many summaries pass between progress lines.
const DefaultProgressEvery = 20

// Options tune a Runner.
type Options struct {
	// Concurrency is the number of detail fetches in flight. Values below 2 run sequentially.
	Concurrency int
	// RequestDelay spaces detail fetches. Zero disables pacing.
	RequestDelay time.Duration
	// ProgressEvery controls progress logging. Zero uses DefaultProgressEvery.
	ProgressEvery int
}

// Runner executes runs against a Source.
type Runner struct {
	source Source
	opts   Options
}

// Result is the outcome of one run.
type Result struct {
	Aggregator *stats.Aggregator
	// TotalDebates is the number of summaries listed.
	TotalDebates int
	// Unresolvable counts summaries with neither slug nor id.
	Unresolvable int
	// Failed counts detail fetches that errored.
	Failed int
}

// New creates a Runner.
func New(source Source, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.RequestDelay < 0 {
		opts.RequestDelay = 0
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &Runner{source: source, opts: opts}
}

// Run performs one complete pass.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	logger.Info("Fetching completed debates...")
	summaries, err := r.source.FetchAllCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed debates: %w", err)
	}
	logger.Info("Found %d completed debates", len(summaries))

	res := &Result{
		Aggregator:   stats.NewAggregator(),
		TotalDebates: len(summaries),
	}

	if r.opts.Concurrency > 1 {
		err = r.runParallel(ctx, summaries, res)
	} else {
		err = r.runSequential(ctx, summaries, res)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Processed %d debates: %d with votes, %d failed, %d without identifier",
		res.TotalDebates, res.Aggregator.DebatesWithVotes, res.Failed, res.Unresolvable)
	return res, nil
}

func (r *Runner) runSequential(ctx context.Context, summaries []models.DebateSummary, res *Result) error {
	fetched := false
	for i, s := range summaries {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := s.Key()
		if key == "" {
			res.Unresolvable++
			continue
		}

		if fetched {
			if err := pause(ctx, r.opts.RequestDelay); err != nil {
				return err
			}
		}
		fetched = true

		detail, err := r.source.FetchDetail(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("Error fetching %s: %v", key, err)
			res.Failed++
			continue
		}

		if res.Aggregator.Add(detail) {
			r.progress(i+1, len(summaries))
		}
	}
	return nil
}

// runParallel fetches details with bounded concurrency into per-index slots, then
// aggregates the slots in listing order so the result matches a sequential run.
func (r *Runner) runParallel(ctx context.Context, summaries []models.DebateSummary, res *Result) error {
	details := make([]*models.DebateDetail, len(summaries))
	var failed, done int64

	limit := rate.Inf
	if r.opts.RequestDelay > 0 {
		limit = rate.Every(r.opts.RequestDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, s := range summaries {
		key := s.Key()
		if key == "" {
			res.Unresolvable++
			continue
		}

		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			detail, err := r.source.FetchDetail(gctx, key)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("Error fetching %s: %v", key, err)
				atomic.AddInt64(&failed, 1)
				return nil
			}
			details[i] = detail
			if detail.HasVotes() {
				r.progress(int(atomic.AddInt64(&done, 1)), len(summaries))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	res.Failed = int(failed)
	for _, d := range details {
		if d != nil {
			res.Aggregator.Add(d)
		}
	}
	return nil
}

// pause blocks for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) progress(n, total int) {
	if n%r.opts.ProgressEvery == 0 {
		logger.Info("  Processed %d/%d...", n, total)
	}
}
