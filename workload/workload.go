// Package workload drives a shard's metrics registry with simulated searches.
package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/stats"
)

// errSimulated marks phases failed on purpose.
var errSimulated = errors.New("simulated phase failure")

type Config struct {
	// Rate is the number of requests started per second, 0 means unlimited.
	Rate float64 `yaml:"rate"`
	// Concurrency bounds the requests in flight.
	Concurrency int `yaml:"concurrency"`
	Requests    int `yaml:"requests"`

	// Groups are sampled per request: each group is attached with a probability of 1/2.
	Groups []string `yaml:"groups"`

	QueryLatency time.Duration `yaml:"query-latency"`
	FetchLatency time.Duration `yaml:"fetch-latency"`

	// FailureRate is the probability of a phase failing, in [0, 1].
	FailureRate float64 `yaml:"failure-rate"`
}

// Result summarises a finished run.
type Result struct {
	Requests int64
	Failed   int64
	Elapsed  time.Duration
}

type limiter struct {
	rl  *rate.Limiter
	sem *semaphore.Weighted
}

func newLimiter(c Config) *limiter {
	limit := rate.Inf
	burst := c.Concurrency
	if c.Rate > 0 {
		limit = rate.Limit(c.Rate)
		burst = max(1, int(c.Rate))
	}

	return &limiter{
		rl:  rate.NewLimiter(limit, burst),
		sem: semaphore.NewWeighted(int64(c.Concurrency)),
	}
}

func (l *limiter) acquire(ctx context.Context) error {
	if err := l.rl.Wait(ctx); err != nil {
		return err
	}

	return l.sem.Acquire(ctx, 1)
}

func (l *limiter) release() {
	l.sem.Release(1)
}

func (c Config) validate() error {
	switch {
	case c.Concurrency <= 0:
		return fmt.Errorf("concurrency must be positive: %w", shardstats.ErrFatal)
	case c.Requests <= 0:
		return fmt.Errorf("requests must be positive: %w", shardstats.ErrFatal)
	case c.Rate < 0:
		return fmt.Errorf("rate must not be negative: %w", shardstats.ErrFatal)
	case c.FailureRate < 0 || c.FailureRate > 1:
		return fmt.Errorf("failure rate %v outside [0, 1]: %w", c.FailureRate, shardstats.ErrFatal)
	case c.QueryLatency < 0 || c.FetchLatency < 0:
		return fmt.Errorf("latencies must not be negative: %w", shardstats.ErrFatal)
	}

	return nil
}

// Runner executes simulated search requests against one shard.
type Runner struct {
	cfg     Config
	log     zerolog.Logger
	limiter *limiter
}

func New(c Config, log zerolog.Logger) (*Runner, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	return &Runner{
		cfg:     c,
		log:     log.With().Str("workload", "simulate").Logger(),
		limiter: newLimiter(c),
	}, nil
}

// Run issues the configured number of requests, each a query phase followed by
// a fetch phase. Simulated phase failures are counted, not returned; Run only
// fails when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, shard *stats.Shard) (Result, error) {
	var failed atomic.Int64
	var started int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for ; started < int64(r.cfg.Requests); started++ {
		if err := r.limiter.acquire(gctx); err != nil {
			break
		}

		g.Go(func() error {
			defer r.limiter.release()

			if err := r.request(gctx, shard); err != nil {
				if !errors.Is(err, errSimulated) {
					return err
				}
				failed.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	res := Result{
		Requests: started,
		Failed:   failed.Load(),
		Elapsed:  time.Since(start),
	}

	r.log.Debug().
		Int64("requests", res.Requests).
		Int64("failed", res.Failed).
		Dur("elapsed", res.Elapsed).
		Msg("Workload Finished")

	return res, err
}

func (r *Runner) request(ctx context.Context, shard *stats.Shard) error {
	groups := r.sampleGroups()

	if err := shard.Track(stats.PhaseQuery, groups, r.phase(ctx, r.cfg.QueryLatency)); err != nil {
		return err
	}

	return shard.Track(stats.PhaseFetch, groups, r.phase(ctx, r.cfg.FetchLatency))
}

func (r *Runner) phase(ctx context.Context, latency time.Duration) func() error {
	return func() error {
		if latency > 0 {
			// jitter in [latency/2, latency*3/2)
			d := latency/2 + rand.N(latency) //nolint:gosec // simulation only
			timer := time.NewTimer(d)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}

		if r.cfg.FailureRate > 0 && rand.Float64() < r.cfg.FailureRate { //nolint:gosec // simulation only
			return errSimulated
		}

		return nil
	}
}

func (r *Runner) sampleGroups() []string {
	if len(r.cfg.Groups) == 0 {
		return nil
	}

	groups := make([]string, 0, len(r.cfg.Groups))
	for _, g := range r.cfg.Groups {
		if rand.IntN(2) == 0 { //nolint:gosec // simulation only
			groups = append(groups, g)
		}
	}

	return groups
}
