package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/report"
	"github.com/cloudbox/shardstats/shards"
)

const (
	maxReportFailures = 5
	reportTimeout     = 1 * time.Minute
)

// reportJob pushes snapshots to one webhook on schedule. The job removes
// itself after a fatal error or too many consecutive failures.
type reportJob struct {
	log      zerolog.Logger
	failures int
	errors   []error

	cron  *cron.Cron
	jobID cron.EntryID
	fn    func(context.Context) error
}

func (j *reportJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	err := j.fn(ctx)

	switch {
	case err == nil:
		j.failures = 0
		j.errors = j.errors[:0]
		return

	case errors.Is(err, shardstats.ErrFatal):
		// fatal error occurred, retrying will not help
		j.log.Error().
			Err(err).
			Msg("Report Fatal")

		j.cron.Remove(j.jobID)
		return

	default:
		j.failures++
		j.errors = append(j.errors, err)
		j.log.Warn().
			Err(err).
			Int("failures", j.failures).
			Msg("Report Failed")
	}

	if j.failures >= maxReportFailures {
		j.log.Error().
			Errs("error", j.errors).
			Int("failures", j.failures).
			Msg("Report Stopped")

		j.cron.Remove(j.jobID)
	}
}

func newScheduler(cfg config, registry *shards.Registry, webhooks []*report.Webhook) (*cron.Cron, error) {
	c := cron.New()
	chain := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger))

	if cfg.ClearSchedule != "" {
		_, err := c.AddJob(cfg.ClearSchedule, chain.Then(cron.FuncJob(func() {
			cleared := registry.ClearAll()
			log.Info().
				Int("shards", cleared).
				Msg("Scheduled Clear")
		})))
		if err != nil {
			return nil, fmt.Errorf("clear schedule %q: %w: %w", cfg.ClearSchedule, err, shardstats.ErrFatal)
		}
	}

	if len(webhooks) == 0 {
		return c, nil
	}

	if cfg.Report.Schedule == "" {
		return nil, fmt.Errorf("report webhooks without a schedule: %w", shardstats.ErrFatal)
	}

	for i, w := range webhooks {
		job := &reportJob{
			log:  log.With().Int("webhook", i).Logger(),
			cron: c,
			fn: func(ctx context.Context) error {
				return w.Push(ctx, registry.Snapshots(w.Groups()...))
			},
		}

		id, err := c.AddJob(cfg.Report.Schedule, chain.Then(job))
		if err != nil {
			return nil, fmt.Errorf("report schedule %q: %w: %w", cfg.Report.Schedule, err, shardstats.ErrFatal)
		}

		job.jobID = id
	}

	return c, nil
}

// initWebhooks builds the report webhooks and checks they are reachable.
// Unreachable webhooks are logged and kept, the scheduled push decides whether to give up on them.
func initWebhooks(ctx context.Context, cfg config) ([]*report.Webhook, error) {
	webhooks := make([]*report.Webhook, 0, len(cfg.Report.Webhooks))
	for _, c := range cfg.Report.Webhooks {
		w, err := report.New(c)
		if err != nil {
			return nil, err
		}

		webhooks = append(webhooks, w)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range webhooks {
		g.Go(func() error {
			if err := w.Available(gctx); err != nil {
				log.Warn().
					Err(err).
					Str("url", cfg.Report.Webhooks[i].URL).
					Bool("fatal", errors.Is(err, shardstats.ErrFatal)).
					Msg("Webhook Unavailable")
			}

			return nil
		})
	}

	_ = g.Wait()

	return webhooks, nil
}
