package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/shards"
	"github.com/cloudbox/shardstats/workload"
)

type simulateCmd struct {
	Index        string        `default:"simulated" help:"Index name of the simulated shard"`
	Shard        int           `default:"0" help:"Shard number of the simulated shard"`
	Rate         float64       `default:"100" help:"Requests started per second, 0 for unlimited"`
	Concurrency  int           `default:"8" help:"Maximum requests in flight"`
	Requests     int           `default:"1000" help:"Number of requests to run"`
	Groups       []string      `help:"Groups attached to requests at random"`
	QueryLatency time.Duration `default:"5ms" help:"Mean query phase latency"`
	FetchLatency time.Duration `default:"2ms" help:"Mean fetch phase latency"`
	FailureRate  float64       `default:"0" help:"Probability of a phase failing"`
}

func (s *simulateCmd) Run() error {
	runner, err := workload.New(workload.Config{
		Rate:         s.Rate,
		Concurrency:  s.Concurrency,
		Requests:     s.Requests,
		Groups:       shardstats.SplitGroups(s.Groups...),
		QueryLatency: s.QueryLatency,
		FetchLatency: s.FetchLatency,
		FailureRate:  s.FailureRate,
	}, log.Logger)
	if err != nil {
		return err
	}

	registry := shards.New(shards.Config{Logger: log.Logger})
	id := shardstats.ShardID{Index: s.Index, Shard: s.Shard}
	shard := registry.Open(id)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(ctx, shard)
	if err != nil {
		log.Warn().
			Err(err).
			Int64("requests", res.Requests).
			Msg("Simulation Interrupted")
	}

	log.Info().
		Stringer("shard", id).
		Int64("requests", res.Requests).
		Int64("failed", res.Failed).
		Dur("elapsed", res.Elapsed).
		Msg("Simulation Finished")

	return printJSON(os.Stdout, shard.Stats(shardstats.AllGroups))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	return nil
}
