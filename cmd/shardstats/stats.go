package main

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog/log"

	"github.com/cloudbox/shardstats/client"
	"github.com/cloudbox/shardstats/shards"
)

func shardStats(ctx context.Context, registry *shards.Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snaps := registry.Snapshots()
		total := client.Sum(snaps).Total

		log.Info().
			Int("shards", len(snaps)).
			Int64("query_total", total.QueryCount).
			Int64("query_current", total.QueryCurrent).
			Int64("fetch_total", total.FetchCount).
			Int64("fetch_current", total.FetchCurrent).
			Msg("Shard Stats")

		status := fmt.Sprintf(
			"STATUS=shards: %d | queries: %d (%d in flight) | fetches: %d (%d in flight)",
			len(snaps), total.QueryCount, total.QueryCurrent, total.FetchCount, total.FetchCurrent,
		)
		_, _ = daemon.SdNotify(false, status)
	}
}
