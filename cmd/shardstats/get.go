package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/client"
)

type getCmd struct {
	URL      string        `default:"http://localhost:3031" env:"SHARDSTATS_URL" help:"Daemon URL"`
	Username string        `env:"SHARDSTATS_USERNAME" help:"Basic auth username"`
	Password string        `env:"SHARDSTATS_PASSWORD" help:"Basic auth password"` //nolint:gosec // user-provided credential field
	Timeout  time.Duration `default:"30s" help:"Request timeout"`

	Index  string   `help:"Only this index, requires --shard"`
	Shard  int      `default:"-1" help:"Only this shard of --index"`
	Groups []string `help:"Group stats to include, _all for every group"`
	Sum    bool     `help:"Merge the snapshots of all shards"`
	Clear  bool     `help:"Clear the stats instead of fetching them"`
}

func (g *getCmd) Validate() error {
	if (g.Index == "") != (g.Shard < 0) {
		return fmt.Errorf("--index and --shard must be set together: %w", shardstats.ErrInvalidShard)
	}

	return nil
}

func (g *getCmd) Run() error {
	c := client.New(client.Config{
		URL:      g.URL,
		Username: g.Username,
		Password: g.Password,
		Timeout:  g.Timeout,
	}, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	groups := shardstats.SplitGroups(g.Groups...)

	var id *shardstats.ShardID
	if g.Index != "" {
		id = &shardstats.ShardID{Index: g.Index, Shard: g.Shard}
	}

	switch {
	case g.Clear:
		return c.Clear(ctx, id)

	case id != nil:
		snap, err := c.ShardStats(ctx, *id, groups...)
		if err != nil {
			return err
		}

		return printJSON(os.Stdout, snap)
	}

	snaps, err := c.Stats(ctx, groups...)
	if err != nil {
		return err
	}

	if g.Sum {
		return printJSON(os.Stdout, client.Sum(snaps))
	}

	return printJSON(os.Stdout, snaps)
}
