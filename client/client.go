// Package client talks to the HTTP API of a shardstats daemon.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/internal/httpclient"
	"github.com/cloudbox/shardstats/shards"
	"github.com/cloudbox/shardstats/stats"
)

type Config struct {
	URL      string
	Username string
	Password string //nolint:gosec // user-provided credential field
	Timeout  time.Duration
}

type Client struct {
	client  *http.Client
	log     zerolog.Logger
	baseURL string
	user    string
	pass    string
}

func New(c Config, log zerolog.Logger) *Client {
	return &Client{
		client:  httpclient.New(c.Timeout),
		log:     log.With().Str("url", c.URL).Logger(),
		baseURL: c.URL,
		user:    c.Username,
		pass:    c.Password,
	}
}

func (c *Client) do(ctx context.Context, method, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed creating request: %w: %w", err, shardstats.ErrFatal)
	}

	if c.user != "" || c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Trace().
		Str("method", method).
		Str("request_url", reqURL).
		Msg("Request Sending")

	return httpclient.Do(c.client, req)
}

func (c *Client) getJSON(ctx context.Context, reqURL string, v any) error {
	res, err := c.do(ctx, http.MethodGet, reqURL)
	if err != nil {
		return err
	}

	defer func() { _ = res.Body.Close() }()

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("failed decoding response: %w: %w", err, shardstats.ErrFatal)
	}

	return nil
}

func withGroups(reqURL string, groups []string) string {
	if len(groups) == 0 {
		return reqURL
	}

	q := url.Values{}
	q.Set("groups", strings.Join(groups, ","))
	return reqURL + "?" + q.Encode()
}

// Stats fetches the snapshots of every shard open on the daemon.
func (c *Client) Stats(ctx context.Context, groups ...string) ([]shards.ShardSnapshot, error) {
	var snaps []shards.ShardSnapshot
	if err := c.getJSON(ctx, withGroups(shardstats.JoinURL(c.baseURL, "stats"), groups), &snaps); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	return snaps, nil
}

// ShardStats fetches the snapshot of a single shard.
func (c *Client) ShardStats(ctx context.Context, id shardstats.ShardID, groups ...string) (stats.Snapshot, error) {
	reqURL := shardstats.JoinURL(c.baseURL, "stats", url.PathEscape(id.Index), strconv.Itoa(id.Shard))

	var snap stats.Snapshot
	if err := c.getJSON(ctx, withGroups(reqURL, groups), &snap); err != nil {
		return stats.Snapshot{}, fmt.Errorf("%v: stats: %w", id, err)
	}

	return snap, nil
}

// Clear clears accumulated history of one shard, or of all shards when id is nil.
func (c *Client) Clear(ctx context.Context, id *shardstats.ShardID) error {
	reqURL := shardstats.JoinURL(c.baseURL, "stats", "_clear")
	if id != nil {
		reqURL = shardstats.JoinURL(c.baseURL, "stats", url.PathEscape(id.Index), strconv.Itoa(id.Shard), "_clear")
	}

	res, err := c.do(ctx, http.MethodPost, reqURL)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	_ = res.Body.Close()

	c.log.Debug().Msg("Stats Cleared")
	return nil
}

// Sum merges snapshots of several shards into one, for callers which aggregate
// above the shard level.
func Sum(snaps []shards.ShardSnapshot) stats.Snapshot {
	var total stats.Snapshot
	for _, s := range snaps {
		total = total.Add(s.Stats)
	}

	return total
}
