// Package report pushes shard snapshots to HTTP webhooks.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/internal/httpclient"
	"github.com/cloudbox/shardstats/shards"
)

type Config struct {
	URL       string        `yaml:"url"`
	User      string        `yaml:"username"`
	Pass      string        `yaml:"password"` //nolint:gosec // user-provided credential field
	Groups    []string      `yaml:"groups"`
	Timeout   time.Duration `yaml:"timeout"`
	Verbosity string        `yaml:"verbosity"`
}

// Payload is the JSON document posted to a webhook.
type Payload struct {
	Timestamp time.Time              `json:"timestamp"`
	Shards    []shards.ShardSnapshot `json:"shards"`
}

// Webhook posts snapshots to one URL.
type Webhook struct {
	url    string
	user   string
	pass   string
	groups []string

	log    zerolog.Logger
	client *http.Client
}

func New(c Config) (*Webhook, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("webhook url missing: %w", shardstats.ErrFatal)
	}

	l := shardstats.GetLogger(c.Verbosity).With().
		Str("report", "webhook").
		Str("url", c.URL).Logger()

	return &Webhook{
		url:    c.URL,
		user:   c.User,
		pass:   c.Pass,
		groups: c.Groups,
		log:    l,
		client: httpclient.New(c.Timeout),
	}, nil
}

// Groups returns the group filter snapshots for this webhook should be taken with.
func (w *Webhook) Groups() []string {
	return w.groups
}

func (w *Webhook) send(ctx context.Context, method string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed creating request: %w: %w", err, shardstats.ErrFatal)
	}

	req.Header.Set("Content-Type", "application/json")
	if w.user != "" || w.pass != "" {
		req.SetBasicAuth(w.user, w.pass)
	}

	res, err := httpclient.Do(w.client, req)
	if err != nil {
		return err
	}

	_ = res.Body.Close()
	return nil
}

// Push posts the snapshots to the webhook.
func (w *Webhook) Push(ctx context.Context, snaps []shards.ShardSnapshot) error {
	body, err := json.Marshal(Payload{
		Timestamp: now().UTC(),
		Shards:    snaps,
	})
	if err != nil {
		return fmt.Errorf("failed encoding payload: %w: %w", err, shardstats.ErrFatal)
	}

	w.log.Debug().Int("shards", len(snaps)).Msg("Report Sending")

	if err := w.send(ctx, http.MethodPost, body); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	w.log.Info().Int("shards", len(snaps)).Msg("Report Sent")
	return nil
}

// Available checks whether the webhook answers a HEAD request.
func (w *Webhook) Available(ctx context.Context) error {
	if err := w.send(ctx, http.MethodHead, nil); err != nil {
		return fmt.Errorf("availability: %w", err)
	}

	return nil
}

var now = time.Now
