package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cloudbox/shardstats"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `
port: 4040
stats-interval: 5m
clear-schedule: "@daily"

authentication:
  username: admin
  password: secret

shards:
  - index: products
    shards: 2

groups:
  rewrite:
    - from: "^user-.*$"
      to: "users"
  exclude:
    - "^debug$"
  max: 4

report:
  schedule: "@every 1m"
  webhooks:
    - url: http://localhost:8080/hook
      groups: ["_all"]

metrics:
  enabled: true
  groups: true
`)

	cfg, err := readConfig(path)
	if err != nil {
		t.Fatalf("readConfig: %v", err)
	}

	if cfg.Port != 4040 {
		t.Errorf("Port = %d, want 4040", cfg.Port)
	}
	if cfg.StatsInterval != 5*time.Minute {
		t.Errorf("StatsInterval = %v, want 5m", cfg.StatsInterval)
	}
	if !reflect.DeepEqual(cfg.Host, []string{""}) {
		t.Errorf("Host = %q, want default", cfg.Host)
	}
	if cfg.Groups.Max != 4 || len(cfg.Groups.Rewrite) != 1 || cfg.Groups.Rewrite[0].To != "users" {
		t.Errorf("Groups = %+v", cfg.Groups)
	}
	if len(cfg.Report.Webhooks) != 1 || cfg.Report.Webhooks[0].URL != "http://localhost:8080/hook" {
		t.Errorf("Report = %+v", cfg.Report)
	}
	if !cfg.Metrics.Enabled || !cfg.Metrics.Groups {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}

	want := []shardstats.ShardID{
		{Index: "products", Shard: 0},
		{Index: "products", Shard: 1},
	}
	if got := cfg.shardIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("shardIDs = %v, want %v", got, want)
	}
}

func TestReadConfigDefaults(t *testing.T) {
	cfg, err := readConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("readConfig: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, defaultPort)
	}
	if cfg.StatsInterval != defaultStatsInterval {
		t.Errorf("StatsInterval = %v, want %v", cfg.StatsInterval, defaultStatsInterval)
	}
	if len(cfg.shardIDs()) != 0 {
		t.Errorf("shardIDs = %v, want none", cfg.shardIDs())
	}
}

func TestReadConfigErrors(t *testing.T) {
	type Test struct {
		Name    string
		Content string
		Err     error
	}

	testCases := []Test{
		{
			Name:    "Unknown field",
			Content: "prot: 3031\n",
		},
		{
			Name:    "Shards without index",
			Content: "shards:\n  - shards: 1\n",
			Err:     shardstats.ErrInvalidShard,
		},
		{
			Name:    "Index without shards",
			Content: "shards:\n  - index: products\n",
			Err:     shardstats.ErrInvalidShard,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := readConfig(writeConfig(t, tc.Content))
			if err == nil {
				t.Fatal("expected error")
			}

			if tc.Err != nil && !errors.Is(err, tc.Err) {
				t.Errorf("err = %v, want %v", err, tc.Err)
			}
		})
	}
}

func TestReadConfigMissing(t *testing.T) {
	if _, err := readConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error")
	}
}
