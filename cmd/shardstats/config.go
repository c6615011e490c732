package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/report"
)

const (
	defaultPort          = 3031
	defaultStatsInterval = 1 * time.Hour
)

type authConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"` //nolint:gosec // user-provided credential field
}

type shardsConfig struct {
	Index  string `yaml:"index"`
	Shards int    `yaml:"shards"`
}

type reportConfig struct {
	Schedule string          `yaml:"schedule"`
	Webhooks []report.Config `yaml:"webhooks"`
}

type metricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Groups  bool `yaml:"groups"`
}

type config struct {
	// General configuration
	Host          []string      `yaml:"host"`
	Port          int           `yaml:"port"`
	StatsInterval time.Duration `yaml:"stats-interval"`
	ClearSchedule string        `yaml:"clear-schedule"`

	// Authentication for the stats and shards routes
	Auth authConfig `yaml:"authentication"`

	// Shards opened at start-up
	Shards []shardsConfig `yaml:"shards"`

	// Group policy, reloaded when the config file changes
	Groups shardstats.GroupsConfig `yaml:"groups"`

	Report  reportConfig  `yaml:"report"`
	Metrics metricsConfig `yaml:"metrics"`
}

// readConfig decodes the YAML config file at path, applying defaults.
func readConfig(path string) (config, error) {
	file, err := os.Open(path)
	if err != nil {
		return config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	// set default values
	cfg := config{
		Host:          []string{""},
		Port:          defaultPort,
		StatsInterval: defaultStatsInterval,
	}

	decoder := yaml.NewDecoder(file)
	decoder.SetStrict(true)
	if err := decoder.Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("decode config: %w", err)
	}

	for _, s := range cfg.Shards {
		if s.Index == "" || s.Shards < 1 {
			return config{}, fmt.Errorf("shards entry %q with %d shards: %w",
				s.Index, s.Shards, shardstats.ErrInvalidShard)
		}
	}

	return cfg, nil
}

// shardIDs expands the configured indices into their shard ids.
func (c config) shardIDs() []shardstats.ShardID {
	ids := make([]shardstats.ShardID, 0)
	for _, s := range c.Shards {
		for n := range s.Shards {
			ids = append(ids, shardstats.ShardID{Index: s.Index, Shard: n})
		}
	}

	return ids
}

// defaultConfigDirectory returns the directory next to the binary when it holds
// filename, otherwise the user's config directory for app.
func defaultConfigDirectory(app, filename string) string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if _, err := os.Stat(filepath.Join(dir, filename)); err == nil {
			return dir
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, app)
	}

	return "."
}
