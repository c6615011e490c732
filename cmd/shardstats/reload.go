package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/cloudbox/shardstats"
)

var reloadSettle = 2 * time.Second

// groupPolicy holds the group resolver currently applied to phase events.
type groupPolicy struct {
	resolver atomic.Pointer[shardstats.GroupResolver]
}

func newGroupPolicy(r shardstats.GroupResolver) *groupPolicy {
	p := &groupPolicy{}
	p.resolver.Store(&r)
	return p
}

func (p *groupPolicy) Resolver() shardstats.GroupResolver {
	return *p.resolver.Load()
}

// reload re-reads the config file and swaps in its group policy.
// The current policy is kept when the file does not decode.
func (p *groupPolicy) reload(path string) (shardstats.GroupsConfig, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return shardstats.GroupsConfig{}, err
	}

	r, err := shardstats.NewGroupResolver(cfg.Groups)
	if err != nil {
		return shardstats.GroupsConfig{}, err
	}

	p.resolver.Store(&r)
	return cfg.Groups, nil
}

// configWatcher reloads the group policy once the config file has settled after a change.
type configWatcher struct {
	path    string
	policy  *groupPolicy
	log     zerolog.Logger
	watcher *fsnotify.Watcher

	pending time.Time
}

func newConfigWatcher(path string, policy *groupPolicy, log zerolog.Logger) (*configWatcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// editors replace the file on save, so watch its directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &configWatcher{
		path:    path,
		policy:  policy,
		log:     log.With().Str("config", path).Logger(),
		watcher: watcher,
	}, nil
}

func (w *configWatcher) run(ctx context.Context) {
	// close watcher
	defer func() { _ = w.watcher.Close() }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			w.log.Trace().
				Stringer("op", event.Op).
				Msg("Config Event")

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.pending = time.Now().Add(reloadSettle)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.log.Error().
				Err(err).
				Msg("Config Watch Failed")

		case now := <-ticker.C:
			if w.pending.IsZero() || now.Before(w.pending) {
				continue
			}

			w.pending = time.Time{}
			w.reload()
		}
	}
}

func (w *configWatcher) reload() {
	groups, err := w.policy.reload(w.path)
	if err != nil {
		w.log.Error().
			Err(err).
			Msg("Config Reload Failed")
		return
	}

	w.log.Info().
		Int("rewrites", len(groups.Rewrite)).
		Int("includes", len(groups.Include)).
		Int("excludes", len(groups.Exclude)).
		Int("max", groups.Max).
		Msg("Group Policy Reloaded")
}
