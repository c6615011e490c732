// Package shards manages the lifecycle of per-shard search metrics registries.
package shards

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/stats"
)

type Config struct {
	Logger zerolog.Logger
}

// ShardSnapshot is the snapshot of one shard labelled with its identity.
type ShardSnapshot struct {
	Index string         `json:"index"`
	Shard int            `json:"shard"`
	Stats stats.Snapshot `json:"stats"`
}

// ID returns the identity of the snapshotted shard.
func (s ShardSnapshot) ID() shardstats.ShardID {
	return shardstats.ShardID{Index: s.Index, Shard: s.Shard}
}

// Registry owns one stats.Shard per open shard.
//
// Search execution should resolve a shard once with Open or Get and call the
// hooks on the returned stats.Shard directly; the registry lock only guards
// opening and closing shards.
type Registry struct {
	log    zerolog.Logger
	mu     sync.RWMutex
	shards map[shardstats.ShardID]*stats.Shard
}

func New(c Config) *Registry {
	return &Registry{
		log:    c.Logger,
		shards: make(map[shardstats.ShardID]*stats.Shard),
	}
}

// Open returns the registry of the given shard, creating it when the shard is not open yet.
func (r *Registry) Open(id shardstats.ShardID) *stats.Shard {
	r.mu.RLock()
	s, ok := r.shards[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.shards[id]; ok {
		return s
	}

	s = stats.New(id)
	r.shards[id] = s

	l := shardstats.ShardLogger(r.log, id)
	l.Debug().Msg("Shard Opened")
	return s
}

// Close discards the registry of the given shard and its metrics.
func (r *Registry) Close(id shardstats.ShardID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.shards[id]; !ok {
		return fmt.Errorf("%v: %w", id, shardstats.ErrShardNotFound)
	}

	delete(r.shards, id)

	l := shardstats.ShardLogger(r.log, id)
	l.Debug().Msg("Shard Closed")
	return nil
}

// Get returns the registry of an open shard.
func (r *Registry) Get(id shardstats.ShardID) (*stats.Shard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shards[id]
	if !ok {
		return nil, fmt.Errorf("%v: %w", id, shardstats.ErrShardNotFound)
	}

	return s, nil
}

// IDs returns the open shards ordered by index name and shard number.
func (r *Registry) IDs() []shardstats.ShardID {
	r.mu.RLock()
	ids := make([]shardstats.ShardID, 0, len(r.shards))
	for id := range r.shards {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Index != ids[j].Index {
			return ids[i].Index < ids[j].Index
		}
		return ids[i].Shard < ids[j].Shard
	})

	return ids
}

// Snapshots returns one snapshot per open shard, ordered like IDs.
// Shards are reported individually, never summed.
func (r *Registry) Snapshots(groups ...string) []ShardSnapshot {
	ids := r.IDs()

	snaps := make([]ShardSnapshot, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(id)
		if err != nil {
			// closed in the meantime
			continue
		}

		snaps = append(snaps, ShardSnapshot{
			Index: id.Index,
			Shard: id.Shard,
			Stats: s.Stats(groups...),
		})
	}

	return snaps
}

// ClearAll clears every open shard and returns how many were cleared.
func (r *Registry) ClearAll() int {
	r.mu.RLock()
	open := make([]*stats.Shard, 0, len(r.shards))
	for _, s := range r.shards {
		open = append(open, s)
	}
	r.mu.RUnlock()

	for _, s := range open {
		s.Clear()
	}

	r.log.Debug().Int("shards", len(open)).Msg("Shards Cleared")
	return len(open)
}
