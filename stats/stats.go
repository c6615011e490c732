// Package stats provides the per-shard search phase metrics registry.
//
// Search execution calls the phase hooks inline on every request, so the hooks
// never block: totals and known groups are plain atomic updates, and the group
// map is an immutable value behind an atomic pointer. Only the first use of a
// group name and Clear take the registry lock to publish a new map.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/metric"
)

type holder struct {
	queryMetric  metric.Mean
	fetchMetric  metric.Mean
	queryCurrent metric.Counter
	fetchCurrent metric.Counter
}

func (h *holder) stats() Stats {
	return Stats{
		QueryCount:      h.queryMetric.Count(),
		QueryTimeMillis: time.Duration(h.queryMetric.Sum()).Milliseconds(),
		QueryCurrent:    h.queryCurrent.Count(),
		FetchCount:      h.fetchMetric.Count(),
		FetchTimeMillis: time.Duration(h.fetchMetric.Sum()).Milliseconds(),
		FetchCurrent:    h.fetchCurrent.Count(),
	}
}

func (h *holder) totalCurrent() int64 {
	return h.queryCurrent.Count() + h.fetchCurrent.Count()
}

// clear resets accumulated history, in-flight counters reflect live operations and stay.
func (h *holder) clear() {
	h.queryMetric.Clear()
	h.fetchMetric.Clear()
}

// groupMap is never mutated once published.
type groupMap map[string]*holder

// Shard holds the search metrics of one shard: a total and one entry per request group.
//
// Every hook expects the same group list for the pre, failed and success call of one
// logical operation. Unpaired calls only skew the in-flight counters.
type Shard struct {
	id     shardstats.ShardID
	total  holder
	groups atomic.Pointer[groupMap]

	// serialises group map rebuilds
	mu sync.Mutex
}

// New returns an empty registry for the given shard.
func New(id shardstats.ShardID) *Shard {
	s := &Shard{id: id}
	s.groups.Store(&groupMap{})
	return s
}

// ID returns the shard this registry was created for.
func (s *Shard) ID() shardstats.ShardID {
	return s.id
}

// OnPreQueryPhase marks a query phase as in flight for the total and each group.
func (s *Shard) OnPreQueryPhase(groups []string) {
	s.total.queryCurrent.Inc()
	for _, g := range groups {
		s.groupStats(g).queryCurrent.Inc()
	}
}

// OnFailedQueryPhase undoes OnPreQueryPhase without recording a sample.
func (s *Shard) OnFailedQueryPhase(groups []string) {
	s.total.queryCurrent.Dec()
	for _, g := range groups {
		s.groupStats(g).queryCurrent.Dec()
	}
}

// OnQueryPhase records a completed query phase which took the given time.
func (s *Shard) OnQueryPhase(groups []string, took time.Duration) {
	s.total.queryMetric.Inc(int64(took))
	s.total.queryCurrent.Dec()
	for _, g := range groups {
		h := s.groupStats(g)
		h.queryMetric.Inc(int64(took))
		h.queryCurrent.Dec()
	}
}

// OnPreFetchPhase marks a fetch phase as in flight for the total and each group.
func (s *Shard) OnPreFetchPhase(groups []string) {
	s.total.fetchCurrent.Inc()
	for _, g := range groups {
		s.groupStats(g).fetchCurrent.Inc()
	}
}

// OnFailedFetchPhase ends an in-flight fetch phase without recording its time.
func (s *Shard) OnFailedFetchPhase(groups []string) {
	s.total.fetchCurrent.Dec()
	for _, g := range groups {
		s.groupStats(g).fetchCurrent.Dec()
	}
}

// OnFetchPhase records a completed fetch phase which took the given time.
func (s *Shard) OnFetchPhase(groups []string, took time.Duration) {
	s.total.fetchMetric.Inc(int64(took))
	s.total.fetchCurrent.Dec()
	for _, g := range groups {
		h := s.groupStats(g)
		h.fetchMetric.Inc(int64(took))
		h.fetchCurrent.Dec()
	}
}

// Stats returns a snapshot of the shard's metrics.
//
// Without groups the snapshot carries totals only. A single shardstats.AllGroups
// selects every known group, otherwise only the named groups which exist are
// included; unknown names are skipped.
func (s *Shard) Stats(groups ...string) Snapshot {
	snap := Snapshot{Total: s.total.stats()}
	if len(groups) == 0 {
		return snap
	}

	current := *s.groups.Load()

	if len(groups) == 1 && groups[0] == shardstats.AllGroups {
		snap.Groups = make(map[string]Stats, len(current))
		for name, h := range current {
			snap.Groups[name] = h.stats()
		}

		return snap
	}

	snap.Groups = make(map[string]Stats, len(groups))
	for _, name := range groups {
		if h, ok := current[name]; ok {
			snap.Groups[name] = h.stats()
		}
	}

	return snap
}

// Groups returns the sorted names of all groups currently tracked.
func (s *Shard) Groups() []string {
	current := *s.groups.Load()

	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Clear drops accumulated query and fetch history.
//
// In-flight counters are left alone. Groups with operations still in flight are
// kept (with their history cleared) so their completions have a holder to land in,
// idle groups are dropped from the new group map.
func (s *Shard) Clear() {
	s.total.clear()

	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.groups.Load()
	if len(current) == 0 {
		return
	}

	next := make(groupMap, len(current))
	for name, h := range current {
		if h.totalCurrent() > 0 {
			h.clear()
			next[name] = h
		}
	}

	s.groups.Store(&next)
}

func (s *Shard) groupStats(group string) *holder {
	if h, ok := (*s.groups.Load())[group]; ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.groups.Load()
	if h, ok := current[group]; ok {
		return h
	}

	h := &holder{}
	next := make(groupMap, len(current)+1)
	for name, existing := range current {
		next[name] = existing
	}
	next[group] = h

	s.groups.Store(&next)
	return h
}
