package api

import (
	"strings"
	"sync"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/stats"
)

// pending remembers how the groups of in-flight phases were resolved, so the
// event closing a phase leaves exactly the groups its pre event entered even
// when the group policy was reloaded in between.
//
// Phases reported with the same shard, phase and group list are interchangeable,
// so they share one stack of resolutions.
type pending struct {
	mu  sync.Mutex
	ops map[pendingKey][][]string
}

type pendingKey struct {
	shard  shardstats.ShardID
	phase  stats.Phase
	groups string
}

func newPending() *pending {
	return &pending{ops: make(map[pendingKey][][]string)}
}

// resolve returns the groups an event is recorded against. Pre events resolve
// with the current policy, closing events reuse the resolution of a pre event
// and fall back to the current policy when none is in flight.
func (p *pending) resolve(id shardstats.ShardID, ph stats.Phase, e stats.Event, raw []string, resolver shardstats.GroupResolver) []string {
	key := pendingKey{shard: id, phase: ph, groups: strings.Join(raw, "\x00")}

	if e == stats.EventPre {
		groups := resolver(raw)

		p.mu.Lock()
		p.ops[key] = append(p.ops[key], groups)
		p.mu.Unlock()

		return groups
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	stack := p.ops[key]
	if len(stack) == 0 {
		return resolver(raw)
	}

	groups := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(p.ops, key)
	} else {
		p.ops[key] = stack[:len(stack)-1]
	}

	return groups
}

// forget drops the in-flight phases of a closed shard.
func (p *pending) forget(id shardstats.ShardID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key := range p.ops {
		if key.shard == id {
			delete(p.ops, key)
		}
	}
}

func (p *pending) inFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, stack := range p.ops {
		n += len(stack)
	}

	return n
}
