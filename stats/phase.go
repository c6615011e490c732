package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudbox/shardstats"
)

// Phase is a stage of search execution on a shard.
type Phase int

const (
	PhaseQuery Phase = iota
	PhaseFetch
)

func (p Phase) String() string {
	switch p {
	case PhaseQuery:
		return "query"
	case PhaseFetch:
		return "fetch"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase parses "query" or "fetch".
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(s) {
	case "query":
		return PhaseQuery, nil
	case "fetch":
		return PhaseFetch, nil
	default:
		return 0, fmt.Errorf("unknown phase %q: %w", s, shardstats.ErrInvalidEvent)
	}
}

// Event is a lifecycle point of a phase as reported by search execution.
type Event string

const (
	EventPre     Event = "pre"
	EventSuccess Event = "success"
	EventFailed  Event = "failed"
)

// ParseEvent parses "pre", "success" or "failed".
func ParseEvent(s string) (Event, error) {
	switch e := Event(strings.ToLower(s)); e {
	case EventPre, EventSuccess, EventFailed:
		return e, nil
	default:
		return "", fmt.Errorf("unknown event %q: %w", s, shardstats.ErrInvalidEvent)
	}
}

// Record dispatches a phase event to the matching hook.
// took is only used for EventSuccess.
func (s *Shard) Record(p Phase, e Event, groups []string, took time.Duration) error {
	switch p {
	case PhaseQuery, PhaseFetch:
	default:
		return fmt.Errorf("%v: %w", p, shardstats.ErrInvalidEvent)
	}

	switch e {
	case EventPre:
		s.onPre(p, groups)
	case EventFailed:
		s.onFailed(p, groups)
	case EventSuccess:
		if took < 0 {
			return fmt.Errorf("negative took %v: %w", took, shardstats.ErrInvalidEvent)
		}
		s.onPhase(p, groups, took)
	default:
		return fmt.Errorf("unknown event %q: %w", e, shardstats.ErrInvalidEvent)
	}

	return nil
}

// Track runs fn as one phase of a search request.
//
// The phase is marked in flight before fn runs. When fn returns nil its elapsed
// time is recorded, otherwise (including a panic) the phase is marked failed.
func (s *Shard) Track(p Phase, groups []string, fn func() error) error {
	s.onPre(p, groups)

	done := false
	defer func() {
		if !done {
			s.onFailed(p, groups)
		}
	}()

	start := now()
	if err := fn(); err != nil {
		return err
	}

	done = true
	s.onPhase(p, groups, now().Sub(start))
	return nil
}

func (s *Shard) onPre(p Phase, groups []string) {
	if p == PhaseFetch {
		s.OnPreFetchPhase(groups)
		return
	}
	s.OnPreQueryPhase(groups)
}

func (s *Shard) onFailed(p Phase, groups []string) {
	if p == PhaseFetch {
		s.OnFailedFetchPhase(groups)
		return
	}
	s.OnFailedQueryPhase(groups)
}

func (s *Shard) onPhase(p Phase, groups []string, took time.Duration) {
	if p == PhaseFetch {
		s.OnFetchPhase(groups, took)
		return
	}
	s.OnQueryPhase(groups, took)
}

var now = time.Now
