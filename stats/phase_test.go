package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/cloudbox/shardstats"
)

func fixedClock(t *testing.T, step time.Duration) {
	t.Helper()

	current := time.Unix(0, 0)
	now = func() time.Time {
		current = current.Add(step)
		return current
	}
	t.Cleanup(func() { now = time.Now })
}

func TestParsePhase(t *testing.T) {
	for input, want := range map[string]Phase{"query": PhaseQuery, "FETCH": PhaseFetch} {
		got, err := ParsePhase(input)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", input, err)
		}
		if got != want {
			t.Errorf("%s: expected %v, got %v", input, want, got)
		}
	}

	if _, err := ParsePhase("dfs"); !errors.Is(err, shardstats.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestTrackSuccess(t *testing.T) {
	fixedClock(t, 4*time.Millisecond)
	s := New(testShard)

	err := s.Track(PhaseQuery, []string{"g1"}, func() error {
		if got := s.Stats().Total.QueryCurrent; got != 1 {
			t.Errorf("expected query in flight during fn, got %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := Stats{QueryCount: 1, QueryTimeMillis: 4}
	if got := s.Stats("g1").Groups["g1"]; got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestTrackFailure(t *testing.T) {
	s := New(testShard)
	boom := errors.New("boom")

	err := s.Track(PhaseFetch, []string{"g1"}, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	if got := s.Stats("g1").Groups["g1"]; got != (Stats{}) {
		t.Errorf("expected no sample and nothing in flight, got %+v", got)
	}
}

func TestTrackPanicMarksFailed(t *testing.T) {
	s := New(testShard)

	func() {
		defer func() { _ = recover() }()
		_ = s.Track(PhaseFetch, nil, func() error { panic("boom") })
	}()

	if got := s.Stats().Total.FetchCurrent; got != 0 {
		t.Errorf("expected fetch_current=0 after panic, got %d", got)
	}
}

func TestRecord(t *testing.T) {
	s := New(testShard)
	groups := []string{"g1"}

	steps := []struct {
		Phase Phase
		Event Event
		Took  time.Duration
	}{
		{PhaseQuery, EventPre, 0},
		{PhaseQuery, EventSuccess, 2 * time.Millisecond},
		{PhaseFetch, EventPre, 0},
		{PhaseFetch, EventFailed, 0},
		{PhaseFetch, EventPre, 0},
	}

	for _, step := range steps {
		if err := s.Record(step.Phase, step.Event, groups, step.Took); err != nil {
			t.Fatalf("%v %v: %v", step.Phase, step.Event, err)
		}
	}

	want := Stats{QueryCount: 1, QueryTimeMillis: 2, FetchCurrent: 1}
	if got := s.Stats("g1").Groups["g1"]; got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRecordInvalid(t *testing.T) {
	s := New(testShard)

	if err := s.Record(PhaseQuery, Event("done"), nil, 0); !errors.Is(err, shardstats.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent for unknown event, got %v", err)
	}
	if err := s.Record(Phase(7), EventPre, nil, 0); !errors.Is(err, shardstats.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent for unknown phase, got %v", err)
	}
	if err := s.Record(PhaseQuery, EventSuccess, nil, -time.Second); !errors.Is(err, shardstats.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent for negative took, got %v", err)
	}

	if s.Stats().Total != (Stats{}) {
		t.Errorf("expected invalid events to leave stats untouched, got %+v", s.Stats().Total)
	}
}

func TestParseEvent(t *testing.T) {
	for _, input := range []string{"pre", "success", "Failed"} {
		if _, err := ParseEvent(input); err != nil {
			t.Errorf("%s: unexpected error %v", input, err)
		}
	}

	if _, err := ParseEvent("done"); !errors.Is(err, shardstats.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}
