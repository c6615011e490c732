package metric

import (
	"sync"
	"testing"
)

func TestCounterZeroValue(t *testing.T) {
	var c Counter
	if got := c.Count(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestCounterIncDec(t *testing.T) {
	var c Counter
	c.Inc()
	c.Inc()
	c.Inc()
	c.Dec()

	if got := c.Count(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestCounterConcurrent(t *testing.T) {
	var c Counter

	const goroutines = 64
	const perG = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines * 2)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range perG * 2 {
				c.Inc()
			}
		}()
		go func() {
			defer wg.Done()
			for range perG {
				c.Dec()
			}
		}()
	}

	wg.Wait()

	if got, want := c.Count(), int64(goroutines*perG); got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
}

func TestMeanAccumulates(t *testing.T) {
	var m Mean
	m.Inc(1_000_000)
	m.Inc(3_000_000)

	if m.Count() != 2 {
		t.Errorf("expected count=2, got %d", m.Count())
	}
	if m.Sum() != 4_000_000 {
		t.Errorf("expected sum=4000000, got %d", m.Sum())
	}
	if m.Mean() != 2_000_000 {
		t.Errorf("expected mean=2000000, got %f", m.Mean())
	}
}

func TestMeanNegativeAmount(t *testing.T) {
	var m Mean
	m.Inc(10)
	m.Inc(-4)

	if m.Count() != 2 || m.Sum() != 6 {
		t.Errorf("expected count=2 sum=6, got count=%d sum=%d", m.Count(), m.Sum())
	}
}

func TestMeanEmpty(t *testing.T) {
	var m Mean
	if m.Mean() != 0 {
		t.Errorf("expected mean=0 without samples, got %f", m.Mean())
	}
}

func TestMeanClear(t *testing.T) {
	var m Mean
	m.Inc(5)
	m.Clear()

	if m.Count() != 0 || m.Sum() != 0 {
		t.Errorf("expected cleared mean, got count=%d sum=%d", m.Count(), m.Sum())
	}

	m.Inc(7)
	if m.Count() != 1 || m.Sum() != 7 {
		t.Errorf("expected count=1 sum=7 after clear, got count=%d sum=%d", m.Count(), m.Sum())
	}
}

func TestMeanConcurrent(t *testing.T) {
	var m Mean

	const goroutines = 32
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range perG {
				m.Inc(3)
			}
		}()
	}
	wg.Wait()

	want := int64(goroutines * perG)
	if m.Count() != want {
		t.Errorf("expected count=%d, got %d", want, m.Count())
	}
	if m.Sum() != want*3 {
		t.Errorf("expected sum=%d, got %d", want*3, m.Sum())
	}
}
