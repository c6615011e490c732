// Package metric provides lock-free counters for hot search paths.
package metric

import "sync/atomic"

// Counter is an atomic counter which may be incremented and decremented.
// The zero value is ready for use.
type Counter struct {
	v atomic.Int64
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.v.Add(1)
}

// Dec decrements the counter by one.
func (c *Counter) Dec() {
	c.v.Add(-1)
}

// Count returns the current value.
func (c *Counter) Count() int64 {
	return c.v.Load()
}

// Mean accumulates a sample count and a sample sum.
//
// Count and sum are updated independently, a concurrent reader may observe
// a sum which does not yet include the latest counted sample.
// The zero value is ready for use.
type Mean struct {
	count atomic.Int64
	sum   atomic.Int64
}

// Inc records one sample of the given amount.
func (m *Mean) Inc(amount int64) {
	m.count.Add(1)
	m.sum.Add(amount)
}

// Count returns the number of recorded samples.
func (m *Mean) Count() int64 {
	return m.count.Load()
}

// Sum returns the sum of all recorded samples.
func (m *Mean) Sum() int64 {
	return m.sum.Load()
}

// Mean returns sum / count, or 0 when nothing was recorded.
func (m *Mean) Mean() float64 {
	count := m.count.Load()
	if count == 0 {
		return 0
	}

	return float64(m.sum.Load()) / float64(count)
}

// Clear resets count and sum. Samples recorded concurrently may be lost or kept.
func (m *Mean) Clear() {
	m.count.Store(0)
	m.sum.Store(0)
}
