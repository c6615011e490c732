package stats

import "time"

// Stats are the search phase metrics of one scope, the shard total or a single group.
type Stats struct {
	QueryCount      int64 `json:"query_total"`
	QueryTimeMillis int64 `json:"query_time_in_millis"`
	QueryCurrent    int64 `json:"query_current"`

	FetchCount      int64 `json:"fetch_total"`
	FetchTimeMillis int64 `json:"fetch_time_in_millis"`
	FetchCurrent    int64 `json:"fetch_current"`
}

// QueryTime returns the total time spent in the query phase.
func (s Stats) QueryTime() time.Duration {
	return time.Duration(s.QueryTimeMillis) * time.Millisecond
}

// FetchTime returns the total time spent in the fetch phase.
func (s Stats) FetchTime() time.Duration {
	return time.Duration(s.FetchTimeMillis) * time.Millisecond
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		QueryCount:      s.QueryCount + o.QueryCount,
		QueryTimeMillis: s.QueryTimeMillis + o.QueryTimeMillis,
		QueryCurrent:    s.QueryCurrent + o.QueryCurrent,
		FetchCount:      s.FetchCount + o.FetchCount,
		FetchTimeMillis: s.FetchTimeMillis + o.FetchTimeMillis,
		FetchCurrent:    s.FetchCurrent + o.FetchCurrent,
	}
}

// Snapshot is a point-in-time copy of a shard's search metrics.
// Groups is nil when no group section was requested.
type Snapshot struct {
	Total  Stats            `json:"total"`
	Groups map[string]Stats `json:"groups,omitempty"`
}

// Add merges two snapshots into a new one, summing totals and same-named groups.
// Neither input is modified.
func (s Snapshot) Add(o Snapshot) Snapshot {
	merged := Snapshot{Total: s.Total.Add(o.Total)}
	if s.Groups == nil && o.Groups == nil {
		return merged
	}

	merged.Groups = make(map[string]Stats, len(s.Groups)+len(o.Groups))
	for name, st := range s.Groups {
		merged.Groups[name] = st
	}
	for name, st := range o.Groups {
		merged.Groups[name] = merged.Groups[name].Add(st)
	}

	return merged
}
