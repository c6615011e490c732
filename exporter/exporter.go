// Package exporter exposes shard search metrics as Prometheus metrics.
//
// The Collector reads fresh snapshots at scrape time, nothing is
// duplicated into Prometheus' own counters.
package exporter

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudbox/shardstats"
	"github.com/cloudbox/shardstats/shards"
	"github.com/cloudbox/shardstats/stats"
)

const MetricPrefix = "shardstats_"

// Source provides per-shard snapshots, usually a *shards.Registry.
type Source interface {
	Snapshots(groups ...string) []shards.ShardSnapshot
}

type descs struct {
	queryTotal   *prometheus.Desc
	queryTime    *prometheus.Desc
	queryCurrent *prometheus.Desc
	fetchTotal   *prometheus.Desc
	fetchTime    *prometheus.Desc
	fetchCurrent *prometheus.Desc
}

func newDescs(prefix string, labels []string) descs {
	return descs{
		queryTotal:   prometheus.NewDesc(prefix+"query_total", "Completed query phases", labels, nil),
		queryTime:    prometheus.NewDesc(prefix+"query_time_seconds_total", "Time spent in completed query phases", labels, nil),
		queryCurrent: prometheus.NewDesc(prefix+"query_current", "Query phases in flight", labels, nil),
		fetchTotal:   prometheus.NewDesc(prefix+"fetch_total", "Completed fetch phases", labels, nil),
		fetchTime:    prometheus.NewDesc(prefix+"fetch_time_seconds_total", "Time spent in completed fetch phases", labels, nil),
		fetchCurrent: prometheus.NewDesc(prefix+"fetch_current", "Fetch phases in flight", labels, nil),
	}
}

func (d descs) describe(ch chan<- *prometheus.Desc) {
	ch <- d.queryTotal
	ch <- d.queryTime
	ch <- d.queryCurrent
	ch <- d.fetchTotal
	ch <- d.fetchTime
	ch <- d.fetchCurrent
}

func (d descs) collect(ch chan<- prometheus.Metric, st stats.Stats, labels ...string) {
	ch <- prometheus.MustNewConstMetric(d.queryTotal, prometheus.CounterValue, float64(st.QueryCount), labels...)
	ch <- prometheus.MustNewConstMetric(d.queryTime, prometheus.CounterValue, st.QueryTime().Seconds(), labels...)
	ch <- prometheus.MustNewConstMetric(d.queryCurrent, prometheus.GaugeValue, float64(st.QueryCurrent), labels...)
	ch <- prometheus.MustNewConstMetric(d.fetchTotal, prometheus.CounterValue, float64(st.FetchCount), labels...)
	ch <- prometheus.MustNewConstMetric(d.fetchTime, prometheus.CounterValue, st.FetchTime().Seconds(), labels...)
	ch <- prometheus.MustNewConstMetric(d.fetchCurrent, prometheus.GaugeValue, float64(st.FetchCurrent), labels...)
}

// Collector is a prometheus.Collector over shard snapshots.
type Collector struct {
	source Source
	groups bool

	shard descs
	group descs
}

// NewCollector creates a Collector. With groups enabled every tracked group
// is exported under shardstats_group_* with an additional group label.
func NewCollector(source Source, groups bool) *Collector {
	return &Collector{
		source: source,
		groups: groups,
		shard:  newDescs(MetricPrefix, []string{"index", "shard"}),
		group:  newDescs(MetricPrefix+"group_", []string{"index", "shard", "group"}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.shard.describe(ch)
	if c.groups {
		c.group.describe(ch)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var filter []string
	if c.groups {
		filter = []string{shardstats.AllGroups}
	}

	for _, snap := range c.source.Snapshots(filter...) {
		shard := strconv.Itoa(snap.Shard)
		c.shard.collect(ch, snap.Stats.Total, snap.Index, shard)

		for name, st := range snap.Stats.Groups {
			c.group.collect(ch, st, snap.Index, shard, name)
		}
	}
}

// NewRegistry returns a dedicated Prometheus registry with the collector registered.
func NewRegistry(source Source, groups bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source, groups))
	return reg
}
