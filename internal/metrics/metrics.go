// Package metrics collects command-level counters for debugging slow or
// flaky backends. Exposure is optional; the collector is always safe to use.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records per-command outcomes and latency.
type Collector struct {
	commandOK     *prometheus.CounterVec
	commandFail   *prometheus.CounterVec
	commandTime   *prometheus.HistogramVec
	refreshRuns   prometheus.Counter
	staleDiscards prometheus.Counter
}

// NewCollector registers the command metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commandOK: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worryless_command_success_total",
			Help: "Successful gateway commands, by command name.",
		}, []string{"command"}),
		commandFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worryless_command_fail_total",
			Help: "Failed gateway commands, by command name.",
		}, []string{"command"}),
		commandTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worryless_command_duration_seconds",
			Help:    "Gateway command round-trip time, by command name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		refreshRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worryless_refresh_runs_total",
			Help: "Snapshot refresh sequences started.",
		}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worryless_refresh_stale_discards_total",
			Help: "Refresh step results discarded because a newer run superseded them.",
		}),
	}

	reg.MustRegister(
		c.commandOK,
		c.commandFail,
		c.commandTime,
		c.refreshRuns,
		c.staleDiscards,
	)

	return c
}

// RecordCommand records one gateway call outcome and its duration.
func (c *Collector) RecordCommand(command string, ok bool, duration time.Duration) {
	if ok {
		c.commandOK.WithLabelValues(command).Inc()
	} else {
		c.commandFail.WithLabelValues(command).Inc()
	}
	c.commandTime.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordRefresh counts a started refresh sequence.
func (c *Collector) RecordRefresh() {
	c.refreshRuns.Inc()
}

// RecordStaleDiscard counts a step result dropped as stale.
func (c *Collector) RecordStaleDiscard() {
	c.staleDiscards.Inc()
}

// Handler returns the scrape handler for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
