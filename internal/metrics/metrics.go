package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "slicereports"

// Query phases reported by the engine.
const (
	PhaseCount    = "count"
	PhaseFetch    = "fetch"
	PhaseAssemble = "assemble"
	PhaseTotal    = "total"
)

// Collectors holds the report engine metrics.
type Collectors struct {
	QueryDuration *prometheus.HistogramVec
	QueryFailures *prometheus.CounterVec
	ForcedWindows *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of report query phases.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"entity", "phase"}),
		QueryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_failures_total",
			Help:      "Report queries that failed.",
		}, []string{"entity"}),
		ForcedWindows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_window_total",
			Help:      "Queries whose time window was forced to the default width.",
		}, []string{"entity"}),
	}
	if reg != nil {
		reg.MustRegister(c.QueryDuration, c.QueryFailures, c.ForcedWindows)
	}
	return c
}

// Observe records the time elapsed since start for the entity/phase pair.
// Safe on a nil receiver.
func (c *Collectors) Observe(entity, phase string, start time.Time) {
	if c == nil {
		return
	}
	c.QueryDuration.WithLabelValues(entity, phase).Observe(time.Since(start).Seconds())
}

func (c *Collectors) Failed(entity string) {
	if c == nil {
		return
	}
	c.QueryFailures.WithLabelValues(entity).Inc()
}

func (c *Collectors) WindowForced(entity string) {
	if c == nil {
		return
	}
	c.ForcedWindows.WithLabelValues(entity).Inc()
}
