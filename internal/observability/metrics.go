package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes recorded by the dispatch pipeline.
const (
	OutcomeHandled  = "handled"
	OutcomeRejected = "rejected"
	OutcomeUnknown  = "unknown"
	OutcomeDropped  = "dropped"
)

// Metrics holds the Prometheus collectors for the dispatch core. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	commands     *prometheus.CounterVec
	replies      *prometheus.CounterVec
	connections  prometheus.Gauge
	sessions     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
//
// Precondition: reg must be non-nil and must not already hold these collectors.
// Postcondition: Returns Metrics or the registration error.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ServiceName,
			Name:      "ticks_total",
			Help:      "Dispatch ticks executed",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ServiceName,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent per dispatch tick",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ServiceName,
			Name:      "commands_total",
			Help:      "Commands processed by outcome",
		}, []string{"outcome"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ServiceName,
			Name:      "replies_total",
			Help:      "Replies emitted by kind",
		}, []string{"kind"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ServiceName,
			Name:      "connections",
			Help:      "Live connections",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ServiceName,
			Name:      "transport_sessions_total",
			Help:      "Transport sessions opened by transport",
		}, []string{"transport"}),
	}

	for _, c := range []prometheus.Collector{m.ticks, m.tickDuration, m.commands, m.replies, m.connections, m.sessions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveTick records one completed tick.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// CountCommand records one command with the given outcome.
func (m *Metrics) CountCommand(outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(outcome).Inc()
}

// CountReply records one reply; failed selects the "err" kind.
func (m *Metrics) CountReply(failed bool) {
	if m == nil {
		return
	}
	kind := "ok"
	if failed {
		kind = "err"
	}
	m.replies.WithLabelValues(kind).Inc()
}

// SetConnections records the live connection count.
func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

// CountSession records one transport session opened on transport.
func (m *Metrics) CountSession(transport string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(transport).Inc()
}
