// Package metrics collects prometheus counters and gauges for the parts of
// the system registry.Registry doesn't already track on its own.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector the composition root registers.
type Metrics struct {
	FeedParseErrors      *prometheus.CounterVec
	SubscriptionFanOut   prometheus.Counter
	ComplianceRejections *prometheus.CounterVec
	RiskState            *prometheus.GaugeVec
	BacktesterQueueDepth prometheus.Gauge
}

// New constructs every collector, unregistered.
func New() *Metrics {
	return &Metrics{
		FeedParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_parse_errors_total",
			Help: "Number of market-data messages that failed to parse, by source.",
		}, []string{"source"}),
		SubscriptionFanOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subscription_fan_out_total",
			Help: "Number of values dispatched across all subscriber queues.",
		}),
		ComplianceRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_rejections_total",
			Help: "Number of compliance rejections, by rule schema name.",
		}, []string{"rule"}),
		RiskState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "risk_state",
			Help: "Current risk transition state (0-6) per account.",
		}, []string{"account"}),
		BacktesterQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtester_event_queue_depth",
			Help: "Number of events currently queued in the backtester's event handler.",
		}),
	}
}

// Collectors returns every collector for registration with a
// prometheus.Registerer.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FeedParseErrors,
		m.SubscriptionFanOut,
		m.ComplianceRejections,
		m.RiskState,
		m.BacktesterQueueDepth,
	}
}
