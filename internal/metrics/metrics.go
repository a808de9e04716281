// Package metrics holds the Prometheus collectors for sync sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "matchdesk"

type Metrics struct {
	Messages     *prometheus.CounterVec
	Records      *prometheus.CounterVec
	Edits        *prometheus.CounterVec
	Renders      *prometheus.CounterVec
	Alerts       *prometheus.CounterVec
	ChannelState *prometheus.GaugeVec
	Buffered     *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_messages_total",
			Help:      "Inbound push messages by outcome.",
		}, []string{"slug", "outcome"}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_applied_total",
			Help:      "Records applied to the replica by operation.",
		}, []string{"slug", "op"}),
		Edits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Operator edits by result.",
		}, []string{"slug", "result"}),
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Display refreshes triggered by replica changes.",
		}, []string{"slug"}),
		Alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Operator alerts raised.",
		}, []string{"slug"}),
		ChannelState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_state",
			Help:      "Push channel state (0 disconnected, 1 connecting, 2 bootstrapping, 3 synchronized, 4 degraded).",
		}, []string{"slug"}),
		Buffered: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffered_messages",
			Help:      "Push messages held until the snapshot loads.",
		}, []string{"slug"}),
	}
}
