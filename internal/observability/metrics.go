package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Name:      "packets_sent_total",
			Help:      "Packets written to the RCON socket.",
		},
		[]string{"type"},
	)
	fragmentsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Name:      "fragments_received_total",
			Help:      "Response fragments accumulated for a command.",
		},
	)
	packetsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Name:      "packets_dropped_total",
			Help:      "Packets read from the socket and discarded.",
		},
		[]string{"reason"},
	)
	roundTripDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rconctl",
			Name:      "round_trip_seconds",
			Help:      "Duration of one request/decoy round trip.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "outcome"},
	)
	learnedNodes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Name:      "learned_nodes_total",
			Help:      "Command tree nodes created from help output.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packetsSent, fragmentsReceived, packetsDropped, roundTripDuration, learnedNodes)
	})
}

func RecordPacketSent(packetType string) {
	RegisterMetrics()
	packetsSent.WithLabelValues(packetType).Inc()
}

func RecordFragment() {
	RegisterMetrics()
	fragmentsReceived.Inc()
}

func RecordDropped(reason string) {
	RegisterMetrics()
	packetsDropped.WithLabelValues(reason).Inc()
}

func RecordRoundTrip(kind, outcome string, duration time.Duration) {
	RegisterMetrics()
	roundTripDuration.WithLabelValues(kind, outcome).Observe(duration.Seconds())
}

func RecordLearned(nodes int) {
	if nodes <= 0 {
		return
	}
	RegisterMetrics()
	learnedNodes.Add(float64(nodes))
}
