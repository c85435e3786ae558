package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	engineTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gobpio",
			Subsystem: "engine",
			Name:      "transactions_total",
			Help:      "Protocol transactions by request kind and outcome.",
		},
		[]string{"kind", "status"},
	)
	engineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gobpio",
			Subsystem: "engine",
			Name:      "transaction_duration_seconds",
			Help:      "Transaction duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	bridgeBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gobpio",
			Subsystem: "bridge",
			Name:      "bytes_total",
			Help:      "Bytes proxied between TCP clients and the serial port.",
		},
		[]string{"direction"},
	)
	bridgeSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gobpio",
			Subsystem: "bridge",
			Name:      "sessions_total",
			Help:      "TCP client sessions accepted by the bridge.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(engineTransactions, engineDuration, bridgeBytes, bridgeSessions)
	})
}

func RecordTransaction(kind, status string, duration time.Duration) {
	RegisterMetrics()
	engineTransactions.WithLabelValues(kind, status).Inc()
	engineDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordBridgeBytes(direction string, n int) {
	RegisterMetrics()
	bridgeBytes.WithLabelValues(direction).Add(float64(n))
}

func RecordBridgeSession() {
	RegisterMetrics()
	bridgeSessions.Inc()
}
