package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline metrics.
var (
	PipelineMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchplane",
			Name:      "pipeline_messages_total",
			Help:      "Messages dispatched through the pipeline",
		},
		[]string{"message", "status"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchplane",
			Name:      "pipeline_duration_seconds",
			Help:      "Pipeline dispatch duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"message"},
	)
)

// Token cache metrics.
var TokenCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "searchplane",
		Name:      "token_cache_total",
		Help:      "Token cache hits and misses",
	},
	[]string{"result"}, // "hit" / "miss"
)

// Live notification metrics.
var (
	NotifyConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "searchplane",
			Name:      "notify_connections_active",
			Help:      "Open notification connections",
		},
	)

	NotifyBroadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "searchplane",
			Name:      "notify_broadcasts_total",
			Help:      "Broadcasts fanned out to a bucket",
		},
	)

	NotifyDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "searchplane",
			Name:      "notify_dropped_connections_total",
			Help:      "Connections removed after a failed send",
		},
	)

	BridgeMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchplane",
			Name:      "bridge_messages_total",
			Help:      "Pub/sub messages consumed by the bridge",
		},
		[]string{"channel", "result"}, // "delivered" / "invalid"
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Must be called once from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			PipelineMessagesTotal,
			PipelineDuration,
			TokenCacheTotal,
			NotifyConnectionsActive,
			NotifyBroadcastsTotal,
			NotifyDroppedTotal,
			BridgeMessagesTotal,
		)
	})
}
