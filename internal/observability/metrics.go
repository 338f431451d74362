package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key family and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_cache_lookups_total",
		Help: "Cache lookups by key family and result (hit, miss)",
	}, []string{"family", "result"})

	// LocationLookups counts geographic directory calls by level.
	LocationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_location_lookups_total",
		Help: "Geographic directory lookups by level",
	}, []string{"level"})

	// LocationLookupFailures counts directory calls that degraded to an empty list.
	LocationLookupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_location_lookup_failures_total",
		Help: "Geographic directory lookups that failed soft, by level",
	}, []string{"level"})

	// ViewCounterEnqueued counts views accepted by the view counter.
	ViewCounterEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whereismypet_view_counter_enqueued_total",
		Help: "Post views queued for increment",
	})

	// ViewCounterDropped counts views dropped because the queue was full or closed.
	ViewCounterDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_view_counter_dropped_total",
		Help: "Post views dropped before reaching the store",
	}, []string{"reason"})

	// ViewCounterFailures counts increments the store rejected.
	ViewCounterFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whereismypet_view_counter_failures_total",
		Help: "View count increments that failed at the store",
	})

	// ReportsSubmitted counts durable moderation reports by reason.
	ReportsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_reports_submitted_total",
		Help: "Moderation reports recorded, by reason code",
	}, []string{"reason"})

	// ImageUploads counts image host uploads by result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_image_uploads_total",
		Help: "Image host uploads by result (ok, rejected, upstream_error)",
	}, []string{"result"})

	// OrphanSweepDeleted counts dependent rows removed by the orphan sweeper.
	OrphanSweepDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_orphan_sweep_deleted_total",
		Help: "Orphaned rows removed, by table",
	}, []string{"table"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "whereismypet_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whereismypet_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
