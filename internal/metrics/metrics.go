package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paystream_ledger_bookings_total",
		Help: "Ledger booking attempts by outcome",
	}, []string{"outcome"})

	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paystream_transfers_total",
		Help: "Transfer saga outcomes",
	}, []string{"status"})

	OutboxPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paystream_outbox_published_total",
		Help: "Outbox rows published to the bus",
	})

	OutboxPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paystream_outbox_publish_errors_total",
		Help: "Failed publish attempts from the outbox relay",
	})

	SnapshotDeltasApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paystream_snapshot_deltas_total",
		Help: "Snapshot deltas by result (applied or skipped by watermark)",
	}, []string{"result"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paystream_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)
