// Package metrics holds the Prometheus collectors of the persistence pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "inscription_transactions_total", Help: "Transactions seen by the plugin, by outcome"},
		[]string{"result"},
	)
	SubmitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "inscription_submit_total", Help: "Work items handed to the queue"},
		[]string{"status"},
	)
	UpsertTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "inscription_upsert_total", Help: "Upsert attempts"},
		[]string{"status"},
	)
	UpsertDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "inscription_upsert_duration_seconds", Help: "Upsert latency", Buckets: prometheus.DefBuckets},
		[]string{"status"},
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "inscription_queue_depth", Help: "Work items waiting for a worker"},
	)
	WorkersInitialized = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "inscription_workers_initialized", Help: "Workers holding a live database connection"},
	)
	StartupAcknowledged = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "inscription_workers_startup_acknowledged", Help: "Workers that observed the end of startup backfill"},
	)
)

func init() {
	prometheus.MustRegister(
		TransactionsTotal,
		SubmitTotal,
		UpsertTotal,
		UpsertDuration,
		QueueDepth,
		WorkersInitialized,
		StartupAcknowledged,
	)
}

func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
