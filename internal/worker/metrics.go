package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry            *prometheus.Registry
	batchesTotal        *prometheus.CounterVec
	batchDuration       *prometheus.HistogramVec
	activeBatches       prometheus.Gauge
	outputsWrittenTotal prometheus.Counter
	outputsFailedTotal  prometheus.Counter
	imagesSkippedTotal  prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelfan_worker_batches_total",
			Help: "Total worker batches by source type and final status.",
		}, []string{"source_type", "status"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixelfan_worker_batch_duration_seconds",
			Help:    "Total processing duration for each worker batch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source_type", "status"}),
		activeBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pixelfan_worker_active_batches",
			Help: "Current number of batches being processed by the worker.",
		}),
		outputsWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelfan_worker_outputs_written_total",
			Help: "Total combination outputs persisted by the worker.",
		}),
		outputsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelfan_worker_outputs_failed_total",
			Help: "Total combination outputs that failed to persist.",
		}),
		imagesSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelfan_worker_images_skipped_total",
			Help: "Total source images skipped as unreadable or undecodable.",
		}),
	}

	registry.MustRegister(
		m.batchesTotal,
		m.batchDuration,
		m.activeBatches,
		m.outputsWrittenTotal,
		m.outputsFailedTotal,
		m.imagesSkippedTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
