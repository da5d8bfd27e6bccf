package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ddlconv_build_info",
			Help: "Build information of the DDL conversion service",
		},
		[]string{"version", "commit", "date"},
	)

	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddlconv_conversions_total",
			Help: "Total number of single-file conversions",
		},
		[]string{"status"},
	)

	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ddlconv_conversion_duration_seconds",
			Help:    "Duration of single-file conversions",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 0.001s to ~4.1s
		},
	)

	BatchFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddlconv_batch_files_total",
			Help: "Total number of files handled by batch jobs",
		},
		[]string{"status"},
	)

	DuplicateUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ddlconv_duplicate_uploads_total",
			Help: "Total number of uploads skipped as byte-identical duplicates",
		},
	)

	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ddlconv_jobs_active",
			Help: "Number of batch jobs currently running",
		},
	)
)
