// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// UnitsTotal counts resolution units by kind and outcome (ok, empty, cached).
	UnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_units_total",
			Help: "Resolution units executed, by unit kind and outcome",
		},
		[]string{"unit", "outcome"},
	)

	UnitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_unit_duration_seconds",
			Help:    "Wall time of a single resolution unit",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"unit"},
	)

	MemoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_memo_lookups_total",
			Help: "Product memory lookups by result (hit, miss, stale, bypass, error)",
		},
		[]string{"result"},
	)

	LLMCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_llm_cache_lookups_total",
			Help: "AI response cache lookups by result (hit, miss, stale, bypass, error)",
		},
		[]string{"result"},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_jobs_total",
			Help: "Spreadsheet generation jobs by terminal state",
		},
		[]string{"state"},
	)

	RowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_rows_written_total",
			Help: "Spreadsheet rows written including variation rows",
		},
	)
)
