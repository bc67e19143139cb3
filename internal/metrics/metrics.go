// Package metrics exposes Prometheus instruments for the store and the
// gamification pipeline. Instruments are registered on the default
// registry so the middleware's /metrics endpoint picks them up.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CachedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dailycheck_cache_records",
		Help: "Number of user records currently held in the cache.",
	})

	DirtyRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dailycheck_cache_dirty_records",
		Help: "Number of cached records with unflushed changes.",
	})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dailycheck_cache_evictions_total",
		Help: "Clean records evicted from the cache.",
	})

	CachePressureWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dailycheck_cache_pressure_warnings_total",
		Help: "Times the cache exceeded capacity with every record dirty.",
	})

	Flushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dailycheck_store_flushes_total",
		Help: "Successful snapshot flushes.",
	})

	FlushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dailycheck_store_flush_failures_total",
		Help: "Snapshot flushes that failed and kept records dirty.",
	})

	FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dailycheck_store_flush_duration_seconds",
		Help:    "Time spent writing and verifying a snapshot.",
		Buckets: prometheus.DefBuckets,
	})

	BackupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dailycheck_store_backups_total",
		Help: "Backups written.",
	})

	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dailycheck_tasks_completed_total",
		Help: "Task completions recorded.",
	})

	AchievementsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dailycheck_achievements_awarded_total",
		Help: "Achievements granted.",
	})

	LevelUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dailycheck_level_ups_total",
		Help: "User level-ups.",
	})
)
