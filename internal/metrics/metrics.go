// Package metrics holds the Prometheus collectors of the scheduler. They are
// registered on the default registry and served by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Schedules counts scheduling calls by outcome ("normal" or "fallback")
	// and priority.
	Schedules = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendtime_schedules_total",
			Help: "Total number of send-time scheduling calls",
		},
		[]string{"outcome", "priority"},
	)

	// Adjustments counts adjustments made per pipeline stage.
	Adjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendtime_adjustments_total",
			Help: "Total number of adjustments made by each constraint stage",
		},
		[]string{"stage"},
	)

	// BatchSize tracks the number of contexts per batch call.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sendtime_batch_size",
			Help:    "Number of scheduling contexts per batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// BatchDuration tracks batch scheduling latency.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sendtime_batch_duration_seconds",
			Help:    "Batch scheduling duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RateLimited counts API requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendtime_api_rate_limited_total",
			Help: "Total number of API requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// Reschedules counts campaign reschedule runs by result.
	Reschedules = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sendtime_reschedules_total",
			Help: "Total number of campaign reschedule runs",
		},
		[]string{"result"},
	)

	// RescheduledItems counts queue items given a new send time.
	RescheduledItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sendtime_rescheduled_items_total",
			Help: "Total number of queue items rescheduled",
		},
	)
)
