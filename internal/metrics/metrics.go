// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

// Package metrics exposes the Prometheus instrumentation for the service:
// HTTP traffic, feed refreshes, report scoring, AI usage, and routing
// provider calls. All collectors register through promauto at package
// init and are safe for concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of HTTP requests currently in flight",
		},
	)

	// Feed metrics.
	FeedRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_refreshes_total",
			Help: "Total feed cache refresh attempts by outcome",
		},
		[]string{"feed", "outcome"}, // outcome: success, stale, error
	)

	FeedEvents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_cached_events",
			Help: "Events currently cached per feed",
		},
		[]string{"feed"},
	)

	// Report metrics.
	ReportsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_submitted_total",
			Help: "Total user report submissions by auth state",
		},
		[]string{"authenticated"},
	)

	ReportConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_confidence_score",
			Help:    "Confidence scores assigned to user reports",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// AI metrics.
	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "AI analysis attempts by provider and outcome",
		},
		[]string{"provider", "outcome"}, // outcome: success, error, quota, cached
	)

	// Routing metrics.
	RouteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_requests_total",
			Help: "Route calculations by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// Proximity alert metrics.
	AlertScans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_scans_total",
			Help: "Total proximity alert scans",
		},
	)

	NotificationsMaterialized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_materialized_total",
			Help: "Total notifications persisted for authenticated users",
		},
	)
)

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		httpActiveRequests.Inc()
	} else {
		httpActiveRequests.Dec()
	}
}

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
