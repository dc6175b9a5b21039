// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PermitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lokasi",
		Name:      "permit_decisions_total",
		Help:      "Permit application decisions by resulting status.",
	}, []string{"status"})

	PermitSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lokasi",
		Name:      "permit_submissions_total",
		Help:      "Permit applications submitted.",
	})

	ReportTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lokasi",
		Name:      "report_transitions_total",
		Help:      "Report status changes by target status.",
	}, []string{"status"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lokasi",
		Name:      "notifications_total",
		Help:      "Notifications emitted by type and outcome.",
	}, []string{"type", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lokasi",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
)
