// Package metrics holds the Prometheus collectors exposed on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokenOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "easyforms_token_operations_total",
			Help: "Total number of token operations, by flow, operation and result.",
		},
		[]string{"flow", "operation", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "easyforms_http_requests_total",
			Help: "Total number of HTTP requests, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "easyforms_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	MailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "easyforms_mail_deliveries_total",
			Help: "Total number of background mail deliveries, by result.",
		},
		[]string{"result"}, // success, failure, dropped
	)
)
