package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridepool_rate_limited_requests_total",
		Help: "Requests rejected by the per-IP rate limiter.",
	})
	csrfRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridepool_csrf_rejected_requests_total",
		Help: "State-changing requests rejected for a foreign or missing origin.",
	})
)
