package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridepool_logins_total",
			Help: "Total number of login attempts by result.",
		},
		[]string{"result"},
	)

	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridepool_registrations_total",
		Help: "Total number of completed registrations.",
	})

	passwordResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridepool_password_resets_total",
			Help: "Total number of password reset attempts by result.",
		},
		[]string{"result"},
	)

	postEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridepool_post_events_total",
			Help: "Total number of post lifecycle events by type.",
		},
		[]string{"event"},
	)

	joinRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridepool_join_requests_total",
		Help: "Total number of recorded requests to join a ride.",
	})
)
