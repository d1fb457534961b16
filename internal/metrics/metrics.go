package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignupsTotal counts successful student registrations.
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "signups_total",
		Help:      "Number of successful student signups.",
	})

	// ScansTotal counts recorded attendance scans by outcome.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "scans_total",
		Help:      "Number of attendance scan attempts.",
	}, []string{"outcome"})

	// AuthFailuresTotal counts rejected logins.
	AuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "auth_failures_total",
		Help:      "Number of failed login attempts.",
	})
)
