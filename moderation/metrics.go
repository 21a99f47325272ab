package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_outcomes_total",
	Help: "Number of moderation requests by action and outcome",
}, []string{"action", "outcome"})

var quarantined = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_quarantined_total",
	Help: "Number of quarantined items by spam rule fired",
}, []string{"rule"})
