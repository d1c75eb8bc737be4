package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	offersCreated     *prometheus.CounterVec
	offersExpired     prometheus.Counter
	offersAccepted    prometheus.Counter
	escalations       prometheus.Counter
	manualEscalations prometheus.Counter
	acceptanceLatency prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Histogram) {
	created := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_created_total",
			Help: "Number of offers created, labelled by attempt number",
		},
		[]string{"attempt"},
	)
	expired := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offers_expired_total",
			Help: "Number of offers that expired unanswered",
		},
	)
	accepted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offers_accepted_total",
			Help: "Number of offers accepted by staff",
		},
	)
	esc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "escalations_total",
			Help: "Number of re-offer escalations",
		},
	)
	manual := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "manual_escalations_total",
			Help: "Number of jobs handed to manual assignment after exhausting offer attempts",
		},
	)
	lat := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "offer_acceptance_latency_seconds",
			Help:    "Latency from offer creation to staff acceptance",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
	)
	return created, expired, accepted, esc, manual, lat
}

func init() {
	offersCreated, offersExpired, offersAccepted, escalations, manualEscalations, acceptanceLatency = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(offersCreated, offersExpired, offersAccepted, escalations, manualEscalations, acceptanceLatency)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	offersCreated, offersExpired, offersAccepted, escalations, manualEscalations, acceptanceLatency = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
