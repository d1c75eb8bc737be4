package notify

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	notificationsSent   prometheus.Counter
	notificationsFailed prometheus.Counter
	pushSuccess         prometheus.Counter
	pushFailure         prometheus.Counter
)

func newCollectors() (prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Counter) {
	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offer_notifications_sent_total",
		Help: "Number of in-app offer notification records written",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offer_notifications_failed_total",
		Help: "Number of in-app offer notification writes that failed",
	})
	psuc := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_publish_success_total",
		Help: "Number of successful push publish operations",
	})
	pfail := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_publish_failure_total",
		Help: "Number of failed push publish operations",
	})
	return sent, failed, psuc, pfail
}

func init() {
	notificationsSent, notificationsFailed, pushSuccess, pushFailure = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers notify metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(notificationsSent, notificationsFailed, pushSuccess, pushFailure)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	notificationsSent, notificationsFailed, pushSuccess, pushFailure = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
