package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Payment holds the collectors of the payment orchestrator.
type Payment struct {
	Actions           *prometheus.CounterVec
	ProcessorDuration *prometheus.HistogramVec
	PersistFailures   *prometheus.CounterVec
}

func NewPayment() *Payment {
	return &Payment{
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_actions_total",
				Help: "Payment actions by requested action and resulting action tag.",
			},
			[]string{"action", "outcome"},
		),
		ProcessorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_processor_duration_seconds",
				Help:    "Latency of card processor calls in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PersistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_state_persist_failures_total",
				Help: "Processor outcomes that could not be written back to the booking store.",
			},
			[]string{"store"},
		),
	}
}

// MustRegister registers every collector on reg.
func (p *Payment) MustRegister(reg prometheus.Registerer) *Payment {
	reg.MustRegister(p.Actions, p.ProcessorDuration, p.PersistFailures)
	return p
}
