package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FundsMetrics records outcomes of funds-movement operations.
type FundsMetrics struct {
	duration     *prometheus.HistogramVec
	success      *prometheus.CounterVec
	failure      *prometheus.CounterVec
	compensation *prometheus.CounterVec
}

// NewFundsMetrics registers the funds metrics on the provided registerer.
func NewFundsMetrics(reg prometheus.Registerer) *FundsMetrics {
	if reg == nil {
		return &FundsMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "funds_operation_duration_seconds",
		Help:    "Duration of funds-movement operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funds_operation_success",
		Help: "Successful funds-movement operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funds_operation_failure",
		Help: "Failed funds-movement operations.",
	}, []string{"operation", "reason"})
	compensation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funds_compensation_failure",
		Help: "Provisional ledger entries that could not be resolved to a terminal state.",
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure, compensation)
	return &FundsMetrics{
		duration:     duration,
		success:      success,
		failure:      failure,
		compensation: compensation,
	}
}

// ObserveDuration records the duration for the named operation.
func (f *FundsMetrics) ObserveDuration(operation string, duration time.Duration) {
	if f == nil || f.duration == nil {
		return
	}
	f.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (f *FundsMetrics) IncSuccess(operation string) {
	if f == nil || f.success == nil {
		return
	}
	f.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation and reason.
func (f *FundsMetrics) IncFailure(operation, reason string) {
	if f == nil || f.failure == nil {
		return
	}
	f.failure.WithLabelValues(normalizeLabel(operation), normalizeLabel(reason)).Inc()
}

// IncCompensationFailure increments the stuck-entry anomaly counter.
func (f *FundsMetrics) IncCompensationFailure(operation string) {
	if f == nil || f.compensation == nil {
		return
	}
	f.compensation.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
