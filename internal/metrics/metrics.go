// Package metrics exposes Prometheus collectors for the fund engine and the
// RPC layer. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chitfund"

// Recorder holds the collectors.
type Recorder struct {
	paymentTransitions *prometheus.CounterVec
	penaltyDays        prometheus.Histogram
	cyclesCreated      prometheus.Counter
	payoutsExecuted    prometheus.Counter
	auditDropped       prometheus.Counter
	conflicts          *prometheus.CounterVec
	rpcDuration        *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		paymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Payment record transitions by resulting status.",
		}, []string{"status"}),
		penaltyDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "penalty_late_days",
			Help:      "Late days charged on approved payments.",
			Buckets:   []float64{0, 1, 2, 3, 5, 7, 14, 30, 60},
		}),
		cyclesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_created_total",
			Help:      "Cycles inserted by creation or backfill.",
		}),
		payoutsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_executed_total",
			Help:      "Payout executions, including proof updates.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_dropped_total",
			Help:      "Audit events dropped because the buffer was full.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_conflicts_total",
			Help:      "Writes rejected by a concurrent update.",
		}, []string{"operation"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling time by procedure and result code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}

	reg.MustRegister(
		r.paymentTransitions,
		r.penaltyDays,
		r.cyclesCreated,
		r.payoutsExecuted,
		r.auditDropped,
		r.conflicts,
		r.rpcDuration,
	)
	return r
}

// PaymentTransition counts a record moving to status.
func (r *Recorder) PaymentTransition(status string) {
	if r == nil {
		return
	}
	r.paymentTransitions.WithLabelValues(status).Inc()
}

// PenaltyApplied records the late days of an approval.
func (r *Recorder) PenaltyApplied(lateDays int) {
	if r == nil {
		return
	}
	r.penaltyDays.Observe(float64(lateDays))
}

// CyclesCreated counts inserted cycles.
func (r *Recorder) CyclesCreated(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.cyclesCreated.Add(float64(n))
}

// PayoutExecuted counts a payout execution.
func (r *Recorder) PayoutExecuted() {
	if r == nil {
		return
	}
	r.payoutsExecuted.Inc()
}

// AuditDropped counts an audit event lost to a full buffer.
func (r *Recorder) AuditDropped() {
	if r == nil {
		return
	}
	r.auditDropped.Inc()
}

// Conflict counts a write lost to a concurrent update.
func (r *Recorder) Conflict(operation string) {
	if r == nil {
		return
	}
	r.conflicts.WithLabelValues(operation).Inc()
}

// ObserveRPC records the duration of one RPC.
func (r *Recorder) ObserveRPC(procedure, code string, d time.Duration) {
	if r == nil {
		return
	}
	r.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}

// Handler serves the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
