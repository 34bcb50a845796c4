package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
// Tracks claim outcomes, verification results and critical path durations.
type Metrics struct {
	Claims               *prometheus.CounterVec
	Verifications        *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	Expired              prometheus.Counter
	RegisterDuration     prometheus.Histogram
	VerifyDuration       prometheus.Histogram
}

// New registers the registration metrics with reg. A nil reg uses the default
// Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	// bcrypt dominates both paths, so buckets start near its cost.
	buckets := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

	return &Metrics{
		Claims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beefirst_registration_claims_total",
			Help: "Registration claims by outcome (claimed, conflict)",
		}, []string{"outcome"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beefirst_registration_verifications_total",
			Help: "Verification attempts by internal result",
		}, []string{"result"}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "beefirst_registration_notification_failures_total",
			Help: "Verification codes the notification sink failed to accept",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Name: "beefirst_registration_swept_total",
			Help: "Stale claims expired by the background sweeper",
		}),
		RegisterDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "beefirst_register_duration_seconds",
			Help:    "Duration of Register operations including hashing",
			Buckets: buckets,
		}),
		VerifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "beefirst_verify_duration_seconds",
			Help:    "Duration of VerifyAndActivate operations",
			Buckets: buckets,
		}),
	}
}

// IncrementClaim records a claim outcome.
func (m *Metrics) IncrementClaim(outcome string) {
	m.Claims.WithLabelValues(outcome).Inc()
}

// IncrementVerification records a verification result.
func (m *Metrics) IncrementVerification(result string) {
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementNotificationFailure() {
	m.NotificationFailures.Inc()
}

func (m *Metrics) AddExpired(n int64) {
	m.Expired.Add(float64(n))
}

// ObserveRegister records the duration of a Register operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}

// ObserveVerify records the duration of a VerifyAndActivate operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}
