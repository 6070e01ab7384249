package authcode

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks login starts and callback outcomes per provider.
type Metrics struct {
	LoginsStarted    *prometheus.CounterVec
	Attempts         *prometheus.CounterVec
	CallbackDuration *prometheus.HistogramVec
}

// NewMetrics registers the auth metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "twitchauth_auth_logins_started_total",
			Help: "Total number of authorization redirects issued",
		}, []string{"provider"}),
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "twitchauth_auth_attempts_total",
			Help: "Total number of authorization callbacks by outcome",
		}, []string{"provider", "outcome"}),
		CallbackDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "twitchauth_auth_callback_duration_seconds",
			Help:    "Duration of authorization callbacks, including token exchange and profile fetch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
	}
}

// IncrementLogin records an authorization redirect.
func (m *Metrics) IncrementLogin(provider string) {
	if m == nil {
		return
	}
	m.LoginsStarted.WithLabelValues(provider).Inc()
}

// ObserveCallback records a finished callback.
// Call with time.Now() at the start of the callback.
func (m *Metrics) ObserveCallback(provider string, outcome Stage, start time.Time) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(provider, string(outcome)).Inc()
	m.CallbackDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
