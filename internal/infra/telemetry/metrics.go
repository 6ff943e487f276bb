package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthMetrics groups the Prometheus instruments tracking authentication flows.
type AuthMetrics struct {
	LoginAttempts *prometheus.CounterVec
	Lockouts      prometheus.Counter
	TokensIssued  *prometheus.CounterVec
	Registrations *prometheus.CounterVec
}

// NewAuthMetrics registers the authentication metrics on the default registry.
func NewAuthMetrics() *AuthMetrics {
	return &AuthMetrics{
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lsm",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts partitioned by outcome",
		}, []string{"result"}),
		Lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "lsm",
			Subsystem: "auth",
			Name:      "lockouts_total",
			Help:      "Number of times the login attempt guard engaged a lockout",
		}),
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lsm",
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Issued tokens partitioned by kind (access, refresh)",
		}, []string{"kind"}),
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lsm",
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Account registrations partitioned by role",
		}, []string{"role"}),
	}
}
