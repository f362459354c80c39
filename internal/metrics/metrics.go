package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
)

// Metrics provides observability for the auth session manager and the API requests it signs.
type Metrics struct {
	AuthOperations  *prometheus.CounterVec
	SignedIn        prometheus.Gauge
	RefreshDuration prometheus.Histogram
	APIRequests     *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AuthOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "securehealth_auth_operations_total",
			Help: "Total number of login, logout and refresh operations by outcome",
		}, []string{"op", "outcome"}),
		SignedIn: factory.NewGauge(prometheus.GaugeOpts{
			Name: "securehealth_signed_in",
			Help: "1 when a session with credentials is held, 0 otherwise",
		}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "securehealth_refresh_duration_seconds",
			Help:    "Duration of access token refreshes against the identity provider",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "securehealth_api_requests_total",
			Help: "Total number of authorized API requests by path and status class",
		}, []string{"path", "status"}),
	}
}

// ObserveOperation records the outcome of an auth operation.
func (m *Metrics) ObserveOperation(op, outcome string) {
	m.AuthOperations.WithLabelValues(op, outcome).Inc()
}

// SetSignedIn records the current sign-in state.
func (m *Metrics) SetSignedIn(signedIn bool) {
	if signedIn {
		m.SignedIn.Set(1)
		return
	}
	m.SignedIn.Set(0)
}

// ObserveRefresh records the duration of a refresh.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRefresh(start time.Time) {
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

// ObserveRequest records a completed API request. status is "2xx", "4xx", "5xx" or "error".
func (m *Metrics) ObserveRequest(path, status string) {
	m.APIRequests.WithLabelValues(path, status).Inc()
}

// StatusClass maps an HTTP status code to its label value.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "error"
	}
}
