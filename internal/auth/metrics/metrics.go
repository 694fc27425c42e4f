package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Token request outcomes.
const (
	OutcomeIssued      = "issued"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	// Token endpoint
	TokenRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_requests_total",
			Help: "Total number of token requests by grant type and outcome",
		},
		[]string{"grant_type", "outcome"},
	)

	TokenIssueDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_token_issue_duration_seconds",
			Help:    "Duration of token requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"grant_type"},
	)

	// Lockout
	Lockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Total number of accounts locked out after repeated failures",
		},
	)

	RefreshReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_refresh_replays_total",
			Help: "Total number of refresh tokens presented after they were consumed",
		},
	)

	// Keys
	SigningKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auth_signing_keys",
			Help: "Number of signing keys in the key ring by state",
		},
		[]string{"state"},
	)

	// Housekeeping
	HousekeepingDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_housekeeping_deleted_total",
			Help: "Total number of rows removed by housekeeping",
		},
		[]string{"kind"},
	)
)

// SetKeyRing records the current key ring shape.
func SetKeyRing(current, previous int) {
	SigningKeys.WithLabelValues("current").Set(float64(current))
	SigningKeys.WithLabelValues("previous").Set(float64(previous))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
