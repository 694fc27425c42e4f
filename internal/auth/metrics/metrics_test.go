package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetKeyRing(t *testing.T) {
	SetKeyRing(1, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(SigningKeys.WithLabelValues("current")))
	assert.Equal(t, float64(2), testutil.ToFloat64(SigningKeys.WithLabelValues("previous")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	TokenRequests.WithLabelValues("password", OutcomeRejected).Inc()
	Lockouts.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `auth_token_requests_total{grant_type="password",outcome="rejected"}`)
	assert.Contains(t, string(body), "auth_lockouts_total")
}
