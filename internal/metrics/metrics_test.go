package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("x")))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(StoreConnectAttempts.WithLabelValues("error"))
	StoreConnectAttempts.WithLabelValues("error").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(StoreConnectAttempts.WithLabelValues("error")))
}

func TestHandler(t *testing.T) {
	HTTPRequests.WithLabelValues("GET", "200").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "harvest_http_requests_total")
}
