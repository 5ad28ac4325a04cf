package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	gwconfig "github.com/alakara/harvest/internal/gateway/config"
	"github.com/alakara/harvest/internal/gateway/rest"
	"github.com/alakara/harvest/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyAll struct{}

func (denyAll) Authenticate(string) (*identity.Caller, error) { return nil, identity.ErrInvalidToken }

func TestNewServer_RequiresAuthenticators(t *testing.T) {
	_, err := NewServer(rest.Deps{}, gwconfig.DefaultGatewayConfig())
	assert.Error(t, err)
}

func TestServer_RegisterRoutes(t *testing.T) {
	metricsHit := false
	s, err := NewServer(
		rest.Deps{Sessions: denyAll{}, Accounts: denyAll{}},
		gwconfig.DefaultGatewayConfig(),
		WithDefaultPageLimit(20),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metricsHit = true
			w.WriteHeader(http.StatusOK)
		})),
	)
	require.NoError(t, err)

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"OK","message":"Server is running"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, metricsHit)

	// No profile service wired: the route does not exist.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
