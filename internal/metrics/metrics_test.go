package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuth("sign_in", OutcomeSuccess)
	c.RecordAuth("sign_in", OutcomeSuccess)
	c.RecordAuth("sign_in", OutcomeRejected)
	c.ObserveGuard("protected", "anonymous", true)
	c.SetActiveVisitors(3)
	c.RecordSwept(2)

	body := scrape(t, reg)
	assert.Contains(t, body, `fleettrack_auth_attempts_total{action="sign_in",outcome="success"} 2`)
	assert.Contains(t, body, `fleettrack_auth_attempts_total{action="sign_in",outcome="rejected"} 1`)
	assert.Contains(t, body, `fleettrack_guard_decisions_total{kind="protected",redirected="true",resolution="anonymous"} 1`)
	assert.Contains(t, body, "fleettrack_active_visitors 3")
	assert.Contains(t, body, "fleettrack_visitors_swept_total 2")
}

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveRequest(http.MethodGet, "/dashboard", http.StatusOK, 15*time.Millisecond)
	c.RecordAuth("sign_out", OutcomeSuccess)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fleettrack_http_request_duration_seconds")
	assert.Contains(t, string(body), "fleettrack_auth_attempts_total")
}
