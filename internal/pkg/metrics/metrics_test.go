package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg)

	m.Observe("/api/v1/orders", http.MethodPost, http.StatusCreated, 12)
	m.Observe("/api/v1/orders", http.MethodPost, http.StatusCreated, 7)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("/api/v1/orders", http.MethodPost, "201")), 0)
}

func TestHandlerExposesRelayCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)
	m.Messages.WithLabelValues("delivered").Add(3)
	m.Exhausted.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `orders_outbox_messages_total{outcome="delivered"} 3`)
	assert.Contains(t, rec.Body.String(), "orders_outbox_exhausted_total 1")
}
