package observability

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/api/inventory/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/inventory/"+id, nil))
	}

	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPut, "/api/inventory/{id}", "403"))
	assert.Equal(t, float64(3), count)
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.AuthAttemptsTotal.WithLabelValues("verified").Inc()
	metrics.RecordDBStats(sql.DBStats{InUse: 2, Idle: 3})

	rr := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `seamed_auth_attempts_total{outcome="verified"} 1`))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.DBConnectionsActive))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.DBConnectionsIdle))
}
