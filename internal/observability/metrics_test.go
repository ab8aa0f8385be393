package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(exchanges.WithLabelValues("Ping", "none"))
	RecordExchange("Ping", "none", 3*time.Millisecond)
	RecordHandshake("ok", 2, 40*time.Millisecond)
	RecordHTTPRequest("peer", "GET", "/sc2api", 101, 12*time.Millisecond)

	require.Equal(t, before+1, testutil.ToFloat64(exchanges.WithLabelValues("Ping", "none")))
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestLogger(zerolog.Nop()))
	r.Use(RequestMetrics("test"))
	r.Get("/sc2api", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("test", "GET", "/sc2api", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sc2api", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("test", "GET", "/sc2api", "418")))

	unmatched := httpRequests.WithLabelValues("test", "GET", "unmatched", "404")
	before = testutil.ToFloat64(unmatched)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other/1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, before+1, testutil.ToFloat64(unmatched))
}

func TestHandlerExposesSessionMetrics(t *testing.T) {
	RecordExchange("Quit", "none", time.Millisecond)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "sc2ctl_session_exchanges_total"))
}
