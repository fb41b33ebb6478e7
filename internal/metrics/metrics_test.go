package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInstrumentLabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "404" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/assets/1", "/api/assets/2", "/api/assets/404"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/assets/{id}", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/assets/{id}", "404")))
	require.Zero(t, testutil.ToFloat64(m.inFlight))
}

func TestObserveSyncIsExposed(t *testing.T) {
	m := New()
	m.ObserveSync("google_ads", "success")
	m.ObserveSync("google_ads", "error")
	m.ObserveSync("google_ads", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.True(t, strings.Contains(body, `estimator_marketing_syncs_total{outcome="success",platform_type="google_ads"} 2`), body)
	require.Contains(t, body, `estimator_marketing_syncs_total{outcome="error",platform_type="google_ads"} 1`)
}
