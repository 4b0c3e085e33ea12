package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T) []byte {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	return rr.Body.Bytes()
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sessions/123", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/sessions/{id}", "GET", "202"))
	if got < 1 {
		t.Fatalf("expected labelled counter >= 1, got %v", got)
	}
	body := scrape(t)
	if !bytes.Contains(body, []byte("sttd_http_requests_total")) {
		t.Fatalf("expected sttd_http_requests_total in metrics")
	}
	if bytes.Contains(body, []byte("/api/sessions/123")) {
		t.Fatalf("raw path leaked into labels")
	}
}

func TestRoutePatternOrPath_FallsBackToPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/plain", nil)
	if got := routePatternOrPath(r); got != "/plain" {
		t.Fatalf("got %q", got)
	}
}

func TestIncrementBackpressure(t *testing.T) {
	base := testutil.ToFloat64(backpressureTotal.WithLabelValues("transcribe"))
	IncrementBackpressure("transcribe")
	if got := testutil.ToFloat64(backpressureTotal.WithLabelValues("transcribe")); got != base+1 {
		t.Fatalf("expected %v, got %v", base+1, got)
	}
	before := testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified"))
	IncrementBackpressure("")
	if after := testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified")); after != before+1 {
		t.Fatalf("empty reason should count as unspecified: before=%v after=%v", before, after)
	}
}

func TestTranscribeMetrics_CountByStatus(t *testing.T) {
	base := testutil.ToFloat64(transcriptionsTotal.WithLabelValues("small", "200"))
	rr := postJSON(t, NewMux(&mockService{}), "/api/transcribe", `{"date_folder":"2024-05-01","session_folder":"142233","model_size":"small"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := testutil.ToFloat64(transcriptionsTotal.WithLabelValues("small", "200")); got != base+1 {
		t.Fatalf("expected %v, got %v", base+1, got)
	}
}
