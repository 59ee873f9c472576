package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposure(t *testing.T) {
	Requests.WithLabelValues("query").Inc()
	RequestErrors.WithLabelValues("query").Inc()
	FilterRelaxed.Inc()
	EmbedRuns.Inc()
	EmbedErrors.Inc()
	IncAPIRetry("/test")
	IncRerankFallback("timeout")
	IncCommandRun("query")
	IncCommandError("query")
	ObservePipeline("query", time.Now().Add(-1500*time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"animerec_requests_total",
		"animerec_request_errors_total",
		"animerec_pipeline_duration_seconds",
		"animerec_rerank_fallbacks_total",
		"animerec_filter_relaxed_total",
		"animerec_embed_runs_total",
		"animerec_embed_errors_total",
		"animerec_api_retries_total",
		"animerec_command_runs_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
