package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "animerec_requests_total",
		Help: "Total recommendation requests by kind",
	}, []string{"kind"})
	RequestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "animerec_request_errors_total",
		Help: "Total failed recommendation requests by kind",
	}, []string{"kind"})
	PipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "animerec_pipeline_duration_seconds",
		Help:    "Recommendation pipeline duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	RerankFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "animerec_rerank_fallbacks_total",
		Help: "Reranker results replaced by local quality ordering",
	}, []string{"reason"})
	FilterRelaxed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "animerec_filter_relaxed_total",
		Help: "Keyword filters dropped because nothing matched",
	})
	EmbedRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "animerec_embed_runs_total",
		Help: "Total catalog embedding runs",
	})
	EmbedErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "animerec_embed_errors_total",
		Help: "Total catalog embedding errors",
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "animerec_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "animerec_command_runs_total",
		Help: "CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "animerec_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(Requests, RequestErrors, PipelineDuration, RerankFallbacks, FilterRelaxed,
		EmbedRuns, EmbedErrors, APIRetries, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObservePipeline records a pipeline run duration.
func ObservePipeline(kind string, start time.Time) {
	PipelineDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// IncRerankFallback counts a fallback to local ordering.
func IncRerankFallback(reason string) { RerankFallbacks.WithLabelValues(reason).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
