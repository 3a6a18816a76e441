package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	Probes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "probes_total",
		Help: "Probe executions by trigger kind and outcome",
	}, []string{"kind", "outcome"})
	ProbeDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "probe_duration_seconds",
		Help:    "Probe execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	ProbeCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "probe_cache_total",
		Help: "Probe cache lookups by result (hit or miss)",
	}, []string{"result"})
	Evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluations_total",
		Help: "Evaluation passes by result",
	}, []string{"result"})
	EvaluationDur = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evaluation_duration_seconds",
		Help:    "Full evaluation pass duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func Init() {
	prometheus.MustRegister(httpReqs, httpDur, Probes, ProbeDur, ProbeCache, Evaluations, EvaluationDur)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// get route pattern if available
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
