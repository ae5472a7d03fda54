// Package metrics exposes gatekeeper and HTTP counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinic"

// Recorder owns its registry so several instances can coexist in tests.
type Recorder struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	signIns   *prometheus.CounterVec
	requests  *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gatekeeper",
			Name:      "decisions_total",
			Help:      "Gatekeeper decisions by outcome and reason.",
		}, []string{"outcome", "reason"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by result.",
		}, []string{"result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request latency by method, route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.decisions,
		r.signIns,
		r.requests,
	)

	return r
}

func (r *Recorder) ObserveDecision(outcome string, reason string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(outcome, reason).Inc()
}

// ObserveSignIn counts one attempt; result is "success" or a failure reason.
func (r *Recorder) ObserveSignIn(result string) {
	if r == nil {
		return
	}
	r.signIns.WithLabelValues(result).Inc()
}

// Instrument records request latency labelled with the matched chi route
// pattern, so path parameters do not explode cardinality.
func (r *Recorder) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		r.requests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Observe(time.Since(started).Seconds())
	})
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
