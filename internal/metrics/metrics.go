// Package metrics exposes Prometheus collectors for the sign-in service.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BlackMission/tencentauth/internal/domain"
)

const namespace = "tencentauth"

// Recorder owns the service collectors. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	handshakes   *prometheus.CounterVec
	backchannel  *prometheus.HistogramVec
	backchanErrs *prometheus.CounterVec
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inflight     prometheus.Gauge
}

// New registers the collectors on reg. A nil reg gets a fresh registry that
// also carries the Go runtime and process collectors.
func New(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	r := &Recorder{
		registry: reg,
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_outcomes_total",
			Help:      "Terminal handshake step results by outcome",
		}, []string{"outcome"}),
		backchannel: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backchannel_duration_seconds",
			Help:      "Latency of provider token and profile calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		backchanErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backchannel_errors_total",
			Help:      "Provider calls that failed before a response was read",
		}, []string{"endpoint", "kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Requests currently being served",
		}),
	}

	for _, c := range []prometheus.Collector{r.handshakes, r.backchannel, r.backchanErrs, r.requests, r.duration, r.inflight} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// registerCollector ignores duplicate registrations.
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) HandshakeOutcome(outcome string) {
	if r == nil {
		return
	}
	r.handshakes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) BackchannelCall(endpoint string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.backchannel.WithLabelValues(endpoint).Observe(d.Seconds())
	if err != nil {
		r.backchanErrs.WithLabelValues(endpoint, errorKind(err)).Inc()
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrCancelled):
		return "cancelled"
	case errors.Is(err, domain.ErrResponseTooLarge):
		return "too_large"
	default:
		return "transport"
	}
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.inflight.Inc()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			r.inflight.Dec()
			route := routeLabel(req)
			method := strings.ToUpper(req.Method)
			r.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			r.requests.WithLabelValues(method, route, strconv.Itoa(rec.statusCode())).Inc()
		}()

		next.ServeHTTP(rec, req)
	})
}

func routeLabel(req *http.Request) string {
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) statusCode() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
