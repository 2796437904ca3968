// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for conversation runs, model calls, tool dispatch and backend registration.
package observability

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusTimeout   = "timeout"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Recorder receives orchestration measurements. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RecordRun(status string, iterations int, duration time.Duration)
	RecordModelCall(status string, duration time.Duration)
	RecordToolDispatch(backend, tool, status string, duration time.Duration)
	RecordRegistration(backend, status string)
	SetBackends(n int)
	SetRoutableTools(n int)
	RecordReleaseFailure(resource string)
}

type nopRecorder struct{}

// NopRecorder returns a Recorder that discards everything
func NopRecorder() Recorder { return nopRecorder{} }

func (nopRecorder) RecordRun(string, int, time.Duration) {}
func (nopRecorder) RecordModelCall(string, time.Duration) {}
func (nopRecorder) RecordToolDispatch(string, string, string, time.Duration) {}
func (nopRecorder) RecordRegistration(string, string) {}
func (nopRecorder) SetBackends(int) {}
func (nopRecorder) SetRoutableTools(int) {}
func (nopRecorder) RecordReleaseFailure(string) {}

// MetricsConfig configures the Prometheus recorder
type MetricsConfig struct {
	Namespace        string    // Prometheus namespace (default: mcp)
	Subsystem        string    // Prometheus subsystem (default: orchestrator)
	HistogramBuckets []float64 // Latency buckets in milliseconds

	// Registerer receives the collectors (default: prometheus.DefaultRegisterer)
	Registerer prometheus.Registerer
	// Gatherer backs the HTTP endpoint (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer

	// ConstLabels are added to every metric
	ConstLabels prometheus.Labels

	Address string // Listen address for the metrics endpoint (default: :9090)
	Path    string // HTTP path for the metrics endpoint (default: /metrics)
}

// PrometheusRecorder implements Recorder with Prometheus collectors
type PrometheusRecorder struct {
	config MetricsConfig

	runDuration       *prometheus.HistogramVec
	runTotal          *prometheus.CounterVec
	runIterations     prometheus.Histogram
	modelDuration     *prometheus.HistogramVec
	modelTotal        *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	toolTotal         *prometheus.CounterVec
	registrationTotal *prometheus.CounterVec
	backends          prometheus.Gauge
	routableTools     prometheus.Gauge
	releaseFailures   *prometheus.CounterVec

	mu     sync.Mutex
	server *http.Server
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates and registers the orchestrator's collectors
func NewPrometheusRecorder(config MetricsConfig) (*PrometheusRecorder, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.Subsystem == "" {
		config.Subsystem = "orchestrator"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Address == "" {
		config.Address = ":9090"
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}

	r := &PrometheusRecorder{config: config}
	r.initializeMetrics()

	if err := r.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return r, nil
}

func (r *PrometheusRecorder) histogram(name, help string, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   r.config.Namespace,
			Subsystem:   r.config.Subsystem,
			Name:        name,
			Help:        help,
			Buckets:     r.config.HistogramBuckets,
			ConstLabels: r.config.ConstLabels,
		},
		labels,
	)
}

func (r *PrometheusRecorder) counter(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   r.config.Namespace,
			Subsystem:   r.config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: r.config.ConstLabels,
		},
		labels,
	)
}

func (r *PrometheusRecorder) gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   r.config.Namespace,
		Subsystem:   r.config.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: r.config.ConstLabels,
	})
}

func (r *PrometheusRecorder) initializeMetrics() {
	r.runDuration = r.histogram("run_duration_milliseconds", "Duration of conversation runs in milliseconds", []string{"status"})
	r.runTotal = r.counter("run_total", "Total number of conversation runs", []string{"status"})
	r.runIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   r.config.Namespace,
		Subsystem:   r.config.Subsystem,
		Name:        "run_model_calls",
		Help:        "Number of model calls made per conversation run",
		Buckets:     []float64{1, 2, 3, 5, 8, 13, 21, 34},
		ConstLabels: r.config.ConstLabels,
	})
	r.modelDuration = r.histogram("model_call_duration_milliseconds", "Duration of model calls in milliseconds", []string{"status"})
	r.modelTotal = r.counter("model_call_total", "Total number of model calls", []string{"status"})
	r.toolDuration = r.histogram("tool_dispatch_duration_milliseconds", "Duration of tool dispatches in milliseconds", []string{"backend", "tool", "status"})
	r.toolTotal = r.counter("tool_dispatch_total", "Total number of tool dispatches", []string{"backend", "tool", "status"})
	r.registrationTotal = r.counter("backend_registration_total", "Backend registration attempts", []string{"backend", "status"})
	r.backends = r.gauge("backends_registered", "Number of registered backends")
	r.routableTools = r.gauge("routable_tools", "Number of distinct routable tool names")
	r.releaseFailures = r.counter("release_failures_total", "Resources whose release failed", []string{"resource"})
}

func (r *PrometheusRecorder) registerMetrics() error {
	collectors := []prometheus.Collector{
		r.runDuration, r.runTotal, r.runIterations,
		r.modelDuration, r.modelTotal,
		r.toolDuration, r.toolTotal,
		r.registrationTotal, r.backends, r.routableTools, r.releaseFailures,
	}
	for _, c := range collectors {
		if err := r.config.Registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// RecordRun records a finished conversation run
func (r *PrometheusRecorder) RecordRun(status string, iterations int, duration time.Duration) {
	r.runDuration.WithLabelValues(status).Observe(ms(duration))
	r.runTotal.WithLabelValues(status).Inc()
	r.runIterations.Observe(float64(iterations))
}

// RecordModelCall records one model call
func (r *PrometheusRecorder) RecordModelCall(status string, duration time.Duration) {
	r.modelDuration.WithLabelValues(status).Observe(ms(duration))
	r.modelTotal.WithLabelValues(status).Inc()
}

// RecordToolDispatch records one tool call
func (r *PrometheusRecorder) RecordToolDispatch(backend, tool, status string, duration time.Duration) {
	r.toolDuration.WithLabelValues(backend, tool, status).Observe(ms(duration))
	r.toolTotal.WithLabelValues(backend, tool, status).Inc()
}

// RecordRegistration records a registration attempt
func (r *PrometheusRecorder) RecordRegistration(backend, status string) {
	r.registrationTotal.WithLabelValues(backend, status).Inc()
}

func (r *PrometheusRecorder) SetBackends(n int) {
	r.backends.Set(float64(n))
}

func (r *PrometheusRecorder) SetRoutableTools(n int) {
	r.routableTools.Set(float64(n))
}

func (r *PrometheusRecorder) RecordReleaseFailure(resource string) {
	r.releaseFailures.WithLabelValues(resource).Inc()
}

// Handler returns the HTTP handler serving the configured gatherer
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.config.Gatherer, promhttp.HandlerOpts{})
}

// Start serves the metrics endpoint until Shutdown is called. It returns
// once the listener is bound.
func (r *PrometheusRecorder) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", r.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.config.Address, err)
	}

	mux := http.NewServeMux()
	mux.Handle(r.config.Path, r.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.mu.Lock()
	r.server = server
	r.mu.Unlock()

	go func() {
		_ = server.Serve(listener)
	}()
	return nil
}

// Shutdown gracefully stops the metrics server
func (r *PrometheusRecorder) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	server := r.server
	r.server = nil
	r.mu.Unlock()

	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}
