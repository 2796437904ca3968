package orchestrator

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/observability"
)

// DefaultMaxIterations bounds the number of model calls in one run
const DefaultMaxIterations = 20

// Options configures an Orchestrator. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// MaxIterations is the maximum number of model calls per run. Zero
	// means unbounded.
	MaxIterations int

	// ModelTimeout bounds each model call. Zero means no bound.
	ModelTimeout time.Duration

	// ToolTimeout bounds each tool call. Zero means no bound.
	ToolTimeout time.Duration

	// MaxConcurrency caps simultaneous tool calls within one batch. Zero or
	// less means no cap; one dispatches sequentially.
	MaxConcurrency int

	// ModelLimiter throttles model calls
	ModelLimiter *rate.Limiter

	// RefreshStaleCatalogs re-fetches catalogs of backends that announced a
	// change before each model call
	RefreshStaleCatalogs bool

	// StrictToolNames makes RunConversation reject backends whose tool
	// names collide
	StrictToolNames bool

	// ChannelOptions are passed to channel.Connect by RunConversation
	ChannelOptions []channel.Option

	Logger         logging.Logger
	Recorder       observability.Recorder
	Tracer         trace.Tracer
	TransitionHook TransitionHook
}

// DefaultOptions returns the default configuration
func DefaultOptions() Options {
	return Options{
		MaxIterations:        DefaultMaxIterations,
		RefreshStaleCatalogs: true,
		Logger:               logging.NewNop(),
		Recorder:             observability.NopRecorder(),
		Tracer:               noop.NewTracerProvider().Tracer(observability.TracerName),
	}
}

// Option modifies Options
type Option func(*Options)

// WithMaxIterations sets the model call budget; zero disables it
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		o.MaxIterations = n
	}
}

// WithModelTimeout bounds each model call
func WithModelTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ModelTimeout = d
	}
}

// WithToolTimeout bounds each tool call
func WithToolTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ToolTimeout = d
	}
}

// WithMaxConcurrency caps simultaneous tool calls in a batch
func WithMaxConcurrency(n int) Option {
	return func(o *Options) {
		o.MaxConcurrency = n
	}
}

// WithSequentialDispatch runs the calls of a batch one after another
func WithSequentialDispatch() Option {
	return WithMaxConcurrency(1)
}

// WithModelRateLimit throttles model calls
func WithModelRateLimit(l *rate.Limiter) Option {
	return func(o *Options) {
		o.ModelLimiter = l
	}
}

// WithoutCatalogRefresh disables refreshing stale catalogs between turns
func WithoutCatalogRefresh() Option {
	return func(o *Options) {
		o.RefreshStaleCatalogs = false
	}
}

// WithStrictToolNames rejects colliding tool names in RunConversation
func WithStrictToolNames() Option {
	return func(o *Options) {
		o.StrictToolNames = true
	}
}

// WithChannelOptions sets options for connections opened by RunConversation
func WithChannelOptions(opts ...channel.Option) Option {
	return func(o *Options) {
		o.ChannelOptions = append(o.ChannelOptions, opts...)
	}
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r observability.Recorder) Option {
	return func(o *Options) {
		if r != nil {
			o.Recorder = r
		}
	}
}

// WithTracer sets the tracer
func WithTracer(t trace.Tracer) Option {
	return func(o *Options) {
		if t != nil {
			o.Tracer = t
		}
	}
}

// WithTransitionHook observes state changes
func WithTransitionHook(h TransitionHook) Option {
	return func(o *Options) {
		o.TransitionHook = h
	}
}
