// Package config loads the orchestrator's YAML configuration.
//
// Defaults are applied before the file is decoded, so any value present in
// the file wins, including explicit zeros. ${VAR} references are expanded
// from the environment before decoding, which keeps tokens for HTTP backends
// out of the file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/logging"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/model"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/observability"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/orchestrator"
)

// Config is the full configuration file.
type Config struct {
	Backends     []BackendConfig    `yaml:"backends"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Model        ModelConfig        `yaml:"model"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Tracing      TracingConfig      `yaml:"tracing"`
}

// BackendConfig is one MCP backend. The transport fields are inlined.
type BackendConfig struct {
	ID                 string `yaml:"id"`
	channel.Descriptor `yaml:",inline"`
}

// OrchestratorConfig tunes the conversation loop.
type OrchestratorConfig struct {
	MaxIterations        int           `yaml:"max_iterations"`
	ModelTimeout         time.Duration `yaml:"model_timeout"`
	ToolTimeout          time.Duration `yaml:"tool_timeout"`
	MaxConcurrency       int           `yaml:"max_concurrency"`
	StrictToolNames      bool          `yaml:"strict_tool_names"`
	RefreshStaleCatalogs bool          `yaml:"refresh_stale_catalogs"`
	ModelRateLimit       float64       `yaml:"model_rate_limit"`
	ModelBurst           int           `yaml:"model_burst"`
}

// ModelConfig selects the model. Only scripted models are built in.
type ModelConfig struct {
	Script string `yaml:"script"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Exporter    string            `yaml:"exporter"`
	Endpoint    string            `yaml:"endpoint"`
	Headers     map[string]string `yaml:"headers"`
	Insecure    bool              `yaml:"insecure"`
	SampleRate  float64           `yaml:"sample_rate"`
	ServiceName string            `yaml:"service_name"`
	Environment string            `yaml:"environment"`
}

// Load reads and validates the configuration at path. An empty path yields
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration from YAML bytes.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when a value is not set.
func Default() Config {
	return Config{
		Orchestrator: OrchestratorConfig{
			MaxIterations:        orchestrator.DefaultMaxIterations,
			RefreshStaleCatalogs: true,
			ModelBurst:           1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Address:   ":9090",
			Path:      "/metrics",
			Namespace: "mcp",
		},
		Tracing: TracingConfig{
			Exporter:    string(observability.ExporterTypeOTLPGRPC),
			Endpoint:    "localhost:4317",
			SampleRate:  1.0,
			ServiceName: "mcp-orchestrator",
			Environment: "development",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Backends))
	for i, b := range c.Backends {
		if b.ID == "" {
			return mcperrors.MissingParameter(fmt.Sprintf("backends[%d].id", i))
		}
		if _, dup := seen[b.ID]; dup {
			return mcperrors.DuplicateBackend(b.ID)
		}
		seen[b.ID] = struct{}{}
		if err := b.Descriptor.Validate(); err != nil {
			return mcperrors.ValidationErrorf("backend %q: %v", b.ID, err)
		}
	}

	o := c.Orchestrator
	switch {
	case o.MaxIterations < 0:
		return mcperrors.InvalidParameter("orchestrator.max_iterations", o.MaxIterations, "zero or a positive count")
	case o.ModelTimeout < 0:
		return mcperrors.InvalidParameter("orchestrator.model_timeout", o.ModelTimeout.String(), "a non-negative duration")
	case o.ToolTimeout < 0:
		return mcperrors.InvalidParameter("orchestrator.tool_timeout", o.ToolTimeout.String(), "a non-negative duration")
	case o.ModelRateLimit < 0:
		return mcperrors.InvalidParameter("orchestrator.model_rate_limit", o.ModelRateLimit, "a non-negative rate")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return mcperrors.InvalidParameter("logging.level", c.Logging.Level, "debug, info, warn, error or fatal")
	}
	if _, err := logging.NewFormatter(c.Logging.Format); err != nil {
		return mcperrors.InvalidParameter("logging.format", c.Logging.Format, "text or json")
	}

	if c.Tracing.Enabled {
		switch observability.ExporterType(c.Tracing.Exporter) {
		case observability.ExporterTypeOTLPGRPC, observability.ExporterTypeOTLPHTTP, observability.ExporterTypeNoop:
		default:
			return mcperrors.InvalidParameter("tracing.exporter", c.Tracing.Exporter, "otlp-grpc, otlp-http or noop")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return mcperrors.InvalidParameter("tracing.sample_rate", c.Tracing.SampleRate, "a value between 0 and 1")
		}
	}
	return nil
}

// Registrations returns the configured backends in file order.
func (c Config) Registrations() []orchestrator.Registration {
	regs := make([]orchestrator.Registration, len(c.Backends))
	for i, b := range c.Backends {
		regs[i] = orchestrator.Registration{ID: b.ID, Descriptor: b.Descriptor}
	}
	return regs
}

// OrchestratorOptions converts the orchestrator section into options.
func (c Config) OrchestratorOptions() []orchestrator.Option {
	o := c.Orchestrator
	opts := []orchestrator.Option{
		orchestrator.WithMaxIterations(o.MaxIterations),
		orchestrator.WithModelTimeout(o.ModelTimeout),
		orchestrator.WithToolTimeout(o.ToolTimeout),
		orchestrator.WithMaxConcurrency(o.MaxConcurrency),
	}
	if o.StrictToolNames {
		opts = append(opts, orchestrator.WithStrictToolNames())
	}
	if !o.RefreshStaleCatalogs {
		opts = append(opts, orchestrator.WithoutCatalogRefresh())
	}
	if o.ModelRateLimit > 0 {
		opts = append(opts, orchestrator.WithModelRateLimit(model.NewLimiter(o.ModelRateLimit, o.ModelBurst)))
	}
	return opts
}

// NewLogger builds the logger described by the logging section.
func (c Config) NewLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	formatter, err := logging.NewFormatter(c.Logging.Format)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, formatter)
	logger.SetLevel(level)
	return logger, nil
}

// MetricsOptions converts the metrics section for the Prometheus recorder.
func (c Config) MetricsOptions() observability.MetricsConfig {
	return observability.MetricsConfig{
		Namespace: c.Metrics.Namespace,
		Address:   c.Metrics.Address,
		Path:      c.Metrics.Path,
	}
}

// TracingOptions converts the tracing section for the tracing provider.
func (c Config) TracingOptions(version string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    c.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    c.Tracing.Environment,
		ExporterType:   observability.ExporterType(c.Tracing.Exporter),
		Endpoint:       c.Tracing.Endpoint,
		Headers:        c.Tracing.Headers,
		Insecure:       c.Tracing.Insecure,
		SampleRate:     c.Tracing.SampleRate,
	}
}
