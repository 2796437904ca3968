package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/observability"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/orchestrator"
)

const sample = `
backends:
  - id: calc
    transport: stdio
    command: ./calculator-server
    args: ["--verbose"]
    env:
      CALC_PRECISION: "4"
  - id: search
    transport: streamable_http
    url: https://search.example.com/mcp
    headers:
      Authorization: "Bearer ${SEARCH_TOKEN}"
    connect_timeout: 5s
    connect_retries: 3
orchestrator:
  max_iterations: 8
  tool_timeout: 30s
  max_concurrency: 4
  model_rate_limit: 2.5
model:
  script: script.yaml
logging:
  level: debug
  format: json
metrics:
  enabled: true
  address: 127.0.0.1:9100
tracing:
  enabled: true
  exporter: otlp-http
  endpoint: collector:4318
  sample_rate: 0.5
`

func TestParse(t *testing.T) {
	t.Setenv("SEARCH_TOKEN", "s3cret")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, cfg.Backends, 2)
	calc := cfg.Backends[0]
	assert.Equal(t, "calc", calc.ID)
	assert.Equal(t, channel.TransportTypeStdio, calc.Type)
	assert.Equal(t, "./calculator-server", calc.Command)
	assert.Equal(t, []string{"--verbose"}, calc.Args)
	assert.Equal(t, map[string]string{"CALC_PRECISION": "4"}, calc.Env)

	search := cfg.Backends[1]
	assert.Equal(t, channel.TransportTypeStreamableHTTP, search.Type)
	assert.Equal(t, "Bearer s3cret", search.Headers["Authorization"])
	assert.Equal(t, 5*time.Second, search.ConnectTimeout)
	assert.Equal(t, 3, search.ConnectRetries)

	assert.Equal(t, 8, cfg.Orchestrator.MaxIterations)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.ToolTimeout)
	assert.Equal(t, 4, cfg.Orchestrator.MaxConcurrency)
	assert.True(t, cfg.Orchestrator.RefreshStaleCatalogs, "default kept")
	assert.Equal(t, "script.yaml", cfg.Model.Script)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path, "default kept")
	assert.Equal(t, "otlp-http", cfg.Tracing.Exporter)
	assert.Equal(t, "mcp-orchestrator", cfg.Tracing.ServiceName)

	regs := cfg.Registrations()
	require.Len(t, regs, 2)
	assert.Equal(t, "calc", regs[0].ID)
	assert.Equal(t, calc.Descriptor, regs[0].Descriptor)

	opts := orchestrator.DefaultOptions()
	for _, opt := range cfg.OrchestratorOptions() {
		opt(&opts)
	}
	assert.Equal(t, 8, opts.MaxIterations)
	assert.Equal(t, 30*time.Second, opts.ToolTimeout)
	assert.Equal(t, 4, opts.MaxConcurrency)
	assert.NotNil(t, opts.ModelLimiter)

	tc := cfg.TracingOptions("v1.2.3")
	assert.Equal(t, observability.ExporterTypeOTLPHTTP, tc.ExporterType)
	assert.Equal(t, "v1.2.3", tc.ServiceVersion)
	assert.Equal(t, 0.5, tc.SampleRate)

	mc := cfg.MetricsOptions()
	assert.Equal(t, "127.0.0.1:9100", mc.Address)
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Backends)
	assert.Equal(t, orchestrator.DefaultMaxIterations, cfg.Orchestrator.MaxIterations)
	assert.Equal(t, "info", cfg.Logging.Level)

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestExplicitZeroOverridesDefault(t *testing.T) {
	cfg, err := Parse([]byte("orchestrator:\n  max_iterations: 0\n  refresh_stale_catalogs: false\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Orchestrator.MaxIterations)

	opts := orchestrator.DefaultOptions()
	for _, opt := range cfg.OrchestratorOptions() {
		opt(&opts)
	}
	assert.Equal(t, 0, opts.MaxIterations)
	assert.False(t, opts.RefreshStaleCatalogs)
	assert.Nil(t, opts.ModelLimiter)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code int
	}{
		{"missing id", "backends:\n  - transport: stdio\n    command: x\n", mcperrors.CodeMissingParameter},
		{"duplicate id", "backends:\n  - {id: a, transport: stdio, command: x}\n  - {id: a, transport: stdio, command: y}\n", mcperrors.CodeDuplicateBackend},
		{"bad transport", "backends:\n  - {id: a, transport: carrier-pigeon}\n", mcperrors.CodeValidationError},
		{"http without url", "backends:\n  - {id: a, transport: sse}\n", mcperrors.CodeValidationError},
		{"negative iterations", "orchestrator:\n  max_iterations: -1\n", mcperrors.CodeInvalidParameter},
		{"bad level", "logging:\n  level: loud\n", mcperrors.CodeInvalidParameter},
		{"bad format", "logging:\n  format: xml\n", mcperrors.CodeInvalidParameter},
		{"bad exporter", "tracing:\n  enabled: true\n  exporter: zipkin\n", mcperrors.CodeInvalidParameter},
		{"bad sample rate", "tracing:\n  enabled: true\n  sample_rate: 2\n", mcperrors.CodeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, mcperrors.IsCode(err, tt.code), err.Error())
		})
	}
}

func TestUnknownField(t *testing.T) {
	_, err := Parse([]byte("orchestrator:\n  max_iteration: 3\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backends:\n  - {id: calc, transport: stdio, command: calc}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Backends, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
