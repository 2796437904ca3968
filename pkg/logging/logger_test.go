package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableColors: true, DisableTimestamp: true})
	logger.SetLevel(DebugLevel)

	logger.Debug("Debug message", String("key", "value"))
	logger.Info("Info message", Int("count", 42))
	logger.Warn("Warning message", Bool("flag", true))
	logger.Error("Error message", ErrorField(errors.New("test error")))

	output := buf.String()

	for _, want := range []string{
		"[DEBUG] Debug message",
		"[INFO] Info message",
		"[WARN] Warning message",
		"[ERROR] Error message",
		"key=value",
		"count=42",
		"flag=true",
		"error=test error",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	logger.SetLevel(WarnLevel)

	logger.Debug("Debug message")
	logger.Info("Info message")
	logger.Warn("Warning message")
	logger.Error("Error message")

	output := buf.String()
	assert.NotContains(t, output, "Debug message")
	assert.NotContains(t, output, "Info message")
	assert.Contains(t, output, "Warning message")
	assert.Contains(t, output, "Error message")
	assert.Equal(t, WarnLevel, logger.GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	logger.WithFields(String(KeyBackendID, "calc")).Info("tool dispatched", String(KeyTool, "add"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "tool dispatched", entry["message"])
	assert.Equal(t, "calc", entry[KeyBackendID])
	assert.Equal(t, "add", entry[KeyTool])
	assert.Contains(t, entry, "timestamp")
}

func TestWithContextRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	ctx, runID := EnsureRunID(context.Background())
	require.NotEmpty(t, runID)

	again, sameID := EnsureRunID(ctx)
	assert.Equal(t, runID, sameID)
	assert.Equal(t, ctx, again)

	logger.WithContext(ctx).Info("run started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, runID, entry[KeyRunID])
}

func TestTextFormatterShortRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableColors: true, DisableTimestamp: true})

	ctx := ContextWithRunID(context.Background(), "0123456789abcdef")
	logger.WithContext(ctx).Info("hello", String(KeyComponent, "registry"), String(KeyOperation, "register"))

	assert.Equal(t, "[INFO] [01234567] registry/register: hello\n", buf.String())
}

func TestTextFormatterDispatchTarget(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableColors: true, DisableTimestamp: true})
	logger = logger.WithFields(String(KeyComponent, "orchestrator"))

	logger.Info("tool call finished",
		String(KeyBackendID, "calc"),
		String(KeyTool, "add"),
		String(KeyCallID, "c1"),
		Duration("duration", 1500*time.Millisecond),
		String("note", "two words"))
	logger.Warn("no route", String(KeyTool, "missing"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `[INFO] orchestrator @calc.add#c1: tool call finished | duration=1.5s note="two words"`, lines[0])
	assert.Equal(t, "[WARN] orchestrator @missing: no route", lines[1])
}

func TestJSONFormatterDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &JSONFormatter{DisableTimestamp: true})

	logger.Info("done", Duration("duration", 250*time.Millisecond), String(KeyCallID, "c9"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "250ms", entry["duration"])
	assert.Equal(t, "c9", entry[KeyCallID])
	assert.NotContains(t, entry, "timestamp")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	err := mcperrors.UnknownTool("frobnicate").WithContext(&mcperrors.Context{
		RunID:     "run-1",
		Tool:      "frobnicate",
		Component: "orchestrator",
	})
	logger.WithError(err).Warn("dispatch failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(mcperrors.CodeUnknownTool), entry["error_code"])
	assert.Equal(t, "UnknownTool", entry["error_name"])
	assert.Equal(t, "run-1", entry[KeyRunID])
	assert.Equal(t, "frobnicate", entry[KeyTool])
	assert.Equal(t, "orchestrator", entry[KeyComponent])
}

func TestDerivedLoggersShareOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.WithFields(Int("worker", i)).Info("tick")
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 10)
	for _, line := range lines {
		var entry map[string]interface{}
		assert.NoError(t, json.Unmarshal([]byte(line), &entry), "interleaved line: %s", line)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	logger.Info("ignored")
	assert.Equal(t, logger, logger.WithFields(String("a", "b")))
	assert.Equal(t, FatalLevel, logger.GetLevel())
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	f, err = NewFormatter("")
	require.NoError(t, err)
	assert.IsType(t, &TextFormatter{}, f)

	_, err = NewFormatter("xml")
	assert.Error(t, err)
}
