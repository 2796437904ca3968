package channel_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel/channeltest"
	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
)

func connectCalculator(t *testing.T) channel.Channel {
	t.Helper()
	ch, err := channel.ConnectServer(context.Background(), channeltest.CalculatorServer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestConnectServerListTools(t *testing.T) {
	ch := connectCalculator(t)

	tools, err := ch.ListTools(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.InputSchema, &schema), "tool %s schema", tool.Name)
		assert.Equal(t, "object", schema["type"])
	}
	assert.ElementsMatch(t, []string{"add", "divide"}, names)
}

func TestCallTool(t *testing.T) {
	ch := connectCalculator(t)

	res, err := ch.CallTool(context.Background(), "add", json.RawMessage(`{"a":2,"b":20}`))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "22", res.Text())
	assert.JSONEq(t, `{"result":22}`, string(res.StructuredContent))
}

func TestCallToolBackendError(t *testing.T) {
	ch := connectCalculator(t)

	res, err := ch.CallTool(context.Background(), "divide", json.RawMessage(`{"a":1,"b":0}`))
	require.NoError(t, err, "tool-level failures are results, not errors")
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "division by zero")
}

func TestCallToolRejectedArguments(t *testing.T) {
	ch := connectCalculator(t)

	_, err := ch.CallTool(context.Background(), "add", json.RawMessage(`{"a":"two","b":20}`))
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeOperationFailed), "got %v", err)
	assert.False(t, mcperrors.IsCategory(err, mcperrors.CategoryTransport))

	mcpErr, _ := mcperrors.AsMCPError(err)
	data, ok := mcpErr.Data().(*mcperrors.RemoteErrorData)
	require.True(t, ok)
	assert.Equal(t, "tools/call", data.Operation)
	assert.NotZero(t, data.RPCCode)
	assert.NotEmpty(t, mcpErr.Details())
}

func TestReadResource(t *testing.T) {
	ch := connectCalculator(t)

	resources, err := ch.ListResources(context.Background())
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "calc://about", resources[0].URI)

	contents, err := ch.ReadResource(context.Background(), "calc://about")
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, "a tiny calculator", contents[0].Text)
}

func TestCallAfterCloseFails(t *testing.T) {
	ch, err := channel.ConnectServer(context.Background(), channeltest.CalculatorServer())
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	assert.NoError(t, ch.Close(), "Close should be idempotent")

	_, err = ch.CallTool(context.Background(), "add", json.RawMessage(`{"a":1,"b":1}`))
	require.Error(t, err)
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryTransport), "got %v", err)
}

func TestCallToolCancelled(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "slow", Version: "v1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "sleep", Description: "Sleeps until cancelled"},
		func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, struct{}, error) {
			<-ctx.Done()
			return nil, struct{}{}, ctx.Err()
		})

	ch, err := channel.ConnectServer(context.Background(), server)
	require.NoError(t, err)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = ch.CallTool(ctx, "sleep", nil)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeOperationTimeout), "got %v", err)
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       channel.Descriptor
		wantErr bool
	}{
		{"stdio ok", channel.Descriptor{Type: channel.TransportTypeStdio, Command: "calc-server"}, false},
		{"stdio missing command", channel.Descriptor{Type: channel.TransportTypeStdio}, true},
		{"http ok", channel.Descriptor{Type: channel.TransportTypeStreamableHTTP, URL: "http://localhost:8080/mcp"}, false},
		{"sse ok", channel.Descriptor{Type: channel.TransportTypeSSE, URL: "https://example.com/sse"}, false},
		{"http missing url", channel.Descriptor{Type: channel.TransportTypeStreamableHTTP}, true},
		{"http bad scheme", channel.Descriptor{Type: channel.TransportTypeSSE, URL: "ftp://example.com"}, true},
		{"missing transport", channel.Descriptor{Command: "x"}, true},
		{"unknown transport", channel.Descriptor{Type: "websocket", URL: "ws://x"}, true},
		{"negative retries", channel.Descriptor{Type: channel.TransportTypeSSE, URL: "http://x", ConnectRetries: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDescriptorEndpoint(t *testing.T) {
	d := channel.Descriptor{Type: channel.TransportTypeStdio, Command: "python", Args: []string{"server.py", "--quiet"}}
	assert.Equal(t, "python server.py --quiet", d.Endpoint())

	d = channel.Descriptor{Type: channel.TransportTypeSSE, URL: "http://localhost/sse"}
	assert.Equal(t, "http://localhost/sse", d.Endpoint())
}

func TestConnectStreamableHTTPWithHeaders(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	server := channeltest.CalculatorServer()
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		handler.ServeHTTP(w, r)
	}))
	defer ts.Close()

	ch, err := channel.Connect(context.Background(), channel.Descriptor{
		Type:           channel.TransportTypeStreamableHTTP,
		URL:            ts.URL,
		Headers:        map[string]string{"Authorization": "Bearer secret"},
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer ch.Close()

	res, err := ch.CallTool(context.Background(), "add", json.RawMessage(`{"a":40,"b":2}`))
	require.NoError(t, err)
	assert.Equal(t, "42", res.Text())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for _, h := range seen {
		assert.Equal(t, "Bearer secret", h)
	}
}

func TestConnectSSEOutlivesConnectTimeout(t *testing.T) {
	server := channeltest.CalculatorServer()
	ts := httptest.NewServer(mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return server }, nil))
	defer ts.Close()

	ch, err := channel.Connect(context.Background(), channel.Descriptor{
		Type:           channel.TransportTypeSSE,
		URL:            ts.URL,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer ch.Close()

	tools, err := ch.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 2)

	res, err := ch.CallTool(context.Background(), "add", json.RawMessage(`{"a":40,"b":2}`))
	require.NoError(t, err)
	assert.Equal(t, "42", res.Text())
}

func TestConnectRetriesThenFails(t *testing.T) {
	// Grab a free port and close it so connections are refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = channel.Connect(context.Background(), channel.Descriptor{
		Type:           channel.TransportTypeStreamableHTTP,
		URL:            "http://" + addr + "/mcp",
		ConnectRetries: 2,
	}, channel.WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}))
	require.Error(t, err)
	require.True(t, mcperrors.IsCode(err, mcperrors.CodeConnectionFailed), "got %v", err)

	mcpErr, _ := mcperrors.AsMCPError(err)
	data, ok := mcpErr.Data().(*mcperrors.ConnectionErrorData)
	require.True(t, ok)
	assert.Equal(t, 3, data.Attempts)
}

func TestConnectInvalidDescriptor(t *testing.T) {
	_, err := channel.Connect(context.Background(), channel.Descriptor{Type: channel.TransportTypeStdio})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeMissingParameter))
}

func TestConnectStdioMissingBinary(t *testing.T) {
	_, err := channel.Connect(context.Background(), channel.Descriptor{
		Type:           channel.TransportTypeStdio,
		Command:        "/nonexistent/mcp-server-binary",
		ConnectRetries: 5,
	})
	require.Error(t, err)
	require.True(t, mcperrors.IsCode(err, mcperrors.CodeConnectionFailed), "got %v", err)

	mcpErr, _ := mcperrors.AsMCPError(err)
	data := mcpErr.Data().(*mcperrors.ConnectionErrorData)
	assert.Equal(t, 1, data.Attempts, "stdio connects are not retried")
}
