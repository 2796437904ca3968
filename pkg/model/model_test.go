package model

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

func TestFunc(t *testing.T) {
	m := Func(func(_ context.Context, req *Request) (*Response, error) {
		return &Response{Content: req.Messages[0].Content}, nil
	})

	resp, err := m.Complete(context.Background(), &Request{Messages: []protocol.Message{protocol.UserMessage("echo")}})
	require.NoError(t, err)
	assert.Equal(t, "echo", resp.Content)
	assert.False(t, resp.HasToolCalls())
}

func TestScripted(t *testing.T) {
	m := NewScripted(
		&Response{ToolCalls: []protocol.ToolCall{{ID: "c1", Name: "add"}}},
		&Response{Content: "done"},
	)
	ctx := context.Background()

	first, err := m.Complete(ctx, &Request{Messages: []protocol.Message{protocol.UserMessage("hi")}})
	require.NoError(t, err)
	assert.True(t, first.HasToolCalls())
	assert.Equal(t, 1, m.Remaining())

	second, err := m.Complete(ctx, &Request{})
	require.NoError(t, err)
	assert.Equal(t, "done", second.Content)

	_, err = m.Complete(ctx, &Request{})
	assert.ErrorIs(t, err, ErrScriptExhausted)

	reqs := m.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "hi", reqs[0].Messages[0].Content)
}

func TestScriptedTurnError(t *testing.T) {
	boom := errors.New("overloaded")
	m := NewScriptedTurns(Turn{Err: boom})
	_, err := m.Complete(context.Background(), &Request{})
	assert.ErrorIs(t, err, boom)
}

func TestScriptedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewScripted(&Response{Content: "never"})
	_, err := m.Complete(ctx, &Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.Remaining())
}

func TestLoadScript(t *testing.T) {
	script := `
responses:
  - tool_calls:
      - id: c1
        name: add
        arguments: {a: 2, b: 3}
      - name: broken
        raw_arguments: "{not json"
  - error: model overloaded
  - content: "2 + 3 = 5"
`
	m, err := LoadScript(strings.NewReader(script))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Remaining())

	ctx := context.Background()
	resp, err := m.Complete(ctx, &Request{})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "c1", resp.ToolCalls[0].ID)
	assert.Equal(t, "add", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"a":2,"b":3}`, string(resp.ToolCalls[0].Arguments))
	assert.Equal(t, "", resp.ToolCalls[1].ID)
	assert.Equal(t, "{not json", string(resp.ToolCalls[1].Arguments))

	_, err = m.Complete(ctx, &Request{})
	assert.EqualError(t, err, "model overloaded")

	resp, err = m.Complete(ctx, &Request{})
	require.NoError(t, err)
	assert.Equal(t, "2 + 3 = 5", resp.Content)
}

func TestLoadScriptUnknownField(t *testing.T) {
	_, err := LoadScript(strings.NewReader("responses:\n  - contents: typo\n"))
	assert.Error(t, err)
}

func TestLoadScriptFileMissing(t *testing.T) {
	_, err := LoadScriptFile("/nonexistent/script.yaml")
	assert.Error(t, err)
}

func TestRateLimited(t *testing.T) {
	calls := 0
	inner := Func(func(context.Context, *Request) (*Response, error) {
		calls++
		return &Response{Content: "ok"}, nil
	})

	_, wrapped := RateLimited(inner, nil).(*rateLimited)
	assert.False(t, wrapped)
	assert.Nil(t, NewLimiter(0, 1))

	limited := RateLimited(inner, rate.NewLimiter(rate.Every(time.Hour), 1))

	_, err := limited.Complete(context.Background(), &Request{})
	require.NoError(t, err)

	// the second token is an hour away
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, &Request{})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeOperationTimeout))
	assert.Equal(t, 1, calls)
}

func TestRateLimitedCancelled(t *testing.T) {
	limited := RateLimited(NewScripted(&Response{}), NewLimiter(1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := limited.Complete(ctx, &Request{})
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeOperationCancelled))
}
