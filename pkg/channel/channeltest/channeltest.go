// Package channeltest provides channel.Channel implementations for tests:
// a scriptable in-memory Fake and small go-sdk servers reachable through
// channel.ConnectServer.
package channeltest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// ErrClosed is returned by a Fake after Close
var ErrClosed = errors.New("channeltest: channel closed")

// HandlerFunc answers one tool call on a Fake
type HandlerFunc func(ctx context.Context, args json.RawMessage) (*protocol.ToolResult, error)

// Call records one CallTool invocation
type Call struct {
	Tool      string
	Arguments json.RawMessage
}

// Fake is a scriptable channel.Channel.
type Fake struct {
	mu        sync.Mutex
	tools     []protocol.ToolDescriptor
	handlers  map[string]HandlerFunc
	resources map[string][]protocol.ResourceContents
	calls     []Call
	listErr   error
	closeErr  error
	closed    int
	lists     int

	stale     atomic.Bool
	active    atomic.Int32
	maxActive atomic.Int32
}

var (
	_ channel.Channel       = (*Fake)(nil)
	_ channel.StaleReporter = (*Fake)(nil)
)

// NewFake creates a Fake advertising the given tools
func NewFake(tools ...protocol.ToolDescriptor) *Fake {
	return &Fake{
		tools:     tools,
		handlers:  make(map[string]HandlerFunc),
		resources: make(map[string][]protocol.ResourceContents),
	}
}

// Tool builds a descriptor with an object input schema
func Tool(name, description string) protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        name,
		Description: description,
		InputSchema: json.RawMessage(`{"type":"object"}`),
	}
}

// TextResult builds a successful single-text result
func TextResult(text string) *protocol.ToolResult {
	return &protocol.ToolResult{Content: []protocol.Content{protocol.TextContent(text)}}
}

// ErrorResult builds a result the backend marks as failed
func ErrorResult(text string) *protocol.ToolResult {
	return &protocol.ToolResult{Content: []protocol.Content{protocol.TextContent(text)}, IsError: true}
}

// Handle sets the handler for a tool name
func (f *Fake) Handle(name string, h HandlerFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
	return f
}

// Respond makes a tool always return text
func (f *Fake) Respond(name, text string) *Fake {
	return f.Handle(name, func(context.Context, json.RawMessage) (*protocol.ToolResult, error) {
		return TextResult(text), nil
	})
}

// FailList makes ListTools fail
func (f *Fake) FailList(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
	return f
}

// FailClose makes Close fail
func (f *Fake) FailClose(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeErr = err
	return f
}

// AddResource serves contents for a URI
func (f *Fake) AddResource(uri, text string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[uri] = append(f.resources[uri], protocol.ResourceContents{URI: uri, MIMEType: "text/plain", Text: text})
	return f
}

// SetTools replaces the catalog and marks the channel stale, as a backend
// sending notifications/tools/list_changed would.
func (f *Fake) SetTools(tools ...protocol.ToolDescriptor) {
	f.mu.Lock()
	f.tools = tools
	f.mu.Unlock()
	f.stale.Store(true)
}

func (f *Fake) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.stale.Store(false)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.closed > 0 {
		return nil, ErrClosed
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]protocol.ToolDescriptor(nil), f.tools...), nil
}

func (f *Fake) CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.ToolResult, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxActive.Load()
		if n <= cur || f.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{Tool: name, Arguments: append(json.RawMessage(nil), args...)})
	h, ok := f.handlers[name]
	closed := f.closed > 0
	f.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return TextResult(fmt.Sprintf("%s ok", name)), nil
	}
	return h(ctx, args)
}

func (f *Fake) ListResources(context.Context) ([]protocol.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Resource, 0, len(f.resources))
	for uri := range f.resources {
		out = append(out, protocol.Resource{URI: uri, Name: uri})
	}
	return out, nil
}

func (f *Fake) ReadResource(_ context.Context, uri string) ([]protocol.ResourceContents, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contents, ok := f.resources[uri]
	if !ok {
		return nil, fmt.Errorf("resource %s not found", uri)
	}
	return append([]protocol.ResourceContents(nil), contents...), nil
}

func (f *Fake) ToolsStale() bool {
	return f.stale.Load()
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

// Calls returns the recorded tool calls in arrival order
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Closed returns how many times Close was called
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Lists returns how many times ListTools was called
func (f *Fake) Lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// MaxConcurrent returns the highest number of simultaneous CallTool calls seen
func (f *Fake) MaxConcurrent() int {
	return int(f.maxActive.Load())
}

// AddInput is the argument shape of the calculator's tools
type AddInput struct {
	A float64 `json:"a" jsonschema:"first operand"`
	B float64 `json:"b" jsonschema:"second operand"`
}

// SumOutput is the structured result of the calculator's tools
type SumOutput struct {
	Result float64 `json:"result"`
}

// CalculatorServer returns a go-sdk server with add and divide tools and a
// single text resource at calc://about.
func CalculatorServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "calc", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{Name: "add", Description: "Adds two numbers"},
		func(_ context.Context, _ *mcp.CallToolRequest, in AddInput) (*mcp.CallToolResult, SumOutput, error) {
			sum := in.A + in.B
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%g", sum)}},
			}, SumOutput{Result: sum}, nil
		})

	mcp.AddTool(server, &mcp.Tool{Name: "divide", Description: "Divides a by b"},
		func(_ context.Context, _ *mcp.CallToolRequest, in AddInput) (*mcp.CallToolResult, SumOutput, error) {
			if in.B == 0 {
				return nil, SumOutput{}, errors.New("division by zero")
			}
			q := in.A / in.B
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%g", q)}},
			}, SumOutput{Result: q}, nil
		})

	server.AddResource(&mcp.Resource{URI: "calc://about", Name: "about", MIMEType: "text/plain"},
		func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{URI: req.Params.URI, MIMEType: "text/plain", Text: "a tiny calculator"}},
			}, nil
		})

	return server
}
