package registry

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/channel"
	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/lifecycle"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// Backend is one registered MCP server.
type Backend struct {
	id        string
	seq       uint64
	transport channel.TransportType
	ch        channel.Channel
	handle    *lifecycle.Handle

	// sem serialises use of ch across dispatch batches and runs
	sem *semaphore.Weighted

	mu    sync.RWMutex
	tools []protocol.ToolDescriptor
}

// ID returns the caller-assigned backend id
func (b *Backend) ID() string {
	return b.id
}

// Seq returns the registration sequence number. Later registrations have
// larger numbers.
func (b *Backend) Seq() uint64 {
	return b.seq
}

// Transport returns how the backend is reached, if known
func (b *Backend) Transport() channel.TransportType {
	return b.transport
}

// Tools returns a copy of the catalog in advertised order.
func (b *Backend) Tools() []protocol.ToolDescriptor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]protocol.ToolDescriptor(nil), b.tools...)
}

func (b *Backend) setTools(tools []protocol.ToolDescriptor) {
	b.mu.Lock()
	b.tools = tools
	b.mu.Unlock()
}

// CallTool invokes a tool on the backend. Calls to the same backend run one
// at a time; waiting for a turn honours ctx. A call the backend rejected
// comes back as ToolInvocationFailed.
func (b *Backend) CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.ToolResult, error) {
	if err := b.acquire(ctx, "call_tool"); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	res, err := b.ch.CallTool(ctx, name, args)
	if err != nil && mcperrors.IsCode(err, mcperrors.CodeOperationFailed) {
		mcpErr, _ := mcperrors.AsMCPError(err)
		return nil, mcperrors.ToolInvocationFailed(b.id, name, mcpErr.Details(), err)
	}
	return res, err
}

// ListResources lists the resources the backend exposes
func (b *Backend) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	if err := b.acquire(ctx, "list_resources"); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.ch.ListResources(ctx)
}

// ReadResource reads one resource from the backend
func (b *Backend) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	if err := b.acquire(ctx, "read_resource"); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.ch.ReadResource(ctx, uri)
}

func (b *Backend) listTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	if err := b.acquire(ctx, "list_tools"); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.ch.ListTools(ctx)
}

func (b *Backend) stale() bool {
	sr, ok := b.ch.(channel.StaleReporter)
	return ok && sr.ToolsStale()
}

func (b *Backend) acquire(ctx context.Context, operation string) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return mcperrors.FromContextError(err, operation, 0)
	}
	return nil
}
