package channel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/pagination"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// sessionChannel adapts an SDK client session to Channel.
type sessionChannel struct {
	session   *mcp.ClientSession
	transport TransportType
	stale     *atomic.Bool

	// extra teardown run after the session closes, such as an in-memory
	// server session
	cleanup func() error

	closeOnce sync.Once
	closeErr  error
}

var (
	_ Channel       = (*sessionChannel)(nil)
	_ StaleReporter = (*sessionChannel)(nil)
)

func (c *sessionChannel) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	// Clear before fetching so a change announced mid-fetch is not lost.
	c.stale.Store(false)

	tools, err := pagination.CollectAll(ctx, func(ctx context.Context, cursor string) ([]*mcp.Tool, string, error) {
		res, err := c.session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, "", err
		}
		return res.Tools, res.NextCursor, nil
	})
	if err != nil {
		return nil, c.wrap(ctx, "tools/list", err)
	}

	out := make([]protocol.ToolDescriptor, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		schema, err := marshalAny(t.InputSchema)
		if err != nil {
			return nil, mcperrors.TransportError(string(c.transport), "tools/list", err)
		}
		out = append(out, protocol.ToolDescriptor{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return out, nil
}

func (c *sessionChannel) CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.ToolResult, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, c.wrap(ctx, "tools/call", err)
	}
	return convertResult(res)
}

func (c *sessionChannel) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	resources, err := pagination.CollectAll(ctx, func(ctx context.Context, cursor string) ([]*mcp.Resource, string, error) {
		res, err := c.session.ListResources(ctx, &mcp.ListResourcesParams{Cursor: cursor})
		if err != nil {
			return nil, "", err
		}
		return res.Resources, res.NextCursor, nil
	})
	if err != nil {
		return nil, c.wrap(ctx, "resources/list", err)
	}

	out := make([]protocol.Resource, 0, len(resources))
	for _, r := range resources {
		if r == nil {
			continue
		}
		out = append(out, protocol.Resource{
			URI:         r.URI,
			Name:        r.Name,
			Title:       r.Title,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}
	return out, nil
}

func (c *sessionChannel) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	res, err := c.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, c.wrap(ctx, "resources/read", err)
	}

	out := make([]protocol.ResourceContents, 0, len(res.Contents))
	for _, rc := range res.Contents {
		if rc == nil {
			continue
		}
		out = append(out, protocol.ResourceContents{
			URI:      rc.URI,
			MIMEType: rc.MIMEType,
			Text:     rc.Text,
			Blob:     rc.Blob,
		})
	}
	return out, nil
}

func (c *sessionChannel) ToolsStale() bool {
	return c.stale.Load()
}

func (c *sessionChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.session.Close()
		if c.cleanup != nil {
			// The peer side usually reports an already-closed pipe here.
			_ = c.cleanup()
		}
	})
	return c.closeErr
}

// wrap classifies a session error. Context expiry becomes Timeout or
// Cancelled and a JSON-RPC error from the peer becomes OperationFailed.
// A closed session is ConnectionLost; anything else is a transport failure.
func (c *sessionChannel) wrap(ctx context.Context, operation string, err error) error {
	if ctx.Err() != nil {
		return mcperrors.FromContextError(ctx.Err(), operation, 0)
	}
	if converted := mcperrors.FromContextError(err, operation, 0); converted != err {
		return converted
	}

	var rpcErr *jsonrpc.Error
	switch {
	case errors.As(err, &rpcErr):
		return mcperrors.RemoteError(string(c.transport), operation, int(rpcErr.Code), rpcErr.Message, err)
	case errors.Is(err, mcp.ErrConnectionClosed):
		return mcperrors.ConnectionLost(string(c.transport), operation, err)
	default:
		return mcperrors.TransportError(string(c.transport), operation, err)
	}
}

func convertResult(res *mcp.CallToolResult) (*protocol.ToolResult, error) {
	out := &protocol.ToolResult{IsError: res.IsError}

	for _, content := range res.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			out.Content = append(out.Content, protocol.TextContent(v.Text))
		case *mcp.ImageContent:
			out.Content = append(out.Content, protocol.Content{
				Type:     protocol.ContentTypeImage,
				MIMEType: v.MIMEType,
				Data:     v.Data,
			})
		case *mcp.AudioContent:
			out.Content = append(out.Content, protocol.Content{
				Type:     protocol.ContentTypeAudio,
				MIMEType: v.MIMEType,
				Data:     v.Data,
			})
		case *mcp.ResourceLink:
			out.Content = append(out.Content, protocol.Content{
				Type:     protocol.ContentTypeLink,
				URI:      v.URI,
				MIMEType: v.MIMEType,
			})
		case *mcp.EmbeddedResource:
			if v.Resource == nil {
				continue
			}
			out.Content = append(out.Content, protocol.Content{
				Type:     protocol.ContentTypeResource,
				URI:      v.Resource.URI,
				MIMEType: v.Resource.MIMEType,
				Text:     v.Resource.Text,
				Data:     v.Resource.Blob,
			})
		}
	}

	structured, err := marshalAny(res.StructuredContent)
	if err != nil {
		return nil, mcperrors.TransportError("mcp", "tools/call", err)
	}
	out.StructuredContent = structured
	return out, nil
}

func marshalAny(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return t, nil
	default:
		return json.Marshal(v)
	}
}
