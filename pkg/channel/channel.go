// Package channel opens connections to MCP backends.
//
// A Channel is one open session with one backend. It can list the backend's
// tools and resources, invoke a tool, read a resource, and be closed. Wire
// framing and the MCP handshake are handled by the official Go SDK; this
// package chooses the transport from a Descriptor, injects HTTP headers,
// retries network connects, and converts SDK types into the orchestrator's
// protocol types.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// TransportType identifies how a backend is reached
type TransportType string

const (
	// TransportTypeStdio spawns the backend as a child process and speaks
	// MCP over its stdin/stdout
	TransportTypeStdio TransportType = "stdio"
	// TransportTypeStreamableHTTP speaks the MCP streamable HTTP transport
	TransportTypeStreamableHTTP TransportType = "streamable_http"
	// TransportTypeSSE speaks the legacy HTTP+SSE transport
	TransportTypeSSE TransportType = "sse"
	// TransportTypeInMemory is an in-process server; it cannot be described
	// by a Descriptor and is only produced by ConnectServer
	TransportTypeInMemory TransportType = "in_memory"
)

// Channel is an open session with one backend. Implementations must be safe
// for use by one caller at a time; the registry serialises access per backend.
type Channel interface {
	// ListTools returns the backend's full tool catalog in advertised order
	ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error)

	// CallTool invokes one tool. A failure the backend reports itself comes
	// back as a result with IsError set and a nil error.
	CallTool(ctx context.Context, name string, args json.RawMessage) (*protocol.ToolResult, error)

	ListResources(ctx context.Context) ([]protocol.Resource, error)
	ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error)

	Close() error
}

// StaleReporter is implemented by channels that learn about catalog changes
// from the backend. ToolsStale reports whether the backend announced a change
// since the last ListTools call.
type StaleReporter interface {
	ToolsStale() bool
}

// Descriptor describes how to reach one backend.
type Descriptor struct {
	Type TransportType `yaml:"transport" json:"transport"`

	// stdio
	Command string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Dir     string            `yaml:"dir,omitempty" json:"dir,omitempty"`

	// streamable_http and sse
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// ConnectTimeout bounds each connection attempt including the MCP
	// handshake. Zero means no bound beyond the caller's context.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty" json:"connect_timeout,omitempty"`

	// ConnectRetries is the number of extra attempts for network transports.
	// stdio backends are never retried.
	ConnectRetries int `yaml:"connect_retries,omitempty" json:"connect_retries,omitempty"`
}

// Validate checks that the descriptor names a usable transport.
func (d Descriptor) Validate() error {
	switch d.Type {
	case TransportTypeStdio:
		if strings.TrimSpace(d.Command) == "" {
			return mcperrors.MissingParameter("command")
		}
	case TransportTypeStreamableHTTP, TransportTypeSSE:
		if strings.TrimSpace(d.URL) == "" {
			return mcperrors.MissingParameter("url")
		}
		if !strings.HasPrefix(d.URL, "http://") && !strings.HasPrefix(d.URL, "https://") {
			return mcperrors.InvalidParameter("url", d.URL, "an http or https URL")
		}
	case "":
		return mcperrors.MissingParameter("transport")
	default:
		return mcperrors.InvalidParameter("transport", string(d.Type), "stdio, streamable_http or sse")
	}
	if d.ConnectRetries < 0 {
		return mcperrors.InvalidParameter("connect_retries", d.ConnectRetries, "a non-negative count")
	}
	if d.ConnectTimeout < 0 {
		return mcperrors.InvalidParameter("connect_timeout", d.ConnectTimeout.String(), "a non-negative duration")
	}
	return nil
}

// Endpoint returns a printable target for logs and errors.
func (d Descriptor) Endpoint() string {
	if d.Type == TransportTypeStdio {
		return strings.TrimSpace(d.Command + " " + strings.Join(d.Args, " "))
	}
	return d.URL
}

func (d Descriptor) envList() []string {
	keys := make([]string, 0, len(d.Env))
	for k := range d.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, d.Env[k]))
	}
	return env
}
