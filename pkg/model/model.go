// Package model defines the contract between the orchestration loop and a
// language model.
//
// The orchestrator never talks to a model API directly. It hands a Model the
// transcript and the tool schemas, and gets back either a final answer or a
// list of tool calls. Adapters for real model APIs live outside this module;
// Scripted replays a fixed conversation for tests and dry runs.
package model

import (
	"context"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// Request is one model invocation
type Request struct {
	Messages []protocol.Message
	Tools    []protocol.ToolSchema
}

// Response is what the model produced. A response with no tool calls is a
// final answer.
type Response struct {
	Content   string
	ToolCalls []protocol.ToolCall
}

// HasToolCalls reports whether the model asked for tools
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Model produces the next assistant turn.
type Model interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Model interface
type Func func(ctx context.Context, req *Request) (*Response, error)

// Complete calls f
func (f Func) Complete(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
