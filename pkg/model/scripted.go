package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// ErrScriptExhausted is returned once a Scripted model has replayed every turn
var ErrScriptExhausted = errors.New("model script exhausted")

// Turn is one scripted model reply. Err, when set, is returned instead of a
// response.
type Turn struct {
	Response *Response
	Err      error
}

// Scripted replays a fixed sequence of turns, one per Complete call, and
// records every request it receives.
type Scripted struct {
	mu       sync.Mutex
	turns    []Turn
	next     int
	requests []*Request
}

// NewScripted creates a model that returns responses in order
func NewScripted(responses ...*Response) *Scripted {
	turns := make([]Turn, len(responses))
	for i, r := range responses {
		turns[i] = Turn{Response: r}
	}
	return &Scripted{turns: turns}
}

// NewScriptedTurns creates a model from turns, which may include errors
func NewScriptedTurns(turns ...Turn) *Scripted {
	return &Scripted{turns: append([]Turn(nil), turns...)}
}

func (s *Scripted) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, cloneRequest(req))
	if s.next >= len(s.turns) {
		return nil, ErrScriptExhausted
	}
	turn := s.turns[s.next]
	s.next++
	return turn.Response, turn.Err
}

// Requests returns the requests received so far
func (s *Scripted) Requests() []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Request(nil), s.requests...)
}

// Remaining returns the number of turns not yet replayed
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns) - s.next
}

func cloneRequest(req *Request) *Request {
	if req == nil {
		return nil
	}
	out := &Request{
		Messages: make([]protocol.Message, len(req.Messages)),
		Tools:    append([]protocol.ToolSchema(nil), req.Tools...),
	}
	for i, m := range req.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// Script file format:
//
//	responses:
//	  - tool_calls:
//	      - id: c1
//	        name: add
//	        arguments: {a: 2, b: 3}
//	  - content: "2 + 3 = 5"
//	  - error: "model overloaded"
type scriptFile struct {
	Responses []scriptTurn `yaml:"responses"`
}

type scriptTurn struct {
	Content   string           `yaml:"content"`
	ToolCalls []scriptToolCall `yaml:"tool_calls"`
	Error     string           `yaml:"error"`
}

type scriptToolCall struct {
	ID        string                 `yaml:"id"`
	Name      string                 `yaml:"name"`
	Arguments map[string]interface{} `yaml:"arguments"`
	// RawArguments is sent verbatim, well-formed or not
	RawArguments string `yaml:"raw_arguments"`
}

// LoadScript reads a YAML script
func LoadScript(r io.Reader) (*Scripted, error) {
	var file scriptFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode model script: %w", err)
	}

	turns := make([]Turn, 0, len(file.Responses))
	for i, st := range file.Responses {
		if st.Error != "" {
			turns = append(turns, Turn{Err: errors.New(st.Error)})
			continue
		}

		resp := &Response{Content: st.Content}
		for j, tc := range st.ToolCalls {
			args := json.RawMessage(tc.RawArguments)
			if tc.RawArguments == "" && tc.Arguments != nil {
				b, err := json.Marshal(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("response %d tool call %d: %w", i, j, err)
				}
				args = b
			}
			resp.ToolCalls = append(resp.ToolCalls, protocol.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: args})
		}
		turns = append(turns, Turn{Response: resp})
	}
	return NewScriptedTurns(turns...), nil
}

// LoadScriptFile reads a YAML script from path
func LoadScriptFile(path string) (*Scripted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model script: %w", err)
	}
	defer f.Close()
	return LoadScript(f)
}
