package protocol

import (
	"sync"
)

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one transcript entry.
//
// An assistant entry carries either final text or the tool calls the model
// requested. A tool entry carries the result of exactly one call and names it
// through ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// SystemMessage creates a system entry.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a user entry.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates a final-answer assistant entry.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolCallMessage creates the assistant entry recording a batch of tool calls.
func ToolCallMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: cloneCalls(calls)}
}

// ToolResultMessage creates the tool entry for one call.
func ToolResultMessage(call ToolCall, text string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    text,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		IsError:    isError,
	}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	m.ToolCalls = cloneCalls(m.ToolCalls)
	return m
}

func cloneCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		out[i] = c
		if c.Arguments != nil {
			out[i].Arguments = append([]byte(nil), c.Arguments...)
		}
	}
	return out
}

// Transcript is an append-only conversation history. Entries are never
// modified or removed once appended. It is safe for concurrent readers while
// a single run appends.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript creates a transcript seeded with the given entries.
func NewTranscript(seed ...Message) *Transcript {
	t := &Transcript{messages: make([]Message, 0, len(seed)+4)}
	for _, m := range seed {
		t.messages = append(t.messages, m.Clone())
	}
	return t
}

// Append adds entries to the end of the transcript.
func (t *Transcript) Append(msgs ...Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range msgs {
		t.messages = append(t.messages, m.Clone())
	}
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Messages returns a copy of every entry in order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Clone()
	}
	return out
}

// At returns the entry at index i.
func (t *Transcript) At(i int) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.messages) {
		return Message{}, false
	}
	return t.messages[i].Clone(), true
}

// Last returns the final entry.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1].Clone(), true
}

// Clone returns an independent copy of the transcript.
func (t *Transcript) Clone() *Transcript {
	return NewTranscript(t.Messages()...)
}
