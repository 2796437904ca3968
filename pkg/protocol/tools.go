package protocol

import (
	"encoding/json"
	"strings"
)

// Content types a tool result may carry
const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeAudio    = "audio"
	ContentTypeResource = "resource"
	ContentTypeLink     = "resource_link"
)

// ToolDescriptor describes one tool advertised by a backend.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Schema returns the descriptor in the shape exported to a model.
func (d ToolDescriptor) Schema() ToolSchema {
	return ToolSchema{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.InputSchema,
	}
}

// ToolSchema is the tool definition a model sees.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Content is one part of a tool result.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// TextContent is shorthand for a single text part.
func TextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// ToolResult is what a backend returned for one tool call. IsError marks a
// failure the backend reported itself; it is data, not a Go error.
type ToolResult struct {
	Content           []Content       `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

// Text renders the result as the text recorded in the transcript. Text parts
// are joined with newlines; non-text parts are summarised. Structured content
// is used when no parts are present.
func (r *ToolResult) Text() string {
	if r == nil {
		return ""
	}

	parts := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		switch c.Type {
		case ContentTypeText:
			parts = append(parts, c.Text)
		case ContentTypeResource:
			if c.Text != "" {
				parts = append(parts, c.Text)
			} else {
				parts = append(parts, "[resource "+c.URI+"]")
			}
		case ContentTypeLink:
			parts = append(parts, "[resource_link "+c.URI+"]")
		default:
			parts = append(parts, "["+c.Type+" "+c.MIMEType+"]")
		}
	}

	if len(parts) == 0 && len(r.StructuredContent) > 0 {
		return string(r.StructuredContent)
	}
	return strings.Join(parts, "\n")
}
