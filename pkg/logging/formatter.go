package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// headerKeys are rendered in the text header rather than as trailing fields
var headerKeys = map[string]bool{
	KeyRunID:     true,
	KeyComponent: true,
	KeyOperation: true,
	KeyBackendID: true,
	KeyTool:      true,
	KeyCallID:    true,
}

var levelColors = map[Level]string{
	DebugLevel: "\033[90m",
	InfoLevel:  "\033[34m",
	WarnLevel:  "\033[33m",
	ErrorLevel: "\033[31m",
	FatalLevel: "\033[31m",
}

const colorReset = "\033[0m"

// TextFormatter renders one line per entry:
//
//	2006-01-02 15:04:05.000 [INFO] [1a2b3c4d] orchestrator/dispatch @calc.add#call_1: tool call finished | duration=3ms
//
// The bracketed run id is shortened to eight characters.
type TextFormatter struct {
	// TimestampFormat is the format for timestamps
	TimestampFormat string
	// DisableColors disables terminal colors
	DisableColors bool
	// DisableTimestamp disables timestamp output
	DisableTimestamp bool
	// DisableSorting keeps trailing fields in map order
	DisableSorting bool
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
	}
}

// Format formats a log entry as text
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer

	if !f.DisableTimestamp {
		buf.WriteString(entry.Timestamp.Format(f.TimestampFormat))
		buf.WriteByte(' ')
	}

	level := "[" + entry.Level.String() + "]"
	if color, ok := levelColors[entry.Level]; ok && !f.DisableColors {
		level = color + level + colorReset
	}
	buf.WriteString(level)
	buf.WriteByte(' ')

	if entry.RunID != "" {
		fmt.Fprintf(&buf, "[%s] ", shortRunID(entry.RunID))
	}

	// where: component/operation, then the dispatch target
	where := entry.Component
	if where != "" && entry.Operation != "" {
		where += "/" + entry.Operation
	}
	if target := dispatchTarget(entry); target != "" {
		if where != "" {
			where += " "
		}
		where += "@" + target
	}
	if where != "" {
		buf.WriteString(where)
		buf.WriteString(": ")
	}

	buf.WriteString(entry.Message)

	if pairs := f.trailingFields(entry.Fields); len(pairs) > 0 {
		buf.WriteString(" | ")
		buf.WriteString(strings.Join(pairs, " "))
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// dispatchTarget renders backend.tool#call_id, leaving out empty parts.
func dispatchTarget(entry *Entry) string {
	var b strings.Builder
	b.WriteString(entry.Backend)
	if entry.Tool != "" {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(entry.Tool)
	}
	if entry.CallID != "" {
		b.WriteByte('#')
		b.WriteString(entry.CallID)
	}
	return b.String()
}

func (f *TextFormatter) trailingFields(fields map[string]interface{}) []string {
	pairs := make([]string, 0, len(fields))
	for k, v := range fields {
		if headerKeys[k] {
			continue
		}
		pairs = append(pairs, k+"="+textValue(v))
	}
	if !f.DisableSorting {
		sort.Strings(pairs)
	}
	return pairs
}

// textValue renders a field value. Strings that would break key=value
// parsing are quoted; error text is written as is.
func textValue(v interface{}) string {
	switch val := v.(type) {
	case error:
		return val.Error()
	case time.Duration:
		return val.String()
	case string:
		if val == "" || strings.ContainsAny(val, " =\"") {
			return fmt.Sprintf("%q", val)
		}
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// shortRunID keeps text output narrow; JSON output always has the full id.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// JSONFormatter formats log entries as one JSON object per line
type JSONFormatter struct {
	// PrettyPrint enables pretty printing
	PrettyPrint bool
	// TimestampFormat is the format for timestamps
	TimestampFormat string
	// DisableTimestamp disables timestamp output
	DisableTimestamp bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// Format formats a log entry as JSON. Errors become their message and
// durations their string form; run and dispatch keys keep their field names.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		switch val := v.(type) {
		case error:
			data[k] = val.Error()
		case time.Duration:
			data[k] = val.String()
		default:
			data[k] = v
		}
	}

	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	if !f.DisableTimestamp {
		data["timestamp"] = entry.Timestamp.Format(f.TimestampFormat)
	}

	var (
		out []byte
		err error
	)
	if f.PrettyPrint {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log entry: %w", err)
	}
	return append(out, '\n'), nil
}

// NewFormatter returns the formatter for a format name ("text" or "json").
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
