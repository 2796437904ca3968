// Package errors provides structured error handling for the orchestrator.
// Every failure the registry, router, orchestration loop and lifecycle
// manager report is an MCPError carrying a JSON-RPC style code, a category
// used for classification, and the context in which it occurred.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// Category represents the type/category of an error for classification and handling
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryRegistry   Category = "registry"
	CategoryTool       Category = "tool"
	CategoryModel      Category = "model"
	CategoryTransport  Category = "transport"
	CategoryInternal   Category = "internal"
	CategoryTimeout    Category = "timeout"
	CategoryCancelled  Category = "cancelled"
	CategoryProtocol   Category = "protocol"
)

// Severity indicates how critical an error is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context records where and when an error occurred
type Context struct {
	RunID     string    `json:"run_id,omitempty"`
	BackendID string    `json:"backend_id,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	CallID    string    `json:"call_id,omitempty"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MCPError defines the interface for all orchestrator errors
type MCPError interface {
	error

	// Code returns the JSON-RPC style error code
	Code() int

	// Message returns a human-readable error message
	Message() string

	// Details returns detailed technical description for debugging
	Details() string

	// Data returns structured error data for programmatic handling
	Data() interface{}

	Category() Category
	Severity() Severity
	Context() *Context

	// WithContext returns a new error with the provided context
	WithContext(ctx *Context) MCPError

	// WithDetail returns a new error with additional detail
	WithDetail(detail string) MCPError

	// WithData returns a new error with structured data
	WithData(data interface{}) MCPError

	Unwrap() error

	// ToJSON returns the error as a JSON-serializable map
	ToJSON() map[string]interface{}
}

type baseError struct {
	code     int
	message  string
	details  string
	data     interface{}
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	if e.details != "" {
		return fmt.Sprintf("%s: %s", e.message, e.details)
	}
	return e.message
}

func (e *baseError) Code() int { return e.code }
func (e *baseError) Message() string { return e.message }
func (e *baseError) Details() string { return e.details }
func (e *baseError) Data() interface{} { return e.data }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) Context() *Context { return e.context }
func (e *baseError) Unwrap() error { return e.cause }

// WithContext returns a new error with the provided context
func (e *baseError) WithContext(ctx *Context) MCPError {
	newErr := *e
	newErr.context = ctx
	return &newErr
}

// WithDetail returns a new error with additional detail
func (e *baseError) WithDetail(detail string) MCPError {
	newErr := *e
	if newErr.details != "" {
		newErr.details = fmt.Sprintf("%s; %s", newErr.details, detail)
	} else {
		newErr.details = detail
	}
	return &newErr
}

// WithData returns a new error with structured data
func (e *baseError) WithData(data interface{}) MCPError {
	newErr := *e
	newErr.data = data
	return &newErr
}

// Is reports whether target carries the same code, so sentinel-style
// comparisons such as errors.Is(err, errors.NewError(CodeUnknownTool, ...)) work.
func (e *baseError) Is(target error) bool {
	t, ok := target.(*baseError)
	if !ok {
		return false
	}
	return t.code == e.code
}

// ToJSON returns the error as a JSON-serializable map
func (e *baseError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     e.code,
		"name":     GetErrorCodeName(e.code),
		"message":  e.message,
		"category": string(e.category),
		"severity": string(e.severity),
	}

	if e.details != "" {
		result["details"] = e.details
	}

	if e.data != nil {
		result["data"] = e.data
	}

	if e.context != nil {
		result["context"] = e.context
	}

	if e.cause != nil {
		result["cause"] = e.cause.Error()
	}

	return result
}

// MarshalJSON implements json.Marshaler for baseError
func (e *baseError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// NewError creates a new MCPError with the specified parameters
func NewError(code int, message string, category Category, severity Severity) MCPError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		context:  &Context{Timestamp: time.Now()},
	}
}

// NewErrorf creates a new MCPError with formatted message
func NewErrorf(code int, category Category, severity Severity, format string, args ...interface{}) MCPError {
	return NewError(code, fmt.Sprintf(format, args...), category, severity)
}

// WrapError wraps an existing error as an MCPError
func WrapError(err error, code int, message string, category Category, severity Severity) MCPError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    err,
		context:  &Context{Timestamp: time.Now()},
	}
}

// WrapErrorf wraps an existing error as an MCPError with formatted message
func WrapErrorf(err error, code int, category Category, severity Severity, format string, args ...interface{}) MCPError {
	return WrapError(err, code, fmt.Sprintf(format, args...), category, severity)
}

// newCoded builds an error whose category and severity come from the code registry.
func newCoded(code int, cause error, format string, args ...interface{}) MCPError {
	return WrapError(cause, code, fmt.Sprintf(format, args...), GetErrorCodeCategory(code), GetErrorCodeSeverity(code))
}

// AsMCPError finds the first MCPError in err's chain.
func AsMCPError(err error) (MCPError, bool) {
	if err == nil {
		return nil, false
	}

	var mcpErr MCPError
	if stderrors.As(err, &mcpErr) {
		return mcpErr, true
	}

	return nil, false
}

// IsMCPError checks if an error is an MCPError
func IsMCPError(err error) bool {
	_, ok := AsMCPError(err)
	return ok
}

// IsCategory checks if an error is of a specific category
func IsCategory(err error, category Category) bool {
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr.Category() == category
	}
	return false
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code int) bool {
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr.Code() == code
	}
	return false
}
