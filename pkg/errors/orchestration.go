package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// BackendErrorData contains structured data for registry errors
type BackendErrorData struct {
	BackendID string   `json:"backend_id"`
	Tools     []string `json:"tools,omitempty"`
	Owner     string   `json:"owner,omitempty"`
}

// ToolErrorData contains structured data for tool dispatch errors
type ToolErrorData struct {
	Tool      string `json:"tool"`
	BackendID string `json:"backend_id,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

// DuplicateBackend reports a registration whose id is already taken.
func DuplicateBackend(backendID string) MCPError {
	return newCoded(CodeDuplicateBackend, nil, "backend %q is already registered", backendID).
		WithData(&BackendErrorData{BackendID: backendID})
}

// RegistryClosed reports a registration attempted on, or overtaken by, a
// registry that has shut down.
func RegistryClosed(backendID string) MCPError {
	return newCoded(CodeRegistryClosed, nil, "registry is shut down, backend %q was not registered", backendID).
		WithData(&BackendErrorData{BackendID: backendID})
}

// UnknownBackend reports a lookup of an id that is not registered.
func UnknownBackend(backendID string) MCPError {
	return newCoded(CodeUnknownBackend, nil, "backend %q is not registered", backendID).
		WithData(&BackendErrorData{BackendID: backendID})
}

// UnknownTool reports a tool name with no route.
func UnknownTool(name string) MCPError {
	return newCoded(CodeUnknownTool, nil, "no registered backend provides tool %q", name).
		WithData(&ToolErrorData{Tool: name})
}

// ToolNameConflict reports a strict-mode registration that would shadow
// tools already owned by another backend.
func ToolNameConflict(backendID, owner string, tools []string) MCPError {
	return newCoded(CodeToolNameConflict, nil, "backend %q advertises tools already provided by %q: %v", backendID, owner, tools).
		WithData(&BackendErrorData{BackendID: backendID, Owner: owner, Tools: tools})
}

// InvalidCatalog reports a tool descriptor that cannot be exposed to a model.
func InvalidCatalog(backendID, tool, reason string, cause error) MCPError {
	return newCoded(CodeInvalidCatalog, cause, "backend %q advertised invalid tool %q: %s", backendID, tool, reason).
		WithData(&ToolErrorData{Tool: tool, BackendID: backendID})
}

// ToolInvocationFailed reports a backend that received a call and rejected it,
// such as arguments failing its input schema.
func ToolInvocationFailed(backendID, tool, reason string, cause error) MCPError {
	return newCoded(CodeToolInvocationFailed, cause, "tool %q on backend %q failed: %s", tool, backendID, reason).
		WithData(&ToolErrorData{Tool: tool, BackendID: backendID})
}

// ModelCallFailed wraps a failure returned by the model collaborator.
func ModelCallFailed(cause error) MCPError {
	return newCoded(CodeModelCallFailed, cause, "model call failed: %v", cause)
}

// MalformedModelResponse reports a model response the loop cannot act on.
func MalformedModelResponse(reason string) MCPError {
	return newCoded(CodeMalformedModelResponse, nil, "malformed model response: %s", reason)
}

// IterationLimitExceeded reports a run that made too many model calls.
func IterationLimitExceeded(limit int) MCPError {
	return newCoded(CodeIterationLimitExceeded, nil, "conversation did not converge within %d model calls", limit).
		WithData(map[string]int{"limit": limit})
}

// ReleaseFailed reports a resource whose release function returned an error.
func ReleaseFailed(resource string, cause error) MCPError {
	return newCoded(CodeReleaseFailed, cause, "failed to release %s: %v", resource, cause).
		WithData(map[string]string{"resource": resource})
}

// OperationCancelled reports an operation stopped by context cancellation.
func OperationCancelled(operation string) MCPError {
	return newCoded(CodeOperationCancelled, context.Canceled, "operation %s was cancelled", operation).
		WithData(map[string]string{"operation": operation})
}

// OperationTimeout reports an operation that exceeded its deadline.
func OperationTimeout(operation string, timeout time.Duration) MCPError {
	msg := fmt.Sprintf("operation %s timed out", operation)
	if timeout > 0 {
		msg = fmt.Sprintf("operation %s timed out after %s", operation, timeout)
	}
	return WrapError(context.DeadlineExceeded, CodeOperationTimeout, msg, CategoryTimeout, SeverityError).
		WithData(map[string]string{"operation": operation, "timeout": timeout.String()})
}

// FromContextError converts a context error into the matching MCPError. Any
// other error is returned unchanged.
func FromContextError(err error, operation string, timeout time.Duration) error {
	switch {
	case err == nil:
		return nil
	case IsMCPError(err):
		return err
	case stderrors.Is(err, context.DeadlineExceeded):
		return OperationTimeout(operation, timeout)
	case stderrors.Is(err, context.Canceled):
		return OperationCancelled(operation)
	default:
		return err
	}
}
