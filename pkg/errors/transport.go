package errors

import (
	"fmt"
	"net/url"
	"time"
)

// TransportErrorData contains structured data for transport-related errors
type TransportErrorData struct {
	Transport string `json:"transport"`
	Operation string `json:"operation,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Retryable bool   `json:"retryable"`
	Reason    string `json:"reason,omitempty"`
}

// ConnectionErrorData contains structured data for connection-related errors
type ConnectionErrorData struct {
	Transport string        `json:"transport"`
	Endpoint  string        `json:"endpoint,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

func reason(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}

// TransportError creates a generic transport error
func TransportError(transport, operation string, cause error) MCPError {
	message := fmt.Sprintf("%s transport error", transport)
	if operation != "" {
		message = fmt.Sprintf("%s transport error during %s", transport, operation)
	}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeTransportError,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: transport,
		Operation: operation,
		Retryable: true,
		Reason:    reason(cause),
	})
}

// ConnectionFailed creates an error for connection failures
func ConnectionFailed(transport, endpoint string, attempts int, cause error) MCPError {
	message := fmt.Sprintf("failed to connect via %s", transport)
	if endpoint != "" {
		message = fmt.Sprintf("failed to connect to %s via %s", endpoint, transport)
	}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	var endpointData string
	if endpoint != "" {
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			endpointData = u.Host
		} else {
			endpointData = endpoint
		}
	}

	return WrapError(
		cause,
		CodeConnectionFailed,
		message,
		CategoryTransport,
		SeverityCritical,
	).WithData(&ConnectionErrorData{
		Transport: transport,
		Endpoint:  endpointData,
		Attempts:  attempts,
		Reason:    reason(cause),
	})
}

// ConnectionLost creates an error for a channel that closed underneath a call
func ConnectionLost(transport, operation string, cause error) MCPError {
	return WrapError(
		cause,
		CodeConnectionLost,
		fmt.Sprintf("%s connection lost during %s", transport, operation),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: transport,
		Operation: operation,
		Retryable: false,
		Reason:    reason(cause),
	})
}

// RemoteErrorData describes a JSON-RPC error returned by a backend
type RemoteErrorData struct {
	Transport string `json:"transport"`
	Operation string `json:"operation"`
	RPCCode   int    `json:"rpc_code"`
}

// RemoteError creates an error for a request the backend answered with a
// JSON-RPC error. The channel itself is healthy.
func RemoteError(transport, operation string, rpcCode int, message string, cause error) MCPError {
	return WrapError(
		cause,
		CodeOperationFailed,
		fmt.Sprintf("backend rejected %s", operation),
		CategoryProtocol,
		SeverityWarning,
	).WithDetail(message).WithData(&RemoteErrorData{
		Transport: transport,
		Operation: operation,
		RPCCode:   rpcCode,
	})
}

// IsRetryableError reports whether an error is worth retrying
func IsRetryableError(err error) bool {
	mcpErr, ok := AsMCPError(err)
	if !ok {
		return false
	}
	if data, ok := mcpErr.Data().(*TransportErrorData); ok {
		return data.Retryable
	}
	switch mcpErr.Code() {
	case CodeOperationTimeout, CodeConnectionFailed:
		return true
	default:
		return false
	}
}
