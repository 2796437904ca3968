package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"
)

func TestMCPErrorInterface(t *testing.T) {
	tests := []struct {
		name     string
		err      MCPError
		wantCode int
		wantCat  Category
		wantSev  Severity
	}{
		{
			name:     "duplicate backend",
			err:      DuplicateBackend("calc"),
			wantCode: CodeDuplicateBackend,
			wantCat:  CategoryRegistry,
			wantSev:  SeverityError,
		},
		{
			name:     "unknown backend",
			err:      UnknownBackend("calc"),
			wantCode: CodeUnknownBackend,
			wantCat:  CategoryNotFound,
			wantSev:  SeverityError,
		},
		{
			name:     "unknown tool",
			err:      UnknownTool("frobnicate"),
			wantCode: CodeUnknownTool,
			wantCat:  CategoryNotFound,
			wantSev:  SeverityWarning,
		},
		{
			name:     "tool invocation",
			err:      ToolInvocationFailed("calc", "div", "division by zero", nil),
			wantCode: CodeToolInvocationFailed,
			wantCat:  CategoryTool,
			wantSev:  SeverityWarning,
		},
		{
			name:     "model call",
			err:      ModelCallFailed(fmt.Errorf("upstream 503")),
			wantCode: CodeModelCallFailed,
			wantCat:  CategoryModel,
			wantSev:  SeverityError,
		},
		{
			name:     "transport",
			err:      TransportError("stdio", "tools/call", fmt.Errorf("broken pipe")),
			wantCode: CodeTransportError,
			wantCat:  CategoryTransport,
			wantSev:  SeverityError,
		},
		{
			name:     "timeout",
			err:      OperationTimeout("tools/call", time.Second),
			wantCode: CodeOperationTimeout,
			wantCat:  CategoryTimeout,
			wantSev:  SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %v, want %v", got, tt.wantCode)
			}
			if got := tt.err.Category(); got != tt.wantCat {
				t.Errorf("Category() = %v, want %v", got, tt.wantCat)
			}
			if got := tt.err.Severity(); got != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", got, tt.wantSev)
			}
			if msg := tt.err.Error(); msg == "" {
				t.Error("Error() returned empty string")
			}
		})
	}
}

func TestErrorContext(t *testing.T) {
	err := UnknownTool("add")

	if ctx := err.Context(); ctx == nil {
		t.Fatal("Context() should never return nil")
	}

	runCtx := &Context{
		RunID:     "run-1",
		BackendID: "calc",
		Tool:      "add",
		Component: "orchestrator",
	}

	errWithCtx := err.WithContext(runCtx)
	if got := errWithCtx.Context(); got != runCtx {
		t.Errorf("WithContext() failed, got %v, want %v", got, runCtx)
	}

	if err.Context().RunID != "" {
		t.Error("Original error was modified by WithContext()")
	}
}

func TestErrorChaining(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := ModelCallFailed(cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	wrapped := fmt.Errorf("run failed: %w", err)
	got, ok := AsMCPError(wrapped)
	if !ok {
		t.Fatal("AsMCPError() should find an MCPError through fmt.Errorf wrapping")
	}
	if got.Code() != CodeModelCallFailed {
		t.Errorf("Code() = %d, want %d", got.Code(), CodeModelCallFailed)
	}
	if !stderrors.Is(wrapped, cause) {
		t.Error("errors.Is should reach the original cause")
	}
}

func TestErrorIsByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", UnknownBackend("a"))
	if !stderrors.Is(err, UnknownBackend("b")) {
		t.Error("errors.Is should match errors with the same code")
	}
	if stderrors.Is(err, DuplicateBackend("a")) {
		t.Error("errors.Is should not match errors with a different code")
	}
}

func TestFromContextError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"deadline", context.DeadlineExceeded, CodeOperationTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), CodeOperationTimeout},
		{"cancelled", context.Canceled, CodeOperationCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromContextError(tt.err, "tools/call", time.Second)
			if !IsCode(got, tt.wantCode) {
				t.Errorf("FromContextError(%v) code mismatch, got %v", tt.err, got)
			}
		})
	}

	plain := fmt.Errorf("plain")
	if got := FromContextError(plain, "op", 0); got != plain {
		t.Errorf("non-context errors should pass through, got %v", got)
	}
	if FromContextError(nil, "op", 0) != nil {
		t.Error("nil should stay nil")
	}
}

func TestToolErrorPayload(t *testing.T) {
	payload := ToolErrorPayload(UnknownTool("frobnicate"))

	var decoded struct {
		Error struct {
			Code    int    `json:"code"`
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v (%s)", err, payload)
	}
	if decoded.Error.Code != CodeUnknownTool {
		t.Errorf("code = %d, want %d", decoded.Error.Code, CodeUnknownTool)
	}
	if decoded.Error.Name != "UnknownTool" {
		t.Errorf("name = %q, want UnknownTool", decoded.Error.Name)
	}
	if decoded.Error.Message == "" {
		t.Error("message should not be empty")
	}

	plain := ToolErrorPayload(fmt.Errorf("boom"))
	if err := json.Unmarshal([]byte(plain), &decoded); err != nil {
		t.Fatalf("plain payload is not JSON: %v", err)
	}
	if decoded.Error.Code != CodeInternalError {
		t.Errorf("plain error code = %d, want %d", decoded.Error.Code, CodeInternalError)
	}
	if ToolErrorPayload(nil) != "" {
		t.Error("nil error should render empty payload")
	}
}

func TestErrorSerialization(t *testing.T) {
	err := ReleaseFailed("backend calc", fmt.Errorf("process exited")).
		WithContext(&Context{Component: "lifecycle", Timestamp: time.Now()})

	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("json.Marshal() error = %v", marshalErr)
	}

	var result map[string]interface{}
	if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
		t.Fatalf("json.Unmarshal() error = %v", unmarshalErr)
	}

	if result["name"] != "ReleaseFailed" {
		t.Errorf("name = %v, want ReleaseFailed", result["name"])
	}
	if result["cause"] != "process exited" {
		t.Errorf("cause = %v, want process exited", result["cause"])
	}
	if _, ok := result["context"]; !ok {
		t.Error("context should be serialized")
	}
}

func TestErrorRegistry(t *testing.T) {
	codes := []int{
		CodeDuplicateBackend,
		CodeUnknownBackend,
		CodeUnknownTool,
		CodeToolInvocationFailed,
		CodeTransportError,
		CodeModelCallFailed,
		CodeOperationTimeout,
	}

	for _, code := range codes {
		info, ok := GetErrorCodeInfo(code)
		if !ok {
			t.Errorf("code %d missing from registry", code)
			continue
		}
		if info.Name == "" || info.Description == "" {
			t.Errorf("code %d has incomplete info: %+v", code, info)
		}
	}

	if GetErrorCodeName(12345) != "UnknownError" {
		t.Error("unregistered codes should be named UnknownError")
	}
	if len(ListErrorCodes()) != len(errorCodeRegistry) {
		t.Error("ListErrorCodes() should return every registered code")
	}
}

func TestIsRetryableError(t *testing.T) {
	if !IsRetryableError(TransportError("sse", "connect", fmt.Errorf("refused"))) {
		t.Error("transport errors should be retryable")
	}
	if IsRetryableError(ConnectionLost("stdio", "tools/call", fmt.Errorf("EOF"))) {
		t.Error("lost connections should not be retryable")
	}
	if IsRetryableError(UnknownTool("x")) {
		t.Error("unknown tool should not be retryable")
	}
	if IsRetryableError(fmt.Errorf("plain")) {
		t.Error("plain errors should not be retryable")
	}
}
