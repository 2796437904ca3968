package errors

// JSON-RPC 2.0 standard error codes, kept so backend protocol errors can be
// classified with the same registry.
const (
	CodeParseError     int = -32700
	CodeInvalidRequest int = -32600
	CodeMethodNotFound int = -32601
	CodeInvalidParams  int = -32602
	CodeInternalError  int = -32603
)

// Orchestrator error codes
const (
	// Registry Errors (-32200 to -32299)
	CodeDuplicateBackend int = -32210 // Backend id already registered
	CodeUnknownBackend   int = -32211 // Backend id not registered
	CodeUnknownTool      int = -32212 // Tool name has no route
	CodeToolNameConflict int = -32213 // Tool name already owned by another backend (strict mode)
	CodeInvalidCatalog   int = -32214 // Backend advertised an unusable tool catalog
	CodeRegistryClosed   int = -32215 // Registry has shut down

	// Operation Errors (-32300 to -32399)
	CodeOperationCancelled     int = -32300 // Operation was cancelled
	CodeOperationTimeout       int = -32301 // Operation timed out
	CodeOperationFailed        int = -32302 // Backend answered a request with an error
	CodeToolInvocationFailed   int = -32304 // Backend reported a tool-level failure
	CodeIterationLimitExceeded int = -32305 // Conversation exceeded its model call budget
	CodeReleaseFailed          int = -32306 // Resource release failed during teardown

	// Transport Errors (-32500 to -32599)
	CodeTransportError   int = -32500 // Generic transport error
	CodeConnectionFailed int = -32501 // Failed to establish connection
	CodeConnectionLost   int = -32502 // Connection lost during operation

	// Model Errors (-32650 to -32699)
	CodeModelCallFailed        int = -32653 // Model collaborator returned an error
	CodeMalformedModelResponse int = -32654 // Model response could not be interpreted

	// Validation Errors (-32750 to -32799)
	CodeValidationError  int = -32750 // Generic validation error
	CodeMissingParameter int = -32751 // Required parameter missing
	CodeInvalidParameter int = -32752 // Parameter has invalid value
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received", CategoryProtocol, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid Request object", CategoryProtocol, SeverityError},
	CodeMethodNotFound: {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryProtocol, SeverityError},
	CodeInvalidParams:  {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryValidation, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal JSON-RPC error", CategoryInternal, SeverityError},

	CodeDuplicateBackend: {CodeDuplicateBackend, "DuplicateBackend", "Backend already registered", CategoryRegistry, SeverityError},
	CodeUnknownBackend:   {CodeUnknownBackend, "UnknownBackend", "Backend not registered", CategoryNotFound, SeverityError},
	CodeUnknownTool:      {CodeUnknownTool, "UnknownTool", "No backend provides the tool", CategoryNotFound, SeverityWarning},
	CodeToolNameConflict: {CodeToolNameConflict, "ToolNameConflict", "Tool name already provided by another backend", CategoryRegistry, SeverityError},
	CodeInvalidCatalog:   {CodeInvalidCatalog, "InvalidCatalog", "Backend tool catalog is invalid", CategoryValidation, SeverityError},
	CodeRegistryClosed:   {CodeRegistryClosed, "RegistryClosed", "Registry has shut down", CategoryRegistry, SeverityError},

	CodeOperationCancelled:     {CodeOperationCancelled, "OperationCancelled", "Operation cancelled", CategoryCancelled, SeverityInfo},
	CodeOperationTimeout:       {CodeOperationTimeout, "Timeout", "Operation timed out", CategoryTimeout, SeverityError},
	CodeOperationFailed:        {CodeOperationFailed, "OperationFailed", "Backend rejected the request", CategoryProtocol, SeverityWarning},
	CodeToolInvocationFailed:   {CodeToolInvocationFailed, "ToolInvocation", "Tool invocation failed", CategoryTool, SeverityWarning},
	CodeIterationLimitExceeded: {CodeIterationLimitExceeded, "IterationLimitExceeded", "Conversation iteration limit exceeded", CategoryModel, SeverityError},
	CodeReleaseFailed:          {CodeReleaseFailed, "ReleaseFailed", "Resource release failed", CategoryTransport, SeverityWarning},

	CodeTransportError:   {CodeTransportError, "Transport", "Transport error", CategoryTransport, SeverityError},
	CodeConnectionFailed: {CodeConnectionFailed, "ConnectionFailed", "Connection failed", CategoryTransport, SeverityCritical},
	CodeConnectionLost:   {CodeConnectionLost, "ConnectionLost", "Connection lost", CategoryTransport, SeverityError},

	CodeModelCallFailed:        {CodeModelCallFailed, "ModelCall", "Model call failed", CategoryModel, SeverityError},
	CodeMalformedModelResponse: {CodeMalformedModelResponse, "MalformedModelResponse", "Model response malformed", CategoryModel, SeverityError},

	CodeValidationError:  {CodeValidationError, "ValidationError", "Validation error", CategoryValidation, SeverityError},
	CodeMissingParameter: {CodeMissingParameter, "MissingParameter", "Required parameter missing", CategoryValidation, SeverityError},
	CodeInvalidParameter: {CodeInvalidParameter, "InvalidParameter", "Invalid parameter value", CategoryValidation, SeverityError},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// GetErrorCodeCategory returns the category of an error code
func GetErrorCodeCategory(code int) Category {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Category
	}
	return CategoryInternal
}

// GetErrorCodeSeverity returns the severity of an error code
func GetErrorCodeSeverity(code int) Severity {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Severity
	}
	return SeverityError
}

// ListErrorCodes returns all registered error codes
func ListErrorCodes() []ErrorCodeInfo {
	codes := make([]ErrorCodeInfo, 0, len(errorCodeRegistry))
	for _, info := range errorCodeRegistry {
		codes = append(codes, info)
	}
	return codes
}
