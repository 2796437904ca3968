package errors

import (
	"encoding/json"
	"fmt"
)

// ToolErrorPayload renders err as the JSON text placed in a synthesized tool
// result, so the model sees a stable {"error": {...}} shape with the error
// name and message.
func ToolErrorPayload(err error) string {
	if err == nil {
		return ""
	}

	mcpErr := ConvertStandardError(err)
	body := map[string]interface{}{
		"code":    mcpErr.Code(),
		"name":    GetErrorCodeName(mcpErr.Code()),
		"message": mcpErr.Message(),
	}
	if mcpErr.Details() != "" {
		body["details"] = mcpErr.Details()
	}

	payload, marshalErr := json.Marshal(map[string]interface{}{"error": body})
	if marshalErr != nil {
		return fmt.Sprintf(`{"error":{"code":%d,"message":%q}}`, mcpErr.Code(), mcpErr.Message())
	}
	return string(payload)
}

// ConvertStandardError wraps a plain error as an internal MCPError,
// leaving existing MCPErrors untouched.
func ConvertStandardError(err error) MCPError {
	if err == nil {
		return nil
	}
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr
	}
	return WrapError(err, CodeInternalError, err.Error(), CategoryInternal, SeverityError)
}
