package errors

import "fmt"

// ValidationErrorData contains structured data for validation errors
type ValidationErrorData struct {
	Field    string      `json:"field"`
	Value    interface{} `json:"value,omitempty"`
	Expected string      `json:"expected,omitempty"`
}

// ValidationError creates a generic validation error
func ValidationError(message string) MCPError {
	return NewError(CodeValidationError, message, CategoryValidation, SeverityError)
}

// ValidationErrorf creates a validation error with formatted message
func ValidationErrorf(format string, args ...interface{}) MCPError {
	return NewErrorf(CodeValidationError, CategoryValidation, SeverityError, format, args...)
}

// InvalidParameter creates an error for invalid parameter values
func InvalidParameter(param string, value interface{}, expected string) MCPError {
	return NewError(
		CodeInvalidParameter,
		fmt.Sprintf("invalid value for parameter '%s'", param),
		CategoryValidation,
		SeverityError,
	).WithData(&ValidationErrorData{
		Field:    param,
		Value:    value,
		Expected: expected,
	})
}

// MissingParameter creates an error for missing required parameters
func MissingParameter(param string) MCPError {
	return NewError(
		CodeMissingParameter,
		fmt.Sprintf("required parameter '%s' is missing", param),
		CategoryValidation,
		SeverityError,
	).WithData(&ValidationErrorData{Field: param})
}
