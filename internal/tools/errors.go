package tools

import (
	"fmt"
	"net/http"
	"strings"
)

// ToolError carries an HTTP-style status code and message for tool failures.
type ToolError struct {
	statusCode int
	message    string
}

// Error implements error.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.message)
}

// StatusCode returns the attached status code.
func (e *ToolError) StatusCode() int {
	if e == nil || e.statusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.statusCode
}

func validationErrorf(format string, args ...any) error {
	return &ToolError{
		statusCode: http.StatusBadRequest,
		message:    fmt.Sprintf(format, args...),
	}
}

func backendErrorf(statusCode int, format string, args ...any) error {
	if statusCode < 400 || statusCode > 599 {
		statusCode = http.StatusBadGateway
	}
	return &ToolError{
		statusCode: statusCode,
		message:    fmt.Sprintf(format, args...),
	}
}
