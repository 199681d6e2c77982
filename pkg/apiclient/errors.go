package apiclient

import (
	"fmt"
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	ErrorCode  string `json:"errorCode,omitempty"`
	Details    string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
	}
	return e.Message
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.ErrorCode == "Auth"
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.ErrorCode == "NotFound"
}

// IsConflict returns true if this is a conflict error.
func (e *APIError) IsConflict() bool {
	return e.ErrorCode == "Conflict"
}

// IsValidationError returns true if this is a validation error.
func (e *APIError) IsValidationError() bool {
	return e.ErrorCode == "Validation" || e.ErrorCode == "FormatInvalid"
}

// IsTooLarge returns true if the upload exceeded the server's size cap.
func (e *APIError) IsTooLarge() bool {
	return e.ErrorCode == "TooLarge"
}
