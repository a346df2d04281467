package models

import "fmt"

// APIError is a structured failure returned by the collaboration backend.
// It is constructed only at the gateway boundary, never by callers above it.
type APIError struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
	StatusCode int    `json:"status_code"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.ID, e.StatusCode)
}
