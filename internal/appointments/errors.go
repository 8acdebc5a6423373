package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// genericFailureMessage is shown when the store gives no usable message.
const genericFailureMessage = "Something went wrong while talking to the appointment service."

// APIError is a non-2xx response from the appointment store.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("appointments: API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("appointments: API error (status %d): %s", e.StatusCode, e.Message)
}

// UserMessage extracts the server-provided message from err, falling back to
// a generic string so request failures never leak transport details to users.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return genericFailureMessage
}

// newAPIError decodes the store's {"message": ...} error body when present.
// Any other body shape is dropped so arbitrary upstream bytes never reach
// UserMessage.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(payload.Message)}
	}
	return &APIError{StatusCode: status}
}
