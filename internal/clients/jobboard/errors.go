package jobboard

import (
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer of the job-board API. Message is meant to be shown to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %v: %v", e.StatusCode, e.Message)
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

const defaultErrorMessage = "No se pudo completar la solicitud. Inténtalo de nuevo más tarde."

type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newAPIError(statusCode int, body []byte) *APIError {
	var parsed errorBody
	message := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, candidate := range []string{parsed.Detail, parsed.Message, parsed.Error} {
			if strings.TrimSpace(candidate) != "" {
				message = candidate
				break
			}
		}
	}
	if message == "" {
		message = defaultErrorMessage
	}
	return &APIError{StatusCode: statusCode, Message: message}
}

// UserMessage extracts a displayable message from any client error.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return defaultErrorMessage
}

func isServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsServerError()
}
