package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx reply from the order backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order backend: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("order backend: %d: %s", e.Status, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	e := &APIError{Status: status}
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}

	e.Message = strings.TrimSpace(payload.Message)
	if e.Message == "" {
		switch v := payload.Error.(type) {
		case string:
			e.Message = strings.TrimSpace(v)
		case map[string]any:
			if m, ok := v["message"].(string); ok {
				e.Message = strings.TrimSpace(m)
			}
		}
	}
	return e
}

// Message extracts a user-facing message from err, or returns fallback when
// the backend gave nothing structured.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
