package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"peelojuice-staff/internal/model"
)

// APIError is a non-2xx response from the staff API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
	Payload    map[string]any
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is maps the status code onto the client error taxonomy.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}

	switch target {
	case model.ErrAuthExpired:
		return e.StatusCode == http.StatusUnauthorized
	case model.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case model.ErrServerValidation:
		return e.StatusCode >= 400 && e.StatusCode < 500 &&
			e.StatusCode != http.StatusUnauthorized && e.StatusCode != http.StatusNotFound
	case model.ErrServer:
		return e.StatusCode >= 500
	}

	return false
}

// PartialFailure reports a password reset request that failed to deliver
// the email but still generated an OTP.
func (e *APIError) PartialFailure() bool {
	if e == nil || e.Payload == nil {
		return false
	}

	value, ok := e.Payload["password_reset_otp"]
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString {
		return s != ""
	}
	return true
}

// UserMessage returns the server message, or fallback when there is none.
func (e *APIError) UserMessage(fallback string) string {
	if e == nil || strings.TrimSpace(e.Message) == "" {
		return fallback
	}
	return e.Message
}

// FromResponse builds an APIError from a response body. The message is taken
// from the message, error and detail fields in that order.
func FromResponse(method string, path string, status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Method: method, Path: path}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Payload = payload
		for _, key := range []string{"message", "error", "detail"} {
			if msg := stringField(payload[key]); msg != "" {
				apiErr.Message = msg
				break
			}
		}
		if apiErr.Message == "" && len(payload) > 0 {
			apiErr.Message = flattenFieldErrors(payload)
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if len(apiErr.Message) > 512 {
		apiErr.Message = apiErr.Message[:512]
	}
	return apiErr
}

func stringField(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if s := stringField(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// flattenFieldErrors renders {"email": ["already exists"]} style payloads.
func flattenFieldErrors(payload map[string]any) string {
	parts := make([]string, 0, len(payload))
	for key, value := range payload {
		if msg := stringField(value); msg != "" {
			parts = append(parts, key+": "+msg)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	slices.Sort(parts)
	return strings.Join(parts, "; ")
}
