package httpx

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// HTTPError is a non-2xx response. Body holds the raw payload.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("httpx: status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("httpx: status %d", e.StatusCode)
}

// Message returns the "error" field of a JSON body, or the trimmed body
// otherwise.
func (e *HTTPError) Message() string {
	if e == nil || len(e.Body) == 0 {
		return ""
	}
	if isJSON(e.Header.Get("Content-Type")) {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(e.Body, &payload); err == nil && payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(e.Body))
}

// Retryable reports whether the status is transient: 408, 429 or 5xx.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return e.StatusCode >= 500 && e.StatusCode <= 599
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
