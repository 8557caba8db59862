// Package wire holds the JSON codec shared by the HTTP backend, the mock
// backend and the sandbox, plus helpers for unwrapping response envelopes.
package wire

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// ContentType is sent and expected on every JSON exchange.
const ContentType = "application/json"

// Marshal encodes v without HTML escaping and without a trailing newline.
func Marshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes data into out.
func Unmarshal(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// IsEmpty reports whether body carries no document (blank or JSON null).
func IsEmpty(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ExtractField returns the raw JSON stored under name in an object
// envelope such as {"schema": {...}, "keys": [...]}. It returns nil when
// the body is empty, is not an object, or lacks the field.
func ExtractField(body []byte, name string) (json.RawMessage, error) {
	if IsEmpty(body) {
		return nil, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &envelope); err != nil {
		return nil, nil
	}
	raw, ok := envelope[name]
	if !ok || IsEmpty(raw) {
		return nil, nil
	}
	return append(json.RawMessage(nil), raw...), nil
}

// DecodeField decodes the envelope field name into out. A missing field
// leaves out untouched.
func DecodeField(body []byte, name string, out any) error {
	raw, err := ExtractField(body, name)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("wire: decode %q: %w", name, err)
	}
	return nil
}

// Decode decodes a whole body into out. An empty body is an error: callers
// that tolerate it check IsEmpty first.
func Decode(body []byte, out any) error {
	if IsEmpty(body) {
		return fmt.Errorf("wire: empty body")
	}
	return json.Unmarshal(bytes.TrimSpace(body), out)
}
