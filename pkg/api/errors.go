package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies a failed API call.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	Network
	Timeout
	Auth
	NotFound
	Validation
	ServerError
)

func (k ErrorKind) String() string {
	switch k {
	case Network:
		return "network error"
	case Timeout:
		return "timeout"
	case Auth:
		return "authentication failed"
	case NotFound:
		return "not found"
	case Validation:
		return "validation failed"
	case ServerError:
		return "server error"
	default:
		return "unexpected response"
	}
}

// Error is returned by every client operation that does not succeed.
type Error struct {
	Kind      ErrorKind
	Status    int
	Message   string
	Fields    map[string]string
	Retryable bool
	// Body is the raw response body, kept for diagnostics.
	Body []byte
	// Attempts counts the HTTP requests made for the call.
	Attempts int
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FieldNames returns the validation field names, sorted.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// errorFromStatus maps a non-2xx response to an Error.
func errorFromStatus(status int, body []byte) *Error {
	e := &Error{Status: status, Body: body}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = Auth
		e.Message = messageFrom(body)
		if e.Message == "" {
			e.Message = "check your API key and service ID"
		}
	case status == http.StatusNotFound:
		e.Kind = NotFound
		e.Message = messageFrom(body)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		var obj map[string]any
		if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
			e.Kind = Unknown
			e.Message = snippet(body)
			return e
		}
		e.Kind = Validation
		e.Message, e.Fields = splitValidation(obj)
	case status >= 500:
		e.Kind = ServerError
		e.Retryable = true
		e.Message = messageFrom(body)
	default:
		e.Kind = Unknown
		e.Message = snippet(body)
	}
	return e
}

// messageFrom extracts detail/message from a JSON error body.
func messageFrom(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	return snippet(body)
}

// splitValidation separates the top-level message from per-field messages.
// Field values are kept verbatim; lists are joined with "; ".
func splitValidation(obj map[string]any) (string, map[string]string) {
	var message string
	fields := make(map[string]string)

	for key, value := range obj {
		text := fieldText(value)
		if key == "detail" || key == "message" {
			message = text
			continue
		}
		fields[key] = text
	}
	return message, fields
}

func fieldText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fieldText(item))
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func snippet(body []byte) string {
	const limit = 512
	body = bytes.TrimSpace(body)
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
