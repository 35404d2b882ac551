// Package testutil provides an HTTP mock of the Nimba SMS API for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// MockServer records every request and routes it by "METHOD /path".
type MockServer struct {
	server   *httptest.Server
	handlers map[string]http.HandlerFunc
	mu       sync.RWMutex
	requests []*RecordedRequest
}

// RecordedRequest stores details of a received request.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
	Time    time.Time
}

// JSON decodes the recorded body into a generic map.
func (r *RecordedRequest) JSON() map[string]any {
	var out map[string]any
	_ = json.Unmarshal(r.Body, &out)
	return out
}

// NewMockServer starts a server that is closed when the test ends.
func NewMockServer(t testing.TB) *MockServer {
	t.Helper()
	ms := &MockServer{
		handlers: make(map[string]http.HandlerFunc),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", ms.handleRequest)

	ms.server = httptest.NewServer(mux)
	t.Cleanup(ms.server.Close)
	return ms
}

// URL returns the server URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// On registers a handler for a method and path.
func (ms *MockServer) On(method, path string, handler http.HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[fmt.Sprintf("%s %s", method, path)] = handler
}

// OnGET registers a GET handler.
func (ms *MockServer) OnGET(path string, handler http.HandlerFunc) {
	ms.On(http.MethodGet, path, handler)
}

// OnPOST registers a POST handler.
func (ms *MockServer) OnPOST(path string, handler http.HandlerFunc) {
	ms.On(http.MethodPost, path, handler)
}

// OnPATCH registers a PATCH handler.
func (ms *MockServer) OnPATCH(path string, handler http.HandlerFunc) {
	ms.On(http.MethodPatch, path, handler)
}

// OnDELETE registers a DELETE handler.
func (ms *MockServer) OnDELETE(path string, handler http.HandlerFunc) {
	ms.On(http.MethodDelete, path, handler)
}

func (ms *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	ms.recordRequest(r)

	ms.mu.RLock()
	handler, exists := ms.handlers[fmt.Sprintf("%s %s", r.Method, r.URL.Path)]
	ms.mu.RUnlock()

	if exists {
		handler(w, r)
		return
	}
	ErrorResponse(http.StatusNotFound, "Not found.")(w, r)
}

// recordRequest stores request details and restores the body for the handler.
func (ms *MockServer) recordRequest(r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = append(ms.requests, &RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: r.Header.Clone(),
		Body:    body,
		Time:    time.Now(),
	})
}

// Requests returns all recorded requests.
func (ms *MockServer) Requests() []*RecordedRequest {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return append([]*RecordedRequest{}, ms.requests...)
}

// RequestCount returns the number of recorded requests.
func (ms *MockServer) RequestCount() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.requests)
}

// JSONResponse writes data as JSON with the given status.
func JSONResponse(statusCode int, data any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RawResponse writes body verbatim.
func RawResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = io.WriteString(w, body)
	}
}

// ErrorResponse writes a {"detail": message} error body.
func ErrorResponse(statusCode int, message string) http.HandlerFunc {
	return JSONResponse(statusCode, map[string]string{"detail": message})
}

// EchoResponse replies with the request body.
func EchoResponse(statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write(body)
	}
}

// Sequence serves handlers in order, repeating the last one.
func Sequence(handlers ...http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	calls := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := calls
		calls++
		mu.Unlock()
		if i >= len(handlers) {
			i = len(handlers) - 1
		}
		handlers[i](w, r)
	}
}

// DelayedResponse wraps a handler with a delay.
func DelayedResponse(delay time.Duration, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		handler(w, r)
	}
}

// PageResponse writes a Nimba list page. An empty next marks the last page.
func PageResponse(next string, items ...any) http.HandlerFunc {
	page := map[string]any{"results": items, "next": nil}
	if next != "" {
		page["next"] = next
	}
	if items == nil {
		page["results"] = []any{}
	}
	return JSONResponse(http.StatusOK, page)
}

// NoContent replies 204 with an empty body.
func NoContent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
