// Package testutil provides testing utilities for the catalog feed.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Request is a GraphQL request as received by the mock upstream.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Operation returns the operation name of the request query.
func (r Request) Operation() string {
	q := strings.TrimSpace(r.Query)
	for _, kw := range []string{"query", "mutation"} {
		if !strings.HasPrefix(q, kw) {
			continue
		}
		rest := strings.TrimSpace(q[len(kw):])
		if end := strings.IndexAny(rest, "({ \t\n"); end > 0 {
			return rest[:end]
		}
	}
	return "anonymous"
}

// After returns the "after" cursor variable, or "" for null.
func (r Request) After() string {
	after, _ := r.Variables["after"].(string)
	return after
}

// StringVar returns a string variable by name.
func (r Request) StringVar(name string) string {
	v, _ := r.Variables[name].(string)
	return v
}

// MockResponse defines one scripted upstream response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// Handler computes a response for a request.
type Handler func(req Request) MockResponse

// MockUpstream is a configurable mock GraphQL upstream for testing.
// Requests are routed by operation name.
type MockUpstream struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	queues   map[string][]MockResponse
	requests []Request
	headers  http.Header
}

// NewMockUpstream creates and starts a mock upstream.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers: make(map[string]Handler),
		queues:   make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, req)
		mock.headers = r.Header.Clone()
		op := req.Operation()
		var resp MockResponse
		var found bool
		if queue := mock.queues[op]; len(queue) > 0 {
			resp, found = queue[0], true
			mock.queues[op] = queue[1:]
		}
		handler, hasHandler := mock.handlers[op]
		mock.mu.Unlock()

		if !found {
			if !hasHandler {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"errors":[{"message":"unknown operation ` + op + `"}]}`))
				return
			}
			resp = handler(req)
		}

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		if resp.StatusCode == 0 {
			resp.StatusCode = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Handle sets the handler for an operation.
func (m *MockUpstream) Handle(operation string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[operation] = handler
}

// Enqueue schedules one-shot responses for an operation. Queued responses
// take precedence over the operation handler.
func (m *MockUpstream) Enqueue(operation string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[operation] = append(m.queues[operation], responses...)
}

// Requests returns a copy of all received requests.
func (m *MockUpstream) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// RequestCount returns the number of requests for an operation ("" = all).
func (m *MockUpstream) RequestCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if operation == "" {
		return len(m.requests)
	}
	n := 0
	for _, r := range m.requests {
		if r.Operation() == operation {
			n++
		}
	}
	return n
}

// LastHeaders returns the headers of the most recent request.
func (m *MockUpstream) LastHeaders() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headers.Clone()
}

// Data creates a 200 response carrying data.
func Data(data any) MockResponse {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		panic(err)
	}
	return MockResponse{StatusCode: http.StatusOK, Body: string(body)}
}

// DataWithCost creates a 200 response carrying data and a cost report.
func DataWithCost(data any, available, maximum, restore float64) MockResponse {
	body, err := json.Marshal(map[string]any{
		"data": data,
		"extensions": map[string]any{
			"cost": map[string]any{
				"requestedQueryCost": 10,
				"actualQueryCost":    8,
				"throttleStatus": map[string]any{
					"maximumAvailable":   maximum,
					"currentlyAvailable": available,
					"restoreRate":        restore,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return MockResponse{StatusCode: http.StatusOK, Body: string(body)}
}

// QueryError creates a 200 response carrying a single application error.
func QueryError(code, message string) MockResponse {
	errEntry := map[string]any{"message": message}
	if code != "" {
		errEntry["extensions"] = map[string]any{"code": code}
	}
	body, err := json.Marshal(map[string]any{"errors": []any{errEntry}})
	if err != nil {
		panic(err)
	}
	return MockResponse{StatusCode: http.StatusOK, Body: string(body)}
}

// Throttled creates a THROTTLED error response.
func Throttled() MockResponse {
	return QueryError("THROTTLED", "Throttled")
}

// CostExceeded creates a single-query cost violation response.
func CostExceeded() MockResponse {
	return QueryError("MAX_COST_EXCEEDED",
		"Query cost is 1502, which exceeds the single query max cost limit (1000).")
}

// ServerError creates a 500 response.
func ServerError() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errors":"Internal Server Error"}`,
	}
}

// Page builds a connection payload {nodes, pageInfo}.
func Page(nodes []any, hasNext bool, endCursor string) map[string]any {
	pageInfo := map[string]any{"hasNextPage": hasNext, "endCursor": nil}
	if endCursor != "" {
		pageInfo["endCursor"] = endCursor
	}
	return map[string]any{"nodes": nodes, "pageInfo": pageInfo}
}
