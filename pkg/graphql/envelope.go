package graphql

import (
	"encoding/json"
	"strings"
)

// Error codes and message fragments the upstream uses for its two
// recoverable conditions.
const (
	CodeThrottled       = "THROTTLED"
	CodeMaxCostExceeded = "MAX_COST_EXCEEDED"

	// costLimitMessage appears in the message of a query rejected for its
	// single-query cost, e.g. "Query cost is 1502, which exceeds the single
	// query max cost limit (1000)."
	costLimitMessage = "max cost limit"
)

// Request is the POST body sent to the upstream endpoint.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Envelope is a decoded upstream response. Data and Errors may both be set
// for partial failures.
type Envelope struct {
	Data       json.RawMessage `json:"data"`
	Errors     []Error         `json:"errors,omitempty"`
	Extensions *Extensions     `json:"extensions,omitempty"`
}

// Error is a single application-level GraphQL error.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code, or "" when absent.
func (e Error) Code() string {
	if e.Extensions == nil {
		return ""
	}
	code, _ := e.Extensions["code"].(string)
	return code
}

// Extensions carries upstream metadata outside of data/errors.
type Extensions struct {
	Cost *Cost `json:"cost,omitempty"`
}

// Cost reports the calculated cost of a query and the state of the
// caller's cost bucket after it ran.
type Cost struct {
	RequestedQueryCost float64        `json:"requestedQueryCost"`
	ActualQueryCost    float64        `json:"actualQueryCost"`
	ThrottleStatus     ThrottleStatus `json:"throttleStatus"`
}

// ThrottleStatus is the leaky-bucket state reported by the upstream.
type ThrottleStatus struct {
	MaximumAvailable   float64 `json:"maximumAvailable"`
	CurrentlyAvailable float64 `json:"currentlyAvailable"`
	RestoreRate        float64 `json:"restoreRate"`
}

// HasErrors reports whether the envelope carries application errors.
func (e *Envelope) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

// Err returns a *QueryError when the envelope carries errors, nil otherwise.
func (e *Envelope) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return &QueryError{Errors: e.Errors}
}

// Decode unmarshals Data into v.
func (e *Envelope) Decode(v any) error {
	if e == nil || len(e.Data) == 0 || string(e.Data) == "null" {
		return ErrNoData
	}
	return json.Unmarshal(e.Data, v)
}

func isThrottled(errs []Error) bool {
	for _, e := range errs {
		if e.Code() == CodeThrottled {
			return true
		}
	}
	return false
}

func isCostExceeded(errs []Error) bool {
	for _, e := range errs {
		if e.Code() == CodeMaxCostExceeded {
			return true
		}
		if strings.Contains(strings.ToLower(e.Message), costLimitMessage) {
			return true
		}
	}
	return false
}

// OperationName extracts the operation name from a query document, e.g.
// "Products" from "query Products($first: Int!) {...}". Anonymous queries
// return "anonymous".
func OperationName(query string) string {
	q := strings.TrimSpace(query)
	for _, kw := range []string{"query", "mutation"} {
		if !strings.HasPrefix(q, kw) {
			continue
		}
		rest := strings.TrimSpace(q[len(kw):])
		end := strings.IndexAny(rest, "({ \t\n")
		if end == -1 {
			end = len(rest)
		}
		if name := rest[:end]; name != "" {
			return name
		}
	}
	return "anonymous"
}
