package graphql

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestQueryError_Classification(t *testing.T) {
	tests := []struct {
		name     string
		errs     []Error
		class    ErrorClass
		throttle bool
		cost     bool
	}{
		{
			name:     "throttled code",
			errs:     []Error{{Message: "Throttled", Extensions: map[string]any{"code": "THROTTLED"}}},
			class:    ErrorClassThrottled,
			throttle: true,
		},
		{
			name:  "cost code",
			errs:  []Error{{Message: "too expensive", Extensions: map[string]any{"code": "MAX_COST_EXCEEDED"}}},
			class: ErrorClassCostExceeded,
			cost:  true,
		},
		{
			name:  "cost message without code",
			errs:  []Error{{Message: "Query cost is 1502, which exceeds the single query max cost limit (1000)."}},
			class: ErrorClassCostExceeded,
			cost:  true,
		},
		{
			name:  "other error",
			errs:  []Error{{Message: "Field 'foo' doesn't exist on type 'Product'"}},
			class: ErrorClassQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qe := &QueryError{Errors: tt.errs}
			if qe.Class() != tt.class {
				t.Errorf("Class() = %q, want %q", qe.Class(), tt.class)
			}
			if errors.Is(qe, ErrThrottled) != tt.throttle {
				t.Errorf("errors.Is(ErrThrottled) = %v, want %v", !tt.throttle, tt.throttle)
			}
			if errors.Is(qe, ErrCostExceeded) != tt.cost {
				t.Errorf("errors.Is(ErrCostExceeded) = %v, want %v", !tt.cost, tt.cost)
			}
		})
	}
}

func TestQueryError_WrappedIs(t *testing.T) {
	qe := &QueryError{Errors: []Error{{Message: "Throttled", Extensions: map[string]any{"code": "THROTTLED"}}}}
	wrapped := fmt.Errorf("fetch page 2: %w", qe)

	if !errors.Is(wrapped, ErrThrottled) {
		t.Error("Expected wrapped error to match ErrThrottled")
	}
	if Classify(wrapped) != ErrorClassThrottled {
		t.Errorf("Classify() = %q", Classify(wrapped))
	}
}

func TestQueryError_ErrorAndRaw(t *testing.T) {
	qe := &QueryError{Errors: []Error{
		{Message: "first", Extensions: map[string]any{"code": "X"}},
		{Message: "second"},
	}}

	msg := qe.Error()
	if !strings.Contains(msg, "first (X)") || !strings.Contains(msg, "second") {
		t.Errorf("Error() = %q", msg)
	}
	if raw := string(qe.Raw()); !strings.Contains(raw, `"message":"first"`) {
		t.Errorf("Raw() = %s", raw)
	}
}

func TestTransportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TransportError
		expected string
	}{
		{
			name:     "with wrapped error",
			err:      &TransportError{StatusCode: 0, Message: "request failed", Err: errors.New("connection refused")},
			expected: "graphql transport error (status 0): request failed: connection refused",
		},
		{
			name:     "status only",
			err:      &TransportError{StatusCode: 502, Message: "502 Bad Gateway"},
			expected: "graphql transport error (status 502): 502 Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &TransportError{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("Expected errors.Is to find wrapped error")
	}
}

func TestClassify_NonUpstream(t *testing.T) {
	if got := Classify(errors.New("plain")); got != "" {
		t.Errorf("Classify() = %q, want empty", got)
	}
}
