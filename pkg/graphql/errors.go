package graphql

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrThrottled matches query errors that signal the cost bucket is empty.
	ErrThrottled = errors.New("upstream throttled")

	// ErrCostExceeded matches query errors rejected for single-query cost.
	ErrCostExceeded = errors.New("upstream query cost exceeded")

	// ErrNoData is returned when decoding an envelope without data.
	ErrNoData = errors.New("response has no data")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassTransport represents network, HTTP status, and decode failures.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassThrottled represents THROTTLED query errors.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassCostExceeded represents single-query cost violations.
	ErrorClassCostExceeded ErrorClass = "cost_exceeded"

	// ErrorClassQuery represents any other application-level error.
	ErrorClassQuery ErrorClass = "query"
)

// TransportError is returned when the HTTP round trip itself fails.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("graphql transport error (status %d): %s: %v",
			e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("graphql transport error (status %d): %s",
		e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// QueryError carries the raw application errors of a response.
type QueryError struct {
	Errors []Error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, qe := range e.Errors {
		if code := qe.Code(); code != "" {
			msgs = append(msgs, fmt.Sprintf("%s (%s)", qe.Message, code))
			continue
		}
		msgs = append(msgs, qe.Message)
	}
	return fmt.Sprintf("graphql %s error: %s", e.Class(), strings.Join(msgs, "; "))
}

// Is lets errors.Is match ErrThrottled and ErrCostExceeded.
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrThrottled:
		return e.Throttled()
	case ErrCostExceeded:
		return e.CostExceeded()
	}
	return false
}

// Throttled reports whether any error carries the throttling code.
func (e *QueryError) Throttled() bool {
	return isThrottled(e.Errors)
}

// CostExceeded reports whether any error matches the cost-limit signature.
func (e *QueryError) CostExceeded() bool {
	return isCostExceeded(e.Errors)
}

// Class classifies the error for metrics and logging.
func (e *QueryError) Class() ErrorClass {
	switch {
	case e.Throttled():
		return ErrorClassThrottled
	case e.CostExceeded():
		return ErrorClassCostExceeded
	default:
		return ErrorClassQuery
	}
}

// Raw returns the errors payload as JSON.
func (e *QueryError) Raw() json.RawMessage {
	raw, err := json.Marshal(e.Errors)
	if err != nil {
		return nil
	}
	return raw
}

// Classify returns the ErrorClass of err, or "" if it is not an upstream error.
func Classify(err error) ErrorClass {
	var te *TransportError
	if errors.As(err, &te) {
		return ErrorClassTransport
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Class()
	}
	return ""
}
