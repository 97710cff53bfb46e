package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/catalog-feed/pkg/graphql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for throttle retries.
var (
	throttleRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_throttle_retries_total",
		Help: "Total number of same-page retries after a THROTTLED error by operation",
	}, []string{"operation"})

	throttleBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_throttle_backoff_seconds",
		Help:    "Backoff duration before retrying a throttled page",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})

	throttleExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_throttle_exhausted_total",
		Help: "Total number of pages that stayed throttled after all retries",
	}, []string{"operation"})
)

// ErrRetryExhausted is returned when a page stays throttled after
// Schedule.MaxThrottleRetries retries. It wraps the last throttle error.
var ErrRetryExhausted = errors.New("throttle retries exhausted")

// retryThrottled runs fn until it succeeds, fails with a non-throttle error,
// or has been throttled more than MaxThrottleRetries times in a row.
func retryThrottled(ctx context.Context, schedule Schedule, operation string, logger zerolog.Logger, fn func() (*graphql.Envelope, error)) (*graphql.Envelope, error) {
	var lastErr error

	for attempt := 0; attempt <= schedule.MaxThrottleRetries; attempt++ {
		env, err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Info().
					Str("operation", operation).
					Int("attempt", attempt+1).
					Msg("Page succeeded after throttle retry")
			}
			return env, nil
		}

		if !errors.Is(err, graphql.ErrThrottled) {
			return nil, err
		}
		lastErr = err

		if attempt == schedule.MaxThrottleRetries {
			break
		}

		throttleRetriesTotal.WithLabelValues(operation).Inc()
		throttleBackoffSeconds.WithLabelValues(operation).Observe(schedule.ThrottleBackoff.Seconds())

		logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("backoff", schedule.ThrottleBackoff).
			Msg("Upstream throttled - retrying same page after backoff")

		if err := Sleep(ctx, schedule.ThrottleBackoff); err != nil {
			return nil, fmt.Errorf("throttle backoff: %w", err)
		}
	}

	throttleExhaustedTotal.WithLabelValues(operation).Inc()
	logger.Error().
		Str("operation", operation).
		Int("max_retries", schedule.MaxThrottleRetries).
		Msg("Throttle retries exhausted")

	return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, schedule.MaxThrottleRetries, lastErr)
}

// Do executes a single non-paginated query with the same throttle retry
// the paginator applies to pages. Application errors are returned as
// *graphql.QueryError.
func Do(ctx context.Context, exec Executor, query string, variables map[string]any, schedule Schedule) (*graphql.Envelope, error) {
	operation := graphql.OperationName(query)
	logger := log.With().Str("component", "paginator").Str("operation", operation).Logger()

	return retryThrottled(ctx, schedule, operation, logger, func() (*graphql.Envelope, error) {
		env, err := exec.Execute(ctx, query, variables)
		if err != nil {
			return nil, err
		}
		if err := env.Err(); err != nil {
			return nil, err
		}
		return env, nil
	})
}
