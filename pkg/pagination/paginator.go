package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"sync/atomic"

	"github.com/Sternrassler/catalog-feed/pkg/graphql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_pages_fetched_total",
		Help: "Total number of pages fetched by operation",
	}, []string{"operation"})

	truncationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_pagination_truncated_total",
		Help: "Total number of paginations stopped at the page ceiling",
	}, []string{"operation"})
)

var (
	// ErrConsumed is yielded when All is called on a used paginator.
	ErrConsumed = errors.New("paginator already consumed")

	// ErrMissingCursor is yielded when hasNextPage is true without an endCursor.
	ErrMissingCursor = errors.New("hasNextPage without endCursor")
)

// Executor runs a single GraphQL request.
type Executor interface {
	Execute(ctx context.Context, query string, variables map[string]any) (*graphql.Envelope, error)
}

// Cursor is the pagination state reported with a page.
type Cursor struct {
	EndCursor   string
	HasNextPage bool
}

// Page is one extracted page of items.
type Page[T any] struct {
	Items  []T
	Cursor Cursor
}

// Extractor pulls a page out of a response envelope.
type Extractor[T any] func(env *graphql.Envelope) (Page[T], error)

// Paginator walks a connection page by page.
type Paginator[T any] struct {
	exec      Executor
	query     string
	vars      map[string]any
	extract   Extractor[T]
	schedule  Schedule
	operation string
	logger    zerolog.Logger

	consumed  atomic.Bool
	truncated atomic.Bool
	pages     atomic.Int64
}

// New creates a paginator. vars are the template variables; `first` and
// `after` are set per page.
func New[T any](exec Executor, query string, vars map[string]any, extract Extractor[T], schedule Schedule) *Paginator[T] {
	operation := graphql.OperationName(query)
	return &Paginator[T]{
		exec:      exec,
		query:     query,
		vars:      vars,
		extract:   extract,
		schedule:  schedule,
		operation: operation,
		logger:    log.With().Str("component", "paginator").Str("operation", operation).Logger(),
	}
}

// All returns the item sequence. Items arrive in upstream page order. On
// failure a single (zero, err) pair is yielded and the sequence ends.
func (p *Paginator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if !p.consumed.CompareAndSwap(false, true) {
			yield(zero, ErrConsumed)
			return
		}

		after := ""
		for page := 1; ; page++ {
			env, err := p.fetchPage(ctx, after)
			if err != nil {
				yield(zero, fmt.Errorf("fetch %s page %d: %w", p.operation, page, err))
				return
			}

			pg, err := p.extract(env)
			if err != nil {
				yield(zero, fmt.Errorf("extract %s page %d: %w", p.operation, page, err))
				return
			}
			p.pages.Store(int64(page))
			pagesTotal.WithLabelValues(p.operation).Inc()

			p.logger.Debug().
				Int("page", page).
				Int("items", len(pg.Items)).
				Bool("has_next_page", pg.Cursor.HasNextPage).
				Msg("Page fetched")

			for _, item := range pg.Items {
				if !yield(item, nil) {
					return
				}
			}

			if !pg.Cursor.HasNextPage {
				return
			}
			if pg.Cursor.EndCursor == "" {
				yield(zero, fmt.Errorf("%s page %d: %w", p.operation, page, ErrMissingCursor))
				return
			}
			if p.schedule.MaxPages > 0 && page >= p.schedule.MaxPages {
				p.truncated.Store(true)
				truncationsTotal.WithLabelValues(p.operation).Inc()
				p.logger.Warn().
					Int("max_pages", p.schedule.MaxPages).
					Msg("Page ceiling reached with more pages remaining - result truncated")
				return
			}

			if err := Sleep(ctx, p.schedule.PageDelay); err != nil {
				yield(zero, err)
				return
			}
			after = pg.Cursor.EndCursor
		}
	}
}

// Collect drains the sequence into a slice.
func (p *Paginator[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for item, err := range p.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Truncated reports whether the page ceiling cut the sequence short.
func (p *Paginator[T]) Truncated() bool {
	return p.truncated.Load()
}

// Pages returns the number of pages fetched so far.
func (p *Paginator[T]) Pages() int {
	return int(p.pages.Load())
}

func (p *Paginator[T]) fetchPage(ctx context.Context, after string) (*graphql.Envelope, error) {
	vars := make(map[string]any, len(p.vars)+2)
	maps.Copy(vars, p.vars)
	vars["first"] = p.schedule.PageSize
	if after == "" {
		vars["after"] = nil
	} else {
		vars["after"] = after
	}

	return retryThrottled(ctx, p.schedule, p.operation, p.logger, func() (*graphql.Envelope, error) {
		env, err := p.exec.Execute(ctx, p.query, vars)
		if err != nil {
			return nil, err
		}
		if err := env.Err(); err != nil {
			return nil, err
		}
		return env, nil
	})
}
