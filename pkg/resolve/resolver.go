// Package resolve rewrites media references embedded in typed fields to
// URLs. Lookups go through the entity-local index, then the global index,
// then a direct upstream fetch memoized for the lifetime of a Resolver.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Sternrassler/catalog-feed/pkg/graphql"
	"github.com/Sternrassler/catalog-feed/pkg/media"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Lookup sources, used as metric labels.
const (
	SourceLocal  = "local"
	SourceGlobal = "global"
	SourceFetch  = "fetch"
	SourceMiss   = "miss"
)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_resolve_lookups_total",
		Help: "Total media reference lookups by answering source",
	}, []string{"source"})

	malformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_resolve_malformed_total",
		Help: "Total list references whose payload failed to parse",
	})
)

// Fetcher fetches a single media URL directly from the upstream.
type Fetcher interface {
	FetchMediaURL(ctx context.Context, id string) (string, error)
}

type fetchResult struct {
	url string
	ok  bool
}

// Resolver resolves fields for one transform run. Direct fetch results,
// misses included, are memoized so an id is fetched at most once per run.
type Resolver struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu      sync.Mutex
	fetched map[string]fetchResult
}

// New creates a resolver. A nil fetcher disables direct fetches.
func New(fetcher Fetcher, logger zerolog.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		logger:  logger,
		fetched: make(map[string]fetchResult),
	}
}

// Resolve rewrites the media references in field. It never fails: ids no
// source can answer pass through unchanged.
func (r *Resolver) Resolve(ctx context.Context, field Field, local, global *media.Index) ResolvedField {
	switch field.Kind() {
	case KindScalarRef:
		return r.resolveScalar(ctx, field, local, global)
	case KindListRef:
		return r.resolveList(ctx, field, local, global)
	default:
		return unresolved(field)
	}
}

func (r *Resolver) resolveScalar(ctx context.Context, field Field, local, global *media.Index) ResolvedField {
	out := unresolved(field)
	url, ok := r.lookup(ctx, field.Value, local, global)
	if !ok {
		out.Misses = 1
		r.logger.Debug().
			Str("namespace", field.Namespace).
			Str("key", field.Key).
			Str("media_id", field.Value).
			Msg("Media reference unresolved")
		return out
	}
	out.ResolvedValue = url
	out.Resolved = true
	return out
}

func (r *Resolver) resolveList(ctx context.Context, field Field, local, global *media.Index) ResolvedField {
	out := unresolved(field)

	var ids []string
	err := json.Unmarshal([]byte(field.Value), &ids)
	if err == nil && ids == nil {
		err = errors.New("list reference is null")
	}
	if err != nil {
		malformedTotal.Inc()
		r.logger.Warn().
			Err(err).
			Str("namespace", field.Namespace).
			Str("key", field.Key).
			Msg("Malformed list reference - leaving field unmodified")
		return out
	}

	urls := make([]string, len(ids))
	for i, id := range ids {
		url, ok := r.lookup(ctx, id, local, global)
		if !ok {
			out.Misses++
			r.logger.Debug().
				Str("namespace", field.Namespace).
				Str("key", field.Key).
				Str("media_id", id).
				Msg("List element unresolved")
			url = id
		}
		urls[i] = url
	}

	encoded, err := json.Marshal(urls)
	if err != nil {
		return out
	}
	out.ResolvedValue = string(encoded)
	out.Resolved = true
	return out
}

// lookup answers id from local, then global, then a direct fetch.
func (r *Resolver) lookup(ctx context.Context, id string, local, global *media.Index) (string, bool) {
	if id == "" {
		lookupsTotal.WithLabelValues(SourceMiss).Inc()
		return "", false
	}
	if url, ok := local.Lookup(id); ok {
		lookupsTotal.WithLabelValues(SourceLocal).Inc()
		return url, true
	}
	if url, ok := global.Lookup(id); ok {
		lookupsTotal.WithLabelValues(SourceGlobal).Inc()
		return url, true
	}
	if url, ok := r.fetch(ctx, id); ok {
		lookupsTotal.WithLabelValues(SourceFetch).Inc()
		return url, true
	}
	lookupsTotal.WithLabelValues(SourceMiss).Inc()
	return "", false
}

func (r *Resolver) fetch(ctx context.Context, id string) (string, bool) {
	if r.fetcher == nil {
		return "", false
	}

	r.mu.Lock()
	res, seen := r.fetched[id]
	r.mu.Unlock()
	if seen {
		return res.url, res.ok
	}

	url, err := r.fetcher.FetchMediaURL(ctx, id)
	if err != nil {
		r.logger.Debug().Err(err).Str("media_id", id).Msg("Direct media fetch failed")
		// Transient failures stay out of the memo so a later reference retries.
		if transient(ctx, err) {
			return "", false
		}
	}
	res = fetchResult{url: url, ok: err == nil && url != ""}

	r.mu.Lock()
	r.fetched[id] = res
	r.mu.Unlock()
	return res.url, res.ok
}

func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, graphql.ErrThrottled) {
		return true
	}
	var te *graphql.TransportError
	return errors.As(err, &te)
}

// Fetched returns the number of distinct ids fetched directly.
func (r *Resolver) Fetched() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fetched)
}
