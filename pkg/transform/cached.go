package transform

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/cache"
	"github.com/rs/zerolog"
)

// productsResource is the cache resource holding the last Output.
const productsResource = "products"

// Runner produces a transform output.
type Runner interface {
	Run(ctx context.Context) (*Output, error)
}

// Cache is the subset of the cache manager the runner uses.
type Cache interface {
	Get(ctx context.Context, key cache.Key, dest any) (*cache.Entry, error)
	Set(ctx context.Context, key cache.Key, value any, ttl time.Duration) (*cache.Entry, error)
	Delete(ctx context.Context, key cache.Key) error
}

// CachedRunner reads through and writes through the cache around a Runner.
// Cache failures fall through to the runner. Runs are serialized so that
// concurrent callers share the first result.
type CachedRunner struct {
	runner Runner
	cache  Cache
	key    cache.Key
	ttl    time.Duration
	logger zerolog.Logger

	mu   sync.Mutex
	last atomic.Pointer[Report]
}

// NewCachedRunner wraps runner. A nil cache disables caching.
func NewCachedRunner(runner Runner, c Cache, store string, ttl time.Duration, logger zerolog.Logger) *CachedRunner {
	return &CachedRunner{
		runner: runner,
		cache:  c,
		key:    cache.Key{Store: store, Resource: productsResource},
		ttl:    ttl,
		logger: logger,
	}
}

// Run returns the cached output, or runs the pipeline and caches the
// result. refresh skips the cache read. The returned entry carries the
// ETag of the output.
func (c *CachedRunner) Run(ctx context.Context, refresh bool) (*Output, *cache.Entry, error) {
	if !refresh {
		if out, entry, ok := c.lookup(ctx); ok {
			return out, entry, nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have filled the cache while we waited.
	if !refresh {
		if out, entry, ok := c.lookup(ctx); ok {
			return out, entry, nil
		}
	}

	out, err := c.runner.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	c.last.Store(out.Report)

	entry, err := c.store(ctx, out)
	if err != nil {
		return nil, nil, err
	}
	return out, entry, nil
}

func (c *CachedRunner) lookup(ctx context.Context) (*Output, *cache.Entry, bool) {
	if c.cache == nil {
		return nil, nil, false
	}

	var out Output
	entry, err := c.cache.Get(ctx, c.key, &out)
	switch {
	case err == nil:
		if out.Report != nil && c.last.Load() == nil {
			c.last.Store(out.Report)
		}
		return &out, entry, true
	case errors.Is(err, cache.ErrCacheMiss):
		c.logger.Debug().Str("key", c.key.String()).Msg("Cache miss")
	default:
		c.logger.Warn().Err(err).Str("key", c.key.String()).Msg("Cache read failed - falling through to source")
	}
	return nil, nil, false
}

func (c *CachedRunner) store(ctx context.Context, out *Output) (*cache.Entry, error) {
	if c.cache != nil {
		entry, err := c.cache.Set(ctx, c.key, out, c.ttl)
		if err == nil {
			return entry, nil
		}
		c.logger.Warn().Err(err).Str("key", c.key.String()).Msg("Cache write failed - serving uncached output")
	}
	return cache.NewEntry(out, c.ttl)
}

// Invalidate drops the cached output.
func (c *CachedRunner) Invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(ctx, c.key)
}

// LastReport returns the report of the most recent run, or nil.
func (c *CachedRunner) LastReport() *Report {
	return c.last.Load()
}
