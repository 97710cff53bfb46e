// Package cache provides the durable JSON cache in front of the transform
// pipeline, backed by Redis.
//
// Values are stored as an Entry wrapping the JSON payload together with its
// ETag and timestamps. Every key carries its own TTL.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{Store: "example", Resource: "products"}
//
//	var records []transform.Record
//	entry, err := manager.Get(ctx, key, &records)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// build and Set
//	case errors.Is(err, cache.ErrUnavailable):
//		// Redis down: fall through to the source
//	}
//
// # Conditional Responses
//
// Entries carry a strong ETag over their payload. HTTP handlers answer
// If-None-Match with 304 through NotModified and WriteHeaders.
//
// # Metrics
//
//   - catalog_cache_hits_total
//   - catalog_cache_misses_total
//   - catalog_cache_size_bytes
//   - catalog_cache_not_modified_total
//   - catalog_cache_errors_total{operation}
package cache
