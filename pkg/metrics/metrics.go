// Package metrics exposes the Prometheus registry of the catalog feed.
// All metrics are defined in their respective packages via promauto to
// maintain modularity and avoid circular dependencies.
//
// This package provides the HTTP handler and the catalogue of available
// metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry every package registers with.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the registered metrics.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Upstream Metrics (pkg/graphql):
//   - catalog_graphql_requests_total{operation, status} (Counter): Requests by operation and outcome
//   - catalog_graphql_request_duration_seconds{operation} (Histogram): Request duration
//   - catalog_graphql_errors_total{class} (Counter): Errors by class (transport, throttled, cost_exceeded, query)
//   - catalog_graphql_query_cost{operation} (Histogram): Actual query cost reported upstream
//
// Cost Budget Metrics (pkg/ratelimit):
//   - catalog_cost_available (Gauge): Cost points currently available
//   - catalog_cost_waits_total (Counter): Requests delayed for the bucket to restore
//   - catalog_cost_wait_seconds (Histogram): Time spent waiting
//
// Pagination Metrics (pkg/pagination):
//   - catalog_pages_fetched_total{operation} (Counter): Pages fetched
//   - catalog_pagination_truncated_total{operation} (Counter): Paginations stopped at the page ceiling
//   - catalog_throttle_retries_total{operation} (Counter): Same-page retries after THROTTLED
//   - catalog_throttle_backoff_seconds{operation} (Histogram): Throttle backoff durations
//   - catalog_throttle_exhausted_total{operation} (Counter): Pages that stayed throttled
//
// Media Metrics (pkg/media):
//   - catalog_media_index_builds_total{result} (Counter): Index builds by result
//   - catalog_media_index_build_duration_seconds (Histogram): Build duration
//   - catalog_media_index_assets (Gauge): Assets in the published index
//   - catalog_media_skipped_total (Counter): Media items without a URL
//
// Resolution Metrics (pkg/resolve):
//   - catalog_resolve_lookups_total{source} (Counter): Lookups by answering source (local, global, fetch, miss)
//   - catalog_resolve_malformed_total (Counter): List references that failed to parse
//
// Catalog Metrics (pkg/catalog):
//   - catalog_fetches_total{strategy} (Counter): Catalog fetches by strategy
//   - catalog_strategy_fallbacks_total (Counter): Fallbacks to the two-phase strategy
//   - catalog_detail_failures_total (Counter): Failed per-product detail fetches
//   - catalog_fetch_duration_seconds{strategy} (Histogram): Fetch duration
//
// Transform Metrics (pkg/transform):
//   - catalog_transform_runs_total{result} (Counter): Runs by result (success, degraded, failed)
//   - catalog_transform_run_duration_seconds (Histogram): Run duration
//   - catalog_transform_items_total{status} (Counter): Items by status
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total / catalog_cache_misses_total (Counter)
//   - catalog_cache_size_bytes (Gauge): Size of the last value written
//   - catalog_cache_not_modified_total (Counter): 304 responses
//   - catalog_cache_errors_total{operation} (Counter)
//
// Export Metrics (pkg/export):
//   - catalog_exports_total{result} (Counter)
//   - catalog_exported_records_total (Counter)
//
// Example Prometheus Queries:
//
//   # Share of references answered without a direct fetch
//   sum(rate(catalog_resolve_lookups_total{source=~"local|global"}[1h])) /
//   sum(rate(catalog_resolve_lookups_total[1h]))
//
//   # Degraded runs
//   increase(catalog_transform_runs_total{result="degraded"}[1d])
//
//   # Throttle pressure
//   rate(catalog_throttle_retries_total[5m])
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(catalog_graphql_request_duration_seconds_bucket[5m]))
