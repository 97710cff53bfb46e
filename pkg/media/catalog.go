// Package media builds and serves the process-wide media index that maps
// media identifiers to URLs, and fetches single media nodes directly.
package media

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	indexBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_media_index_builds_total",
		Help: "Total media index builds by result",
	}, []string{"result"})

	indexBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_media_index_build_duration_seconds",
		Help:    "Media index build duration in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	indexAssets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_media_index_assets",
		Help: "Number of assets in the published media index",
	})

	skippedAssetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_media_skipped_total",
		Help: "Total media items skipped for lack of a URL",
	})
)

// FilesQuery lists every media file in the store.
const FilesQuery = `query Files($first: Int!, $after: String) {
  files(first: $first, after: $after) {
    nodes {
      ` + AssetFields + `
    }
    pageInfo { hasNextPage endCursor }
  }
}`

// Catalog owns the media index. The index is built on first use and then
// reused until Reset. Concurrent first calls may each build; whichever
// finishes last is published, and all builds carry equivalent content.
type Catalog struct {
	exec     pagination.Executor
	schedule pagination.Schedule
	logger   zerolog.Logger

	index atomic.Pointer[Index]
}

// NewCatalog creates a media catalog reading from exec.
func NewCatalog(exec pagination.Executor, schedule pagination.Schedule, logger zerolog.Logger) *Catalog {
	return &Catalog{
		exec:     exec,
		schedule: schedule,
		logger:   logger,
	}
}

// GetOrBuild returns the published index, building it first if needed.
// A failed build returns an empty index and publishes nothing, so the next
// call tries again.
func (c *Catalog) GetOrBuild(ctx context.Context) *Index {
	if idx := c.index.Load(); idx != nil {
		return idx
	}

	idx, err := c.Build(ctx)
	if err != nil {
		indexBuildsTotal.WithLabelValues("failed").Inc()
		c.logger.Error().Err(err).Msg("Media index build failed - continuing with empty index")
		return NewIndex()
	}

	c.index.Store(idx)
	indexAssets.Set(float64(idx.Assets()))
	return idx
}

// Build fetches every media file and returns a fresh index without
// publishing it.
func (c *Catalog) Build(ctx context.Context) (*Index, error) {
	start := time.Now()
	defer func() {
		indexBuildDuration.Observe(time.Since(start).Seconds())
	}()

	c.logger.Info().Msg("Building media index")

	p := pagination.New(c.exec, FilesQuery, nil, pagination.ConnectionAt[Node]("files"), c.schedule)

	idx := NewIndex()
	skipped := 0
	for node, err := range p.All(ctx) {
		if err != nil {
			return nil, err
		}
		if node.Asset == nil || node.Asset.URL() == "" || node.Asset.CanonicalID() == "" {
			skipped++
			skippedAssetsTotal.Inc()
			continue
		}
		idx.Add(node.Asset.CanonicalID(), node.Asset.URL())
	}

	if p.Truncated() {
		c.logger.Warn().Int("pages", p.Pages()).Msg("Media index truncated at page ceiling")
	}

	indexBuildsTotal.WithLabelValues("success").Inc()
	c.logger.Info().
		Int("assets", idx.Assets()).
		Int("keys", idx.Len()).
		Int("skipped", skipped).
		Int("pages", p.Pages()).
		Dur("duration", time.Since(start)).
		Msg("Media index built")

	return idx, nil
}

// Get looks up id in the published index without building it.
func (c *Catalog) Get(id string) (string, bool) {
	return c.index.Load().Lookup(id)
}

// Built reports whether an index is published.
func (c *Catalog) Built() bool {
	return c.index.Load() != nil
}

// Reset discards the published index; the next GetOrBuild rebuilds.
func (c *Catalog) Reset() {
	c.index.Store(nil)
	indexAssets.Set(0)
	c.logger.Info().Msg("Media index reset")
}
