// Package transform turns the fetched catalog into feed records with media
// references resolved, and reports per-item outcomes of each run.
package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/logging"
	"github.com/Sternrassler/catalog-feed/pkg/media"
	"github.com/Sternrassler/catalog-feed/pkg/resolve"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_transform_runs_total",
		Help: "Total transform runs by result",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_transform_run_duration_seconds",
		Help:    "Transform run duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_transform_items_total",
		Help: "Total transformed items by status",
	}, []string{"status"})
)

// MediaSource supplies the global media index.
type MediaSource interface {
	GetOrBuild(ctx context.Context) *media.Index
}

// CatalogSource supplies the raw catalog.
type CatalogSource interface {
	Fetch(ctx context.Context) (*catalog.Result, error)
}

// Pipeline orchestrates a transform run. It holds no retry or resolution
// logic of its own.
type Pipeline struct {
	media   MediaSource
	catalog CatalogSource
	fetcher resolve.Fetcher
	logger  zerolog.Logger
}

// NewPipeline creates a pipeline. fetcher backs direct media lookups and may
// be nil.
func NewPipeline(mediaSource MediaSource, catalogSource CatalogSource, fetcher resolve.Fetcher, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		media:   mediaSource,
		catalog: catalogSource,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Run builds the media index, fetches the catalog, and resolves every
// reference field. It returns either a complete Output or an error.
func (p *Pipeline) Run(ctx context.Context) (*Output, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := logging.WithRun(p.logger, report.RunID)
	logger.Info().Msg("Transform run started")

	global := p.media.GetOrBuild(ctx)
	report.MediaIndexed = global.Assets()

	res, err := p.catalog.Fetch(ctx)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("Transform run failed")
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	report.Strategy = res.Strategy
	report.Truncated = res.Truncated

	failures := make(map[string]catalog.DetailFailure, len(res.Failures))
	for _, f := range res.Failures {
		failures[f.ProductID] = f
	}

	resolver := resolve.New(p.fetcher, logger)
	records := make([]Record, 0, len(res.Products))

	for _, product := range res.Products {
		if err := ctx.Err(); err != nil {
			runsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}

		item := ItemResult{ID: product.ID, Handle: product.Handle, Status: StatusSuccess}

		record, unresolved := p.transform(ctx, resolver, product, global)
		failure, failed := failures[product.ID]
		if failed {
			record.DetailMissing = true
		}
		records = append(records, record)

		item.Unresolved = unresolved
		switch {
		case failed && failure.NotFound:
			// The product vanished between phases; only its identity is kept.
			item.Status = StatusFailed
			item.Reason = failure.Error
		case record.DetailMissing:
			item.Status = StatusDegraded
			item.Reason = "detail unavailable"
			if failed {
				item.Reason = failure.Error
			}
		case unresolved > 0:
			item.Status = StatusDegraded
			item.Reason = fmt.Sprintf("%d unresolved media references", unresolved)
		}
		report.add(item)
		itemsTotal.WithLabelValues(string(item.Status)).Inc()
	}

	report.Counts.DirectFetches = resolver.Fetched()
	report.FinishedAt = time.Now().UTC()

	result := "success"
	if report.Degraded() {
		result = "degraded"
	}
	runsTotal.WithLabelValues(result).Inc()
	runDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	logger.Info().
		Str("strategy", string(report.Strategy)).
		Int("products", report.Counts.Products).
		Int("degraded", report.Counts.Degraded).
		Int("failed", report.Counts.Failed).
		Int("unresolved", report.Counts.Unresolved).
		Bool("truncated", report.Truncated).
		Msg("Transform run finished")

	return &Output{Records: records, Report: report}, nil
}

// transform assembles the record of one product and returns it with the
// number of unresolved references.
func (p *Pipeline) transform(ctx context.Context, resolver *resolve.Resolver, product catalog.Product, global *media.Index) (Record, int) {
	local := LocalIndex(product)
	unresolved := 0

	resolveAll := func(fields []catalog.Metafield) []resolve.ResolvedField {
		out := make([]resolve.ResolvedField, 0, len(fields))
		for _, m := range fields {
			rf := resolver.Resolve(ctx, m.Field(), local, global)
			unresolved += rf.Misses
			out = append(out, rf)
		}
		return out
	}

	mediaRefs := make([]MediaRef, 0, len(product.Media))
	for _, n := range product.Media {
		if n.Asset == nil {
			continue
		}
		mediaRefs = append(mediaRefs, MediaRef{
			ID:   n.Asset.CanonicalID(),
			Type: n.Asset.Kind(),
			URL:  n.Asset.URL(),
		})
	}

	variants := make([]VariantRecord, 0, len(product.Variants))
	for _, v := range product.Variants {
		variants = append(variants, VariantRecord{
			ID:         v.ID,
			Title:      v.Title,
			SKU:        v.SKU,
			Price:      v.Price,
			Metafields: resolveAll(v.Metafields),
		})
	}

	record := Record{
		ID:            product.ID,
		Handle:        product.Handle,
		Title:         product.Title,
		Description:   product.Description,
		Vendor:        product.Vendor,
		ProductType:   product.ProductType,
		Status:        product.Status,
		Tags:          orEmpty(product.Tags),
		Images:        orEmpty(product.Images),
		Media:         mediaRefs,
		Metafields:    resolveAll(product.Metafields),
		Variants:      variants,
		DetailMissing: !product.Detailed,
	}
	return record, unresolved
}

// LocalIndex indexes a product's own images and media.
func LocalIndex(product catalog.Product) *media.Index {
	idx := media.NewIndex()
	for _, img := range product.Images {
		idx.Add(img.ID, img.URL)
	}
	for _, n := range product.Media {
		if n.Asset != nil {
			idx.Add(n.Asset.CanonicalID(), n.Asset.URL())
		}
	}
	return idx
}
