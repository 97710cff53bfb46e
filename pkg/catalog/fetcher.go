// Package catalog fetches the product catalog, choosing between a single
// rich query and a two-phase enumerate-then-detail sequence when the rich
// query exceeds the upstream cost limit.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/graphql"
	"github.com/Sternrassler/catalog-feed/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Strategy names the fetch path a result came from.
type Strategy string

const (
	StrategyRich     Strategy = "rich"
	StrategyTwoPhase Strategy = "two_phase"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fetches_total",
		Help: "Total catalog fetches by strategy",
	}, []string{"strategy"})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_strategy_fallbacks_total",
		Help: "Total fallbacks from the rich query to the two-phase strategy",
	})

	detailFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_detail_failures_total",
		Help: "Total per-product detail fetches that failed",
	})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_fetch_duration_seconds",
		Help:    "Catalog fetch duration in seconds by strategy",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"strategy"})
)

// ErrProductNotFound is recorded when a detail query returns no product.
var ErrProductNotFound = errors.New("product not found")

// Config holds fetcher configuration.
type Config struct {
	// Schedule paces pages and per-product detail calls.
	Schedule pagination.Schedule

	// ForceTwoPhase skips the rich query.
	ForceTwoPhase bool
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{Schedule: pagination.DefaultSchedule()}
}

// DetailFailure records a product whose detail enrichment failed.
type DetailFailure struct {
	ProductID string `json:"productId"`
	Handle    string `json:"handle"`
	Error     string `json:"error"`

	// NotFound is set when the product vanished between the two phases.
	NotFound bool `json:"notFound"`
}

// Result is a fetched catalog.
type Result struct {
	Products  []Product
	Strategy  Strategy
	Failures  []DetailFailure
	Truncated bool
}

// Fetcher loads the product catalog.
type Fetcher struct {
	exec   pagination.Executor
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a catalog fetcher.
func NewFetcher(exec pagination.Executor, cfg Config, logger zerolog.Logger) *Fetcher {
	return &Fetcher{exec: exec, config: cfg, logger: logger}
}

// Fetch returns the whole catalog. A cost-limit error on the rich query
// switches to the two-phase strategy; every other error is returned.
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	if !f.config.ForceTwoPhase {
		res, err := f.fetchRich(ctx)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, graphql.ErrCostExceeded) {
			return nil, err
		}
		fallbacksTotal.Inc()
		f.logger.Warn().
			Err(err).
			Str("strategy", string(StrategyTwoPhase)).
			Msg("Rich query exceeds cost limit - switching to two-phase fetch")
	}
	return f.fetchTwoPhase(ctx)
}

func (f *Fetcher) fetchRich(ctx context.Context) (*Result, error) {
	start := time.Now()
	p := pagination.New(f.exec, ProductsQuery, nil, pagination.ConnectionAt[productNode]("products"), f.config.Schedule)

	var products []Product
	for node, err := range p.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("fetch products: %w", err)
		}
		products = append(products, node.product())
	}

	fetchesTotal.WithLabelValues(string(StrategyRich)).Inc()
	fetchDuration.WithLabelValues(string(StrategyRich)).Observe(time.Since(start).Seconds())
	f.logger.Info().
		Str("strategy", string(StrategyRich)).
		Int("products", len(products)).
		Int("pages", p.Pages()).
		Msg("Catalog fetched")

	return &Result{
		Products:  products,
		Strategy:  StrategyRich,
		Truncated: p.Truncated(),
	}, nil
}

func (f *Fetcher) fetchTwoPhase(ctx context.Context) (*Result, error) {
	start := time.Now()
	p := pagination.New(f.exec, ProductIdentitiesQuery, nil, pagination.ConnectionAt[identity]("products"), f.config.Schedule)

	ids, err := p.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate products: %w", err)
	}

	res := &Result{
		Products:  make([]Product, 0, len(ids)),
		Strategy:  StrategyTwoPhase,
		Truncated: p.Truncated(),
	}

	for i, id := range ids {
		if i > 0 {
			if err := pagination.Sleep(ctx, f.config.Schedule.ItemDelay); err != nil {
				return nil, err
			}
		}

		product, err := f.fetchDetail(ctx, id.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			detailFailuresTotal.Inc()
			f.logger.Warn().
				Err(err).
				Str("entity_id", id.ID).
				Str("handle", id.Handle).
				Msg("Product detail fetch failed - keeping identity fields only")
			res.Failures = append(res.Failures, DetailFailure{
				ProductID: id.ID,
				Handle:    id.Handle,
				Error:     err.Error(),
				NotFound:  errors.Is(err, ErrProductNotFound),
			})
			res.Products = append(res.Products, id.product())
			continue
		}
		res.Products = append(res.Products, product)
	}

	fetchesTotal.WithLabelValues(string(StrategyTwoPhase)).Inc()
	fetchDuration.WithLabelValues(string(StrategyTwoPhase)).Observe(time.Since(start).Seconds())
	f.logger.Info().
		Str("strategy", string(StrategyTwoPhase)).
		Int("products", len(res.Products)).
		Int("detail_failures", len(res.Failures)).
		Msg("Catalog fetched")

	return res, nil
}

// FetchProduct loads one product's detail by id.
func (f *Fetcher) FetchProduct(ctx context.Context, id string) (Product, error) {
	return f.fetchDetail(ctx, id)
}

func (f *Fetcher) fetchDetail(ctx context.Context, id string) (Product, error) {
	env, err := pagination.Do(ctx, f.exec, ProductDetailQuery, map[string]any{"id": id}, f.config.Schedule)
	if err != nil {
		return Product{}, err
	}

	var data struct {
		Product *productNode `json:"product"`
	}
	if err := env.Decode(&data); err != nil {
		return Product{}, fmt.Errorf("decode product %s: %w", id, err)
	}
	if data.Product == nil {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return data.Product.product(), nil
}
