package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/catalog-feed/internal/config"
	"github.com/Sternrassler/catalog-feed/internal/server"
	"github.com/Sternrassler/catalog-feed/pkg/cache"
	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/export"
	"github.com/Sternrassler/catalog-feed/pkg/graphql"
	"github.com/Sternrassler/catalog-feed/pkg/logging"
	"github.com/Sternrassler/catalog-feed/pkg/media"
	"github.com/Sternrassler/catalog-feed/pkg/ratelimit"
	"github.com/Sternrassler/catalog-feed/pkg/transform"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Setup(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	handler, err := newHandler(ctx, cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble service")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store()).
			Msg("Starting catalog feed server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}

// newHandler wires the pipeline and returns the HTTP router. An unreachable
// Redis is tolerated: cost state falls back to process memory and cache
// reads fall through to the upstream.
func newHandler(ctx context.Context, cfg config.Config, redisClient *redis.Client) (http.Handler, error) {
	trackerRedis := redisClient
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, cost state kept in memory")
		trackerRedis = nil
	} else {
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	gqlCfg := cfg.GraphQL()
	gqlCfg.Tracker = ratelimit.NewTracker(trackerRedis, cfg.Store(), logging.NewLogger("ratelimit"))
	client, err := graphql.New(gqlCfg)
	if err != nil {
		return nil, err
	}

	mediaCatalog := media.NewCatalog(client, cfg.PaginationSchedule(), logging.NewLogger("media"))
	nodes := media.NewNodeFetcher(client, cfg.PaginationSchedule(), cfg.Media.Namespace, cfg.Media.DefaultType)
	products := catalog.NewFetcher(client, cfg.Catalog(), logging.NewLogger("catalog"))
	pipeline := transform.NewPipeline(mediaCatalog, products, nodes, logging.NewLogger("transform"))

	manager := cache.NewManager(redisClient)
	feed := transform.NewCachedRunner(pipeline, manager, cfg.Store(), cfg.Cache.TTL, logging.NewLogger("feed"))

	deps := server.Deps{
		Feed:   feed,
		Media:  mediaCatalog,
		Store:  manager,
		Logger: logging.NewLogger("http"),
	}
	exporter, err := export.NewS3Exporter(ctx, cfg.S3(), logging.NewLogger("export"))
	switch {
	case err == nil:
		deps.Exporter = exporter
	case errors.Is(err, export.ErrDisabled):
		log.Info().Msg("S3 export disabled")
	default:
		return nil, err
	}

	srv := server.New(server.Config{
		APIKey:         cfg.Server.APIKey,
		StoreName:      cfg.Store(),
		RequestTimeout: cfg.Server.RequestTimeout,
	}, deps)
	return srv.Router(), nil
}
