// Package main is the entry point for the news bias API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/onnwee/newsbias/internal/api"
	"github.com/onnwee/newsbias/internal/binary"
	"github.com/onnwee/newsbias/internal/cache"
	"github.com/onnwee/newsbias/internal/config"
	"github.com/onnwee/newsbias/internal/health"
	"github.com/onnwee/newsbias/internal/image"
	"github.com/onnwee/newsbias/internal/middleware"
	"github.com/onnwee/newsbias/internal/news"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/resolve"
	"github.com/onnwee/newsbias/internal/stats"
	"github.com/onnwee/newsbias/internal/store"
	"github.com/onnwee/newsbias/internal/tracing"
)

const serviceName = "newsbias-api"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("News Bias API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Enabled:        cfg.TracingEnabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.OTLPExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
		InsecureMode:   !cfg.IsProduction(),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer shutdownWithTimeout(logger, "tracing", tp.Shutdown)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpMetrics := middleware.NewMetrics()
	resolveMetrics := resolve.NewMetrics()
	binaryMetrics := binary.NewMetrics()
	statsMetrics := stats.NewMetrics()
	cacheMetrics := cache.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register, resolveMetrics.Register, binaryMetrics.Register,
		statsMetrics.Register, cacheMetrics.Register,
	} {
		if err := register(reg); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	mongoClient, err := store.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer shutdownWithTimeout(logger, "mongodb", func(ctx context.Context) error {
		return mongoClient.Disconnect(ctx)
	})
	db := mongoClient.Database(cfg.MongoDatabase)

	var (
		articles store.ArticleLookup
		pg       *sql.DB
	)
	switch cfg.ArticleSource {
	case config.ArticleSourcePostgres:
		pg, err = store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open article database: %w", err)
		}
		defer pg.Close()
		articles = store.NewPostgresArticleLookup(pg, logger)
	default:
		articles = store.NewMongoArticleLookup(db, logger)
	}

	binaryStore, err := newBinaryStore(cfg, db, logger)
	if err != nil {
		return err
	}

	svc := news.NewService(news.Deps{
		Clusters: store.NewMongoClusterStore(db, logger),
		Articles: articles,
		Gateway:  binary.NewGateway(binaryStore, binary.GatewayConfig{Buckets: cfg.BinaryBuckets}, logger, binaryMetrics),
		Resolver: resolve.NewResolver(articles, cfg.ArticleProbes, logger, resolveMetrics),
		Engine:   stats.NewEngine(logger, statsMetrics),
		Placeholders: image.NewPlaceholders(image.PlaceholderConfig{
			BaseURL:     cfg.PlaceholderBaseURL,
			TitleLength: cfg.TitleTruncate,
		}),
		Thumbnails: image.NewThumbnailer(image.ThumbnailConfig{
			Quality:       85,
			MaxWidth:      cfg.ThumbnailMaxWidth,
			StripMetadata: true,
		}),
	}, news.Config{
		Limits: query.Limits{Default: cfg.DefaultPageLimit, Max: cfg.MaxPageLimit},
	}, logger)

	var (
		snapshots   cache.Store
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer redisClient.Close()
		snapshots = cache.NewRedisStore(redisClient, cfg.SnapshotTTL, logger, cacheMetrics)
		logger.Info("snapshot cache enabled", "ttl", cfg.SnapshotTTL)
	} else {
		logger.Info("snapshot cache disabled")
	}

	healthCfg := api.HealthHandlersConfig{MongoChecker: health.NewMongoChecker(mongoClient)}
	if pg != nil {
		healthCfg.DBChecker = health.NewDBChecker(pg)
	}
	if redisClient != nil {
		healthCfg.RedisChecker = health.NewRedisChecker(redisClient)
	}
	if cfg.BinaryBackend == config.BinaryBackendS3 {
		healthCfg.BinaryChecker = health.NewHTTPChecker("object_store", cfg.S3Endpoint)
	}

	mux := api.NewMux(
		api.NewNewsHandlers(svc, snapshots, logger),
		api.NewHealthHandlers(healthCfg),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      buildHandler(mux, cfg, logger, httpMetrics),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// buildHandler wraps mux in the middleware chain:
// RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS -> mux.
func buildHandler(mux http.Handler, cfg *config.Config, logger *slog.Logger, metrics *middleware.Metrics) http.Handler {
	handler := middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins})(mux)
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	return middleware.RequestID(handler)
}

// newBinaryStore opens the configured image backend.
func newBinaryStore(cfg *config.Config, db *mongo.Database, logger *slog.Logger) (binary.Store, error) {
	if cfg.BinaryBackend != config.BinaryBackendS3 {
		return binary.NewGridFSStore(db, logger), nil
	}
	s3Store, err := binary.NewS3Store(binary.S3Config{
		Bucket:          cfg.S3Bucket,
		KeyPrefix:       cfg.S3KeyPrefix,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		ChunkSize:       int64(cfg.S3ChunkSizeKB) * 1024,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 store: %w", err)
	}
	return s3Store, nil
}

// shutdownWithTimeout runs fn with a bounded context and logs failures.
func shutdownWithTimeout(logger *slog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("shutdown failed", "component", name, "error", err)
	}
}
