package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/app"
	"github.com/kailas-cloud/pickperfect/internal/config"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
	catalogrepo "github.com/kailas-cloud/pickperfect/internal/repository/catalog"
	eventrepo "github.com/kailas-cloud/pickperfect/internal/repository/event"
	productrepo "github.com/kailas-cloud/pickperfect/internal/repository/product"
	searchrepo "github.com/kailas-cloud/pickperfect/internal/repository/search"
	chiTransport "github.com/kailas-cloud/pickperfect/internal/transport/chi"
	"github.com/kailas-cloud/pickperfect/internal/version"
	eventuc "github.com/kailas-cloud/pickperfect/internal/usecase/event"
	healthuc "github.com/kailas-cloud/pickperfect/internal/usecase/health"
	"github.com/kailas-cloud/pickperfect/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/pickperfect/internal/usecase/search"
)

func main() {
	cfg, logger, err := app.Bootstrap("pickperfect")
	if err != nil {
		panic(err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pickperfect API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()
	store, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to database")

	// Registered explicitly, no init()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCatalogMetrics()
	metrics.RegisterHTTPMetrics()

	emb := app.BuildEmbedders(&cfg, store, logger)

	cat := cfg.CatalogLayout()
	catalogRepo, err := catalogrepo.New(store, cat, cfg.Vector())
	if err != nil {
		logger.Fatal("Invalid index layout", zap.Error(err))
	}
	productRepo := productrepo.New(store, cat)
	searchRepo := searchrepo.New(store, cat, logger.Named("search"))
	eventRepo := eventrepo.New(store, eventrepo.Config{
		MaxLen: cfg.Events.MaxLen,
		TTL:    config.Seconds(cfg.Events.TTLSec),
	})

	searchSvc := searchuc.New(searchRepo, productRepo, eventRepo, emb.Cached, searchuc.Config{
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
		RatingMax:       cat.RatingMax,
		NearbyRadiusKm:  cfg.Search.NearbyRadiusKm,
		FallbackCenter:  cfg.FallbackCenter(),
		SemanticK:       searchuc.DefaultConfig().SemanticK,
	}, logger.Named("search"))
	recommender := recommend.New(eventRepo, productRepo, searchSvc,
		cfg.Recommender(), cfg.Embedding.Dimensions, logger.Named("recommend"))
	tracker := eventuc.NewTracker(eventRepo, logger.Named("events"))
	healthSvc := healthuc.New(store, emb.Guarded, catalogRepo, logger.Named("health"))

	server := chiTransport.NewServer(searchSvc, recommender, tracker, healthSvc, chiTransport.Config{
		RatingMax:       cat.RatingMax,
		MaxPageSize:     cfg.Search.MaxPageSize,
		NearbyRadiusKm:  cfg.Search.NearbyRadiusKm,
		DefaultLocation: cfg.FallbackCenter(),
		APIKeys:         cfg.Auth.APIKeys,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadTimeout:       config.Seconds(cfg.HTTP.ReadTimeoutSec),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.Seconds(cfg.HTTP.WriteTimeoutSec),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
