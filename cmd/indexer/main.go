package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/app"
	"github.com/kailas-cloud/pickperfect/internal/config"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
	catalogrepo "github.com/kailas-cloud/pickperfect/internal/repository/catalog"
	productrepo "github.com/kailas-cloud/pickperfect/internal/repository/product"
	streamrepo "github.com/kailas-cloud/pickperfect/internal/repository/stream"
	"github.com/kailas-cloud/pickperfect/internal/usecase/ingest"
	"github.com/kailas-cloud/pickperfect/internal/version"
)

func main() {
	cfg, logger, err := app.Bootstrap("indexer")
	if err != nil {
		panic(err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger = logger.With(zap.String("consumer", cfg.Ingest.Consumer))
	logger.Info("Starting indexer",
		zap.String("version", version.Version),
		zap.String("stream", cfg.Ingest.Stream),
		zap.String("group", cfg.Ingest.Group),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	defer store.Close()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCatalogMetrics()

	emb := app.BuildEmbedders(&cfg, store, logger)

	cat := cfg.CatalogLayout()
	catalogRepo, err := catalogrepo.New(store, cat, cfg.Vector())
	if err != nil {
		logger.Fatal("Invalid index layout", zap.Error(err))
	}

	stream := streamrepo.New(store, streamrepo.Config{
		Stream:    cfg.Ingest.Stream,
		Group:     cfg.Ingest.Group,
		Consumer:  cfg.Ingest.Consumer,
		BatchSize: cfg.Ingest.BatchSize,
		BlockMs:   cfg.Ingest.BlockMs,
	})

	pipeline := ingest.New(stream, catalogRepo, productrepo.New(store, cat), emb.Guarded, ingest.Config{
		Dimensions:    cfg.Embedding.Dimensions,
		RatingMax:     cat.RatingMax,
		Concurrency:   cfg.Ingest.Concurrency,
		MaxAttempts:   cfg.Ingest.MaxAttempts,
		RetryInterval: config.Seconds(cfg.Ingest.RetryIntervalSec),
	}, logger)

	if err := pipeline.Setup(ctx); err != nil {
		logger.Fatal("Ingestion setup failed", zap.Error(err))
	}

	if err := pipeline.Run(ctx); err != nil {
		logger.Error("Indexer stopped", zap.Error(err))
		stop()
		os.Exit(1)
	}
	logger.Info("Indexer stopped gracefully")
}
