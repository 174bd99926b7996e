// Package app assembles the pieces shared by the pickperfect binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/config"
	dbRedis "github.com/kailas-cloud/pickperfect/internal/db/redis"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	logpkg "github.com/kailas-cloud/pickperfect/internal/logger"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
	"github.com/kailas-cloud/pickperfect/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/pickperfect/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/pickperfect/internal/usecase/embedding"
)

// Bootstrap loads the config for the current ENV and builds the logger.
func Bootstrap(service string) (config.Config, *zap.Logger, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level, service)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	logger = logger.With(zap.String("env", env))
	return cfg, logger, nil
}

// OpenStore connects to Redis and waits until it answers PING.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := store.WaitForReady(ctx, config.Seconds(cfg.ReadinessTimeout)); err != nil {
		store.Close()
		return nil, fmt.Errorf("store not ready: %w", err)
	}
	return store, nil
}

// Embedders is the assembled embedding chain.
type Embedders struct {
	// Guarded reports breaker state and provider reachability for health checks.
	Guarded *embeddinguc.GuardedEmbedder
	// Cached is Guarded wrapped in the Redis-backed cache. Query embedding only;
	// the indexer embeds each product once and uses Guarded.
	Cached domain.Embedder
}

// BuildEmbedders assembles the chain: OpenAI -> Guarded -> Cached.
// The cache sits outermost so hits skip the limiter and breaker.
func BuildEmbedders(cfg *config.Config, store *dbRedis.Store, logger *zap.Logger) Embedders {
	emb := cfg.Embedding

	provider := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     emb.APIKey,
		BaseURL:    emb.BaseURL,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		Provider:   emb.Provider,
		Logger:     logger,
	})

	guarded := embeddinguc.NewGuardedEmbedder(provider, embeddinguc.GuardConfig{
		Provider:         emb.Provider,
		Model:            emb.Model,
		Dimensions:       emb.Dimensions,
		Timeout:          config.Seconds(emb.TimeoutSec),
		RatePerSec:       emb.RatePerSec,
		Burst:            emb.Burst,
		FailureThreshold: emb.Breaker.FailureThreshold,
		OpenTimeout:      config.Seconds(emb.Breaker.OpenTimeoutSec),
	}, logger)

	cached := embcache.New(guarded, store, embcache.Config{
		KeyPrefix:  emb.CachePrefix,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		TTL:        config.Seconds(emb.CacheTTLSec),
	}, metrics.EmbeddingCacheTotal, logger)

	logger.Info("Embedders created",
		zap.String("provider", emb.Provider),
		zap.String("model", emb.Model),
		zap.Int("dimensions", emb.Dimensions),
	)
	return Embedders{Guarded: guarded, Cached: cached}
}
