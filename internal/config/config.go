package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/pickperfect/internal/db"
	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
)

// Config holds the pickperfect configuration shared by all binaries.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Recommend RecommendConfig `yaml:"recommend"`
	Events    EventsConfig    `yaml:"events"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider and its guards.
type EmbeddingConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Dimensions  int           `yaml:"dimensions"`
	TimeoutSec  int           `yaml:"timeout_sec"`
	RatePerSec  float64       `yaml:"rate_per_sec"`
	Burst       int           `yaml:"burst"`
	CacheTTLSec int           `yaml:"cache_ttl_sec"`
	CachePrefix string        `yaml:"cache_prefix"` // must not overlap catalog.key_prefix
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the embedding circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
	OpenTimeoutSec   int    `yaml:"open_timeout_sec"`
}

// CatalogConfig names the product index and its layout.
type CatalogConfig struct {
	IndexName      string  `yaml:"index_name"`
	KeyPrefix      string  `yaml:"key_prefix"`
	DistanceMetric string  `yaml:"distance_metric"`
	Algorithm      string  `yaml:"algorithm"`
	RatingMax      float64 `yaml:"rating_max"`
}

// IngestConfig holds stream consumer settings.
type IngestConfig struct {
	Stream           string `yaml:"stream"`
	Group            string `yaml:"group"`
	Consumer         string `yaml:"consumer"`
	BatchSize        int    `yaml:"batch_size"`
	BlockMs          int64  `yaml:"block_ms"`
	Concurrency      int    `yaml:"concurrency"`
	MaxAttempts      int    `yaml:"max_attempts"`
	RetryIntervalSec int    `yaml:"retry_interval_sec"`
}

// SearchConfig holds paging and nearby settings.
type SearchConfig struct {
	DefaultPageSize int     `yaml:"default_page_size"`
	MaxPageSize     int     `yaml:"max_page_size"`
	NearbyRadiusKm  float64 `yaml:"nearby_radius_km"`
	FallbackLon     float64 `yaml:"fallback_lon"`
	FallbackLat     float64 `yaml:"fallback_lat"`
}

// RecommendConfig tunes the recommender.
type RecommendConfig struct {
	DecayRate           float64 `yaml:"decay_rate"`
	ClickWeight         float64 `yaml:"click_weight"`
	AddToCartWeight     float64 `yaml:"add_to_cart_weight"`
	DefaultWeight       float64 `yaml:"default_weight"`
	HistoryLimit        int     `yaml:"history_limit"`
	Limit               int     `yaml:"limit"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	MaxCandidates       int     `yaml:"max_candidates"`
	NormalizePreference bool    `yaml:"normalize_preference"`
}

// EventsConfig bounds per-user event logs.
type EventsConfig struct {
	MaxLen int `yaml:"max_len"`
	TTLSec int `yaml:"ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, when present, is loaded first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands environment references in data, decodes it, applies
// defaults and validates the result.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	setInt(&c.HTTP.Port, 8000)
	setInt(&c.HTTP.ReadTimeoutSec, 10)
	setInt(&c.HTTP.WriteTimeoutSec, 30)
	setInt(&c.HTTP.ShutdownSec, 10)
	setInt(&c.Database.ReadinessTimeout, 10)

	vec := domain.DefaultVectorConfig()
	setString(&c.Embedding.Provider, "openai")
	setString(&c.Embedding.Model, vec.Model)
	setInt(&c.Embedding.Dimensions, vec.Dimensions)
	setInt(&c.Embedding.TimeoutSec, 10)
	setFloat(&c.Embedding.RatePerSec, 20)
	setInt(&c.Embedding.Burst, 5)
	setInt(&c.Embedding.CacheTTLSec, 86400)
	setString(&c.Embedding.CachePrefix, "cache:emb:")
	if c.Embedding.Breaker.FailureThreshold == 0 {
		c.Embedding.Breaker.FailureThreshold = 5
	}
	setInt(&c.Embedding.Breaker.OpenTimeoutSec, 30)

	cat := domain.DefaultCatalogConfig()
	setString(&c.Catalog.IndexName, cat.IndexName)
	setString(&c.Catalog.KeyPrefix, cat.KeyPrefix)
	setString(&c.Catalog.DistanceMetric, vec.DistanceMetric)
	setString(&c.Catalog.Algorithm, vec.Algorithm)
	setFloat(&c.Catalog.RatingMax, cat.RatingMax)

	setString(&c.Ingest.Stream, "products_stream")
	setString(&c.Ingest.Group, "product_indexers")
	setString(&c.Ingest.Consumer, defaultConsumer())
	setInt(&c.Ingest.BatchSize, 10)
	if c.Ingest.BlockMs <= 0 {
		c.Ingest.BlockMs = 5000
	}
	setInt(&c.Ingest.Concurrency, 4)
	setInt(&c.Ingest.MaxAttempts, 5)
	setInt(&c.Ingest.RetryIntervalSec, 30)

	setInt(&c.Search.DefaultPageSize, 20)
	setInt(&c.Search.MaxPageSize, 100)
	setFloat(&c.Search.NearbyRadiusKm, 50)
	if c.Search.FallbackLon == 0 && c.Search.FallbackLat == 0 {
		c.Search.FallbackLon, c.Search.FallbackLat = 77.209, 28.6139
	}

	rec := domain.DefaultRecommendConfig()
	setFloat(&c.Recommend.DecayRate, rec.DecayRate)
	setFloat(&c.Recommend.ClickWeight, rec.ClickWeight)
	setFloat(&c.Recommend.AddToCartWeight, rec.AddToCartWeight)
	setFloat(&c.Recommend.DefaultWeight, rec.DefaultWeight)
	setInt(&c.Recommend.HistoryLimit, rec.HistoryLimit)
	setInt(&c.Recommend.Limit, rec.Limit)
	setInt(&c.Recommend.CandidateMultiplier, rec.CandidateMultiplier)
	setInt(&c.Recommend.MaxCandidates, rec.MaxCandidates)

	setInt(&c.Events.MaxLen, 101)
	setInt(&c.Events.TTLSec, 259200)
}

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v <= 0 {
		*v = def
	}
}

// defaultConsumer names the stream consumer after the host so a restarted
// replica reclaims its own pending entries.
func defaultConsumer() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "indexer-" + uuid.NewString()
	}
	return "indexer-" + host
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}
	if _, err := db.ParseDistanceMetric(c.Catalog.DistanceMetric); err != nil {
		return fmt.Errorf("catalog.distance_metric: %w", err)
	}
	if _, err := db.ParseVectorAlgorithm(c.Catalog.Algorithm); err != nil {
		return fmt.Errorf("catalog.algorithm: %w", err)
	}
	if !strings.HasSuffix(c.Catalog.KeyPrefix, ":") {
		return fmt.Errorf("catalog.key_prefix must end with ':', got %q", c.Catalog.KeyPrefix)
	}
	if c.Embedding.CachePrefix == "" || strings.HasPrefix(c.Embedding.CachePrefix, c.Catalog.KeyPrefix) {
		return fmt.Errorf("embedding.cache_prefix %q must be set outside catalog.key_prefix %q",
			c.Embedding.CachePrefix, c.Catalog.KeyPrefix)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	if err := geo.ValidateCoordinates(c.Search.FallbackLat, c.Search.FallbackLon); err != nil {
		return fmt.Errorf("search.fallback: %w", err)
	}
	if c.Recommend.AddToCartWeight < c.Recommend.ClickWeight {
		return fmt.Errorf("recommend.add_to_cart_weight %g must not be below click_weight %g",
			c.Recommend.AddToCartWeight, c.Recommend.ClickWeight)
	}
	return nil
}

// Vector returns the embedding model settings.
func (c *Config) Vector() domain.VectorConfig {
	return domain.VectorConfig{
		Model:          c.Embedding.Model,
		Dimensions:     c.Embedding.Dimensions,
		DistanceMetric: c.Catalog.DistanceMetric,
		Algorithm:      c.Catalog.Algorithm,
	}
}

// CatalogLayout returns the catalog naming.
func (c *Config) CatalogLayout() domain.CatalogConfig {
	return domain.CatalogConfig{
		IndexName: c.Catalog.IndexName,
		KeyPrefix: c.Catalog.KeyPrefix,
		RatingMax: c.Catalog.RatingMax,
	}
}

// Recommender returns the recommender tuning.
func (c *Config) Recommender() domain.RecommendConfig {
	r := c.Recommend
	return domain.RecommendConfig{
		DecayRate:           r.DecayRate,
		ClickWeight:         r.ClickWeight,
		AddToCartWeight:     r.AddToCartWeight,
		DefaultWeight:       r.DefaultWeight,
		HistoryLimit:        r.HistoryLimit,
		Limit:               r.Limit,
		CandidateMultiplier: r.CandidateMultiplier,
		MaxCandidates:       r.MaxCandidates,
		NormalizePreference: r.NormalizePreference,
	}
}

// FallbackCenter returns the nearby-search fallback location.
func (c *Config) FallbackCenter() geo.Point {
	return geo.Point{Lon: c.Search.FallbackLon, Lat: c.Search.FallbackLat}
}

// Seconds converts a whole-seconds setting to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := env + ".yaml"

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
