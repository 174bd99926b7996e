package domain

// VectorConfig holds embedding model settings shared by ingestion and queries.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
}

// DefaultVectorConfig returns the configuration for OpenAI text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-3-small",
		Dimensions:     1536,
		DistanceMetric: "COSINE",
		Algorithm:      "FLAT",
	}
}

// CatalogConfig names the store objects backing the product catalog.
type CatalogConfig struct {
	IndexName string
	KeyPrefix string
	RatingMax float64
}

// DefaultCatalogConfig returns the stock catalog layout.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		IndexName: "products_idx",
		KeyPrefix: "product:",
		RatingMax: 5,
	}
}

// Key returns the document key for a product id.
func (c CatalogConfig) Key(id string) string {
	return c.KeyPrefix + id
}

// RecommendConfig tunes the preference-vector recommender.
type RecommendConfig struct {
	DecayRate           float64 // per hour
	ClickWeight         float64
	AddToCartWeight     float64
	DefaultWeight       float64
	HistoryLimit        int
	Limit               int
	CandidateMultiplier int
	MaxCandidates       int
	NormalizePreference bool
}

// DefaultRecommendConfig returns the stock recommender tuning.
func DefaultRecommendConfig() RecommendConfig {
	return RecommendConfig{
		DecayRate:           0.1,
		ClickWeight:         2,
		AddToCartWeight:     5,
		DefaultWeight:       1,
		HistoryLimit:        101,
		Limit:               10,
		CandidateMultiplier: 3,
		MaxCandidates:       100,
	}
}

// Candidates is the KNN fan-out: Limit*CandidateMultiplier capped at MaxCandidates.
func (c RecommendConfig) Candidates() int {
	return min(c.Limit*c.CandidateMultiplier, c.MaxCandidates)
}
