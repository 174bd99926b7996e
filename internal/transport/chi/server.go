package chi

import (
	"net/http"
	"strconv"
	"strings"

	chirouter "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pickperfect/internal/domain"
	"github.com/kailas-cloud/pickperfect/internal/domain/geo"
	logpkg "github.com/kailas-cloud/pickperfect/internal/logger"
	"github.com/kailas-cloud/pickperfect/internal/metrics"
	healthuc "github.com/kailas-cloud/pickperfect/internal/usecase/health"
)

const embeddingTokensHeader = "X-Embedding-Tokens"

// Config bounds request parameters.
type Config struct {
	RatingMax       float64
	MaxPageSize     int
	DefaultTopN     int
	NearbyRadiusKm  float64
	DefaultLocation geo.Point
	APIKeys         []string
}

// Server serves the catalog HTTP API.
type Server struct {
	products      ProductSearcher
	recommender   Recommender
	events        EventTracker
	health        HealthChecker
	cfg           Config
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	products ProductSearcher,
	recommender Recommender,
	events EventTracker,
	health HealthChecker,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = 10
	}
	return &Server{
		products:      products,
		recommender:   recommender,
		events:        events,
		health:        health,
		cfg:           cfg,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes builds the router with the middleware stack.
func (s *Server) Routes() http.Handler {
	r := chirouter.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(CanonicalLog(s.logger))
	r.Use(BearerAuthMiddleware(s.cfg.APIKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chirouter.Router) {
		r.Route("/products", func(r chirouter.Router) {
			r.Post("/search", s.SearchProducts)
			r.Post("/semantic", s.SemanticSearch)
			r.Post("/filter", s.FilterProducts)
			r.Get("/trending", s.TrendingProducts)
			r.Get("/near-by", s.NearbyProducts)
		})
		r.Post("/events", s.TrackEvent)
		r.Get("/recommendations", s.Recommendations)
		r.Get("/categories/trending", s.TrendingCategories)
	})
	return r
}

// SearchProducts handles POST /products/search.
func (s *Server) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	c := req.criteria()
	if err := c.Validate(s.cfg.RatingMax); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if c.Limit > s.cfg.MaxPageSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"limit must be at most "+strconv.Itoa(s.cfg.MaxPageSize))
		return
	}

	writeJSON(w, http.StatusOK, productList(s.products.Search(r.Context(), c)))
}

// SemanticSearch handles POST /products/semantic.
func (s *Server) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	var req SemanticRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.K < 0 || req.K > s.cfg.MaxPageSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"k must be between 0 and "+strconv.Itoa(s.cfg.MaxPageSize))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	products := s.products.SemanticSearch(ctx, req.Query, req.K)

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, productList(products))
}

// FilterProducts handles POST /products/filter.
func (s *Server) FilterProducts(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !s.decode(w, r, &req) {
		return
	}

	f := req.toDomain()
	c := f.Criteria()
	if err := c.Validate(s.cfg.RatingMax); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, productList(s.products.Filter(r.Context(), f)))
}

// TrendingProducts handles GET /products/trending.
func (s *Server) TrendingProducts(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limitParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, productList(s.products.Trending(r.Context(), limit)))
}

// NearbyProducts handles GET /products/near-by. Without coordinates the
// default location is used.
func (s *Server) NearbyProducts(w http.ResponseWriter, r *http.Request) {
	var lon, lat *float64
	radius := s.cfg.NearbyRadiusKm
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "lon", q, &lon); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid lon")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "lat", q, &lat); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid lat")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "radius_km", q, &radius); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid radius_km")
		return
	}

	if (lon == nil) != (lat == nil) {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "lon and lat must be given together")
		return
	}
	center := s.cfg.DefaultLocation
	if lon != nil {
		center = geo.Point{Lon: *lon, Lat: *lat}
	}
	if err := center.Validate(); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if radius <= 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "radius_km must be positive")
		return
	}

	writeJSON(w, http.StatusOK, productList(s.products.Nearby(r.Context(), center.Lon, center.Lat, radius)))
}

// TrackEvent handles POST /events.
func (s *Server) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.events.Track(r.Context(), req.toDomain()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Event tracked successfully"})
}

// Recommendations handles GET /recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	var userID string
	if err := runtime.BindQueryParameter("form", true, true, "user_id", r.URL.Query(), &userID); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "user_id is required")
		return
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "user_id is required")
		return
	}

	writeJSON(w, http.StatusOK, productList(s.recommender.Recommend(r.Context(), userID)))
}

// TrendingCategories handles GET /categories/trending. Store failures
// yield an empty list.
func (s *Server) TrendingCategories(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limitParam(w, r)
	if !ok {
		return
	}

	members, err := s.events.TrendingCategories(r.Context(), limit)
	if err != nil {
		s.log(r).Error("Failed to read trending categories", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: categoryNames(members)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// limitParam binds ?limit= within [1, MaxPageSize], defaulting to DefaultTopN.
func (s *Server) limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := s.cfg.DefaultTopN
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
		return 0, false
	}
	if limit < 1 || limit > s.cfg.MaxPageSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"limit must be between 1 and "+strconv.Itoa(s.cfg.MaxPageSize))
		return 0, false
	}
	return limit, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// log prefers the request-scoped logger set by CanonicalLog.
func (s *Server) log(r *http.Request) *zap.Logger {
	if l := logpkg.From(r.Context()); l != nil && l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return s.logger
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set(embeddingTokensHeader, strconv.Itoa(usage.TotalTokens))
	}
}
