package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/personaverse/discovery/internal/cache"
	"github.com/personaverse/discovery/internal/db"
	"github.com/personaverse/discovery/internal/engine"
	"github.com/personaverse/discovery/pkg/config"
	"github.com/personaverse/discovery/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	db      *db.DB
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(cfg *config.Config, database *db.DB, redisCache *cache.Cache) *Router {
	handler := NewJSONRPCHandler()
	router := &Router{
		handler: handler,
		db:      database,
		cache:   redisCache,
		logger:  logging.GetLogger().With(zap.String("component", "api-router")),
	}

	// Register all API methods
	router.registerMethods(cfg)

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods(cfg *config.Config) {
	repo := db.NewRepository(r.db.DB)

	personas := db.NewPersonaRepository(repo)
	metrics := db.NewMetricsRepository(repo)
	engagement := db.NewEngagementRepository(repo)
	social := db.NewSocialRepository(repo)
	feed := db.NewFeedRepository(repo)

	generators := engine.NewGenerators(personas, metrics, engagement, social, feed)
	assembler := engine.NewAssembler(generators, feed, social, cfg.Feed)
	tracker := engine.NewTracker(feed, engagement)
	discovery := engine.NewDiscovery(personas, metrics, social, generators)

	feedAPI := NewFeedAPI(assembler, tracker)
	discoveryAPI := NewDiscoveryAPI(discovery, r.cache)

	r.handler.RegisterMethod("discovery.generate_feed", feedAPI.GenerateFeed)
	r.handler.RegisterMethod("discovery.get_feed", feedAPI.GetFeed)
	r.handler.RegisterMethod("discovery.track_interaction", feedAPI.TrackInteraction)
	r.handler.RegisterMethod("discovery.get_feed_metrics", feedAPI.GetFeedMetrics)

	r.handler.RegisterMethod("discovery.get_trending_personas", discoveryAPI.GetTrendingPersonas)
	r.handler.RegisterMethod("discovery.search_personas", discoveryAPI.SearchPersonas)
	r.handler.RegisterMethod("discovery.get_personalized_recommendations", discoveryAPI.GetPersonalizedRecommendations)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "discovery-api",
	})
}
