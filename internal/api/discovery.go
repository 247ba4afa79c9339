package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/personaverse/discovery/internal/cache"
	"github.com/personaverse/discovery/internal/engine"
)

// trendingCacheTTL matches the aggregator cadence order of magnitude: the
// list only changes when a recompute lands.
const trendingCacheTTL = 300 * time.Second

// DiscoveryAPI provides the ranked read methods: trending, search and
// personalized recommendations.
type DiscoveryAPI struct {
	discovery *engine.Discovery
	cache     *cache.Cache
}

// NewDiscoveryAPI creates a new discovery API
func NewDiscoveryAPI(discovery *engine.Discovery, redisCache *cache.Cache) *DiscoveryAPI {
	return &DiscoveryAPI{
		discovery: discovery,
		cache:     redisCache,
	}
}

// GetTrendingPersonas handles discovery.get_trending_personas
func (d *DiscoveryAPI) GetTrendingPersonas(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, engine.BadRequestf("invalid parameters")
	}

	timeframe := paramString(p, "timeframe")
	if timeframe == "" {
		timeframe = "24h"
	}
	limit := paramInt(p, "limit", 20)
	categories := paramStringSlice(p, "categories")

	cacheKey := cache.HashKey(
		"get_trending_personas",
		timeframe,
		fmt.Sprintf("%d", limit),
		strings.Join(categories, ","),
	)
	if d.cache != nil {
		var cached []engine.RankedPersona
		if err := d.cache.GetJSON(cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	result, err := d.discovery.TrendingPersonas(ctx.Request.Context(), timeframe, limit, categories)
	if err != nil {
		return nil, err
	}

	// Serving the result matters more than caching it
	if d.cache != nil {
		_ = d.cache.SetJSON(cacheKey, result, trendingCacheTTL)
	}
	return result, nil
}

// SearchPersonas handles discovery.search_personas
func (d *DiscoveryAPI) SearchPersonas(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, engine.BadRequestf("invalid parameters")
	}

	query := paramString(p, "query")
	if query == "" {
		return nil, engine.BadRequestf("missing required parameter: query")
	}
	userID := paramInt64(p, "user_id") // optional, personalizes ranking
	limit := paramInt(p, "limit", 20)
	categories := paramStringSlice(p, "categories")

	return d.discovery.SearchPersonas(ctx.Request.Context(), query, userID, limit, categories)
}

// GetPersonalizedRecommendations handles discovery.get_personalized_recommendations
func (d *DiscoveryAPI) GetPersonalizedRecommendations(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, engine.BadRequestf("invalid parameters")
	}

	userID := paramInt64(p, "user_id")
	if userID == 0 {
		return nil, engine.BadRequestf("missing required parameter: user_id")
	}
	limit := paramInt(p, "limit", 20)
	categories := paramStringSlice(p, "categories")

	return d.discovery.Recommendations(ctx.Request.Context(), userID, limit, categories)
}
