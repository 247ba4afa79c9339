package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/personaverse/discovery/internal/engine"
)

// FeedAPI provides the feed generation, read and tracking methods
type FeedAPI struct {
	assembler *engine.Assembler
	tracker   *engine.Tracker
}

// NewFeedAPI creates a new feed API
func NewFeedAPI(assembler *engine.Assembler, tracker *engine.Tracker) *FeedAPI {
	return &FeedAPI{
		assembler: assembler,
		tracker:   tracker,
	}
}

// GenerateFeed handles discovery.generate_feed
func (f *FeedAPI) GenerateFeed(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, engine.BadRequestf("invalid parameters")
	}

	userID := paramInt64(p, "user_id")
	if userID == 0 {
		return nil, engine.BadRequestf("missing required parameter: user_id")
	}

	opts := engine.DefaultFeedOptions()
	opts.Limit = paramInt(p, "limit", 0)
	opts.IncludePromoted = paramBool(p, "include_promoted", true)
	opts.RefreshExisting = paramBool(p, "refresh_existing", false)
	opts.Categories = paramStringSlice(p, "categories")

	batch, err := f.assembler.GenerateFeed(ctx.Request.Context(), userID, opts)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"batch_id":     batch.BatchID,
		"generated_at": batch.GeneratedAt,
		"regenerated":  batch.Regenerated,
		"items":        batch.Items,
	}, nil
}

// GetFeed handles discovery.get_feed
func (f *FeedAPI) GetFeed(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, engine.BadRequestf("invalid parameters")
	}

	userID := paramInt64(p, "user_id")
	if userID == 0 {
		return nil, engine.BadRequestf("missing required parameter: user_id")
	}
	limit := paramInt(p, "limit", 0)
	offset := paramInt(p, "offset", 0)

	items, err := f.assembler.GetFeed(ctx.Request.Context(), userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// TrackInteraction handles discovery.track_interaction. It never returns an
// error object: every failure resolves to success=false so client analytics
// cannot break the UI.
func (f *FeedAPI) TrackInteraction(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := parseParams(params)
	if err != nil {
		return gin.H{"success": false}, nil
	}

	userID := paramInt64(p, "user_id")
	feedItemID := paramInt64(p, "feed_item_id")
	interaction := paramString(p, "type")
	if userID == 0 || feedItemID == 0 {
		return gin.H{"success": false}, nil
	}

	ok := f.tracker.TrackInteraction(ctx.Request.Context(), userID, feedItemID, interaction)
	return gin.H{"success": ok}, nil
}

// GetFeedMetrics handles discovery.get_feed_metrics
func (f *FeedAPI) GetFeedMetrics(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, engine.BadRequestf("invalid parameters")
	}

	userID := paramInt64(p, "user_id")
	if userID == 0 {
		return nil, engine.BadRequestf("missing required parameter: user_id")
	}
	timeframe := paramString(p, "timeframe")
	if timeframe == "" {
		timeframe = "7d"
	}

	return f.assembler.GetFeedMetrics(ctx.Request.Context(), userID, timeframe)
}
