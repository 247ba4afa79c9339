package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/personaverse/discovery/internal/models"
	"github.com/personaverse/discovery/pkg/logging"
)

// Tracker records per-feed-item outcomes and appends them to the engagement
// event log for the aggregator's next cadence. Tracking failures never reach
// the caller: client analytics must not be able to break the user experience.
type Tracker struct {
	feed   FeedStore
	events EngagementStore
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates an interaction tracker
func NewTracker(feed FeedStore, events EngagementStore) *Tracker {
	return &Tracker{
		feed:   feed,
		events: events,
		logger: logging.GetLogger().With(zap.String("component", "tracker")),
		now:    time.Now,
	}
}

// interactionEvents maps outcome flags to logged event types
var interactionEvents = map[string]string{
	"viewed":    models.EventView,
	"clicked":   models.EventClick,
	"liked":     models.EventLike,
	"shared":    models.EventShare,
	"dismissed": models.EventDismiss,
}

// TrackInteraction sets the named outcome flag on the feed item. Flags only
// transition false→true; repeating an interaction is a success no-op. Any
// failure, including a missing item or foreign ownership, resolves to false.
func (t *Tracker) TrackInteraction(ctx context.Context, userID, feedItemID int64, interaction string) bool {
	if !models.ValidInteraction(interaction) {
		t.logger.Warn("Rejected unknown interaction type",
			zap.String("interaction", interaction),
			zap.Int64("user_id", userID))
		return false
	}

	item, err := t.feed.GetItem(ctx, feedItemID)
	if err != nil {
		t.logger.Warn("Failed to load feed item",
			zap.Int64("feed_item_id", feedItemID),
			zap.Error(err))
		return false
	}
	if item == nil {
		t.logger.Debug("Ignoring interaction with missing feed item",
			zap.Int64("feed_item_id", feedItemID))
		return false
	}
	if item.UserID != userID {
		t.logger.Warn("Rejected interaction with foreign feed item",
			zap.Int64("feed_item_id", feedItemID),
			zap.Int64("user_id", userID),
			zap.Int64("owner_id", item.UserID))
		return false
	}

	if err := t.feed.SetOutcomeFlag(ctx, feedItemID, interaction); err != nil {
		t.logger.Warn("Failed to set outcome flag",
			zap.Int64("feed_item_id", feedItemID),
			zap.String("interaction", interaction),
			zap.Error(err))
		return false
	}

	// Record the event for the next aggregation cadence. The flag update
	// already succeeded, so a log append failure does not fail tracking.
	event := &models.EngagementEvent{
		UserID:        userID,
		PersonaID:     item.PersonaID,
		EventType:     interactionEvents[interaction],
		DiscoveredVia: models.ViaFeed,
		CreatedAt:     t.now(),
	}
	if err := t.events.AppendEvent(ctx, event); err != nil {
		t.logger.Warn("Failed to append engagement event",
			zap.Int64("feed_item_id", feedItemID),
			zap.Error(err))
	}

	return true
}
