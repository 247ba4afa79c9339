package engine

import (
	"context"
	"time"

	"github.com/personaverse/discovery/internal/models"
)

// PersonaStore provides read access to persona records. The persona subsystem
// owns the table; the engine never writes it.
type PersonaStore interface {
	GetPersona(ctx context.Context, id int64) (*models.Persona, error)
	GetPersonas(ctx context.Context, ids []int64) ([]models.Persona, error)
	ListPersonas(ctx context.Context, offset, limit int) ([]models.Persona, error)
	ListPublicPersonas(ctx context.Context, categories []string, limit int) ([]models.Persona, error)
	ListByOwners(ctx context.Context, ownerIDs []int64, limit int) ([]models.Persona, error)
	ListPromoted(ctx context.Context, limit int) ([]models.Persona, error)
	SearchPersonas(ctx context.Context, query string, categories []string, limit int) ([]models.Persona, error)
}

// MetricsStore provides access to discovery metrics rows. The aggregator is
// the single writer; everything else only reads.
type MetricsStore interface {
	Get(ctx context.Context, personaID int64) (*models.DiscoveryMetrics, error)
	GetBatch(ctx context.Context, personaIDs []int64) (map[int64]models.DiscoveryMetrics, error)
	Upsert(ctx context.Context, m *models.DiscoveryMetrics) error
	UpdateRanks(ctx context.Context, ranks []RankAssignment) error
	TopByTrending(ctx context.Context, limit int) ([]models.DiscoveryMetrics, error)
}

// RankAssignment carries one persona's recomputed ordinal ranks
type RankAssignment struct {
	PersonaID     int64
	DiscoveryRank int64
	CategoryRank  int64
}

// EngagementStore provides access to the append-only event log and the
// engagement signal tables.
type EngagementStore interface {
	AppendEvent(ctx context.Context, event *models.EngagementEvent) error
	// CountByPersona returns per-persona event counts for the given types
	// since the window start.
	CountByPersona(ctx context.Context, eventTypes []string, since time.Time) (map[int64]int64, error)
	ListRecentReviews(ctx context.Context, since time.Time) ([]models.PersonaReview, error)
	ListActiveLikes(ctx context.Context, userID int64) ([]models.PersonaLike, error)
	ListActiveConnections(ctx context.Context, userID int64) ([]models.UserConnection, error)
	// InteractedPersonaIDs returns personas the user has liked, subscribed to
	// or reviewed, used to exclude already-known content from recommendations.
	InteractedPersonaIDs(ctx context.Context, userID int64) ([]int64, error)
}

// SocialStore provides read access to the social graph
type SocialStore interface {
	ListFollowedCreators(ctx context.Context, userID int64) ([]int64, error)
	IsFollowing(ctx context.Context, userID, creatorID int64) (bool, error)
	ListBlockedPersonas(ctx context.Context, userID int64) ([]int64, error)
}

// FeedStore provides access to feed item batches. The assembler creates
// batches; the tracker flips outcome flags; nothing else writes.
type FeedStore interface {
	// LatestBatch returns the newest non-superseded batch for the user,
	// ordered by feed position. Empty slice when the user has no batch.
	LatestBatch(ctx context.Context, userID int64) ([]models.FeedItem, error)
	// CreateBatch persists the items and marks all prior batches of the user
	// superseded in the same transaction.
	CreateBatch(ctx context.Context, userID int64, items []models.FeedItem) error
	GetFeedPage(ctx context.Context, userID int64, limit, offset int) ([]models.FeedItem, error)
	GetItem(ctx context.Context, feedItemID int64) (*models.FeedItem, error)
	// SetOutcomeFlag sets the named flag true with a guarded row-level update.
	// Setting an already-true flag is a no-op.
	SetOutcomeFlag(ctx context.Context, feedItemID int64, flag string) error
	SurfacedPersonaIDs(ctx context.Context, userID int64) ([]int64, error)
	DismissedPersonaIDs(ctx context.Context, userID int64) ([]int64, error)
	OutcomeCounts(ctx context.Context, userID int64, since time.Time) (*OutcomeCounts, error)
}

// OutcomeCounts aggregates outcome flags over a user's feed history
type OutcomeCounts struct {
	Items     int64
	Viewed    int64
	Clicked   int64
	Liked     int64
	Shared    int64
	Dismissed int64
}
