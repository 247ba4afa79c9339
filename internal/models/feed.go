package models

import (
	"time"
)

// Feed item types
const (
	ItemPersonaRecommendation  = "persona_recommendation"
	ItemTrendingPersona        = "trending_persona"
	ItemCreatorUpdate          = "creator_update"
	ItemFollowedCreatorPersona = "followed_creator_persona"
	ItemSimilarPersonas        = "similar_personas"
	ItemReviewHighlight        = "review_highlight"
)

// Algorithm sources, in descending dedup priority
const (
	SourcePersonalized = "personalized"
	SourceSocial       = "social"
	SourceTrending     = "trending"
	SourcePromoted     = "promoted"
)

// FeedItem is one positioned entry of a generated feed batch. Created by the
// assembler; afterwards only the five outcome flags may change, and only
// false→true. Rows are never deleted so past feeds stay replayable.
type FeedItem struct {
	ID        int64  `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64  `gorm:"not null;index:idx_feed_user_batch;column:user_id"`
	BatchID   string `gorm:"type:varchar(36);not null;index:idx_feed_user_batch;column:batch_id"`
	PersonaID int64  `gorm:"not null;index;column:persona_id"`
	CreatorID int64  `gorm:"column:creator_id"`

	ItemType        string  `gorm:"type:varchar(32);not null;column:item_type"`
	AlgorithmSource string  `gorm:"type:varchar(16);not null;column:algorithm_source"`
	RelevanceScore  float64 `gorm:"type:decimal(3,2);not null;default:0;column:relevance_score"`
	FeedPosition    int     `gorm:"not null;column:feed_position"`
	IsPromoted      bool    `gorm:"not null;default:false;column:is_promoted"`
	IsTrending      bool    `gorm:"not null;default:false;column:is_trending"`

	WasViewed    bool `gorm:"not null;default:false;column:was_viewed"`
	WasClicked   bool `gorm:"not null;default:false;column:was_clicked"`
	WasLiked     bool `gorm:"not null;default:false;column:was_liked"`
	WasShared    bool `gorm:"not null;default:false;column:was_shared"`
	WasDismissed bool `gorm:"not null;default:false;column:was_dismissed"`

	// Superseded marks items of batches replaced by a regeneration. They are
	// excluded from reads but kept for audit.
	Superseded bool      `gorm:"not null;default:false;column:superseded"`
	CreatedAt  time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for FeedItem
func (FeedItem) TableName() string {
	return "feed_items"
}

// SourcePriority returns the dedup priority of an algorithm source (higher
// wins when the same persona is proposed by several generators).
func SourcePriority(source string) int {
	switch source {
	case SourcePersonalized:
		return 4
	case SourceSocial:
		return 3
	case SourceTrending:
		return 2
	case SourcePromoted:
		return 1
	default:
		return 0
	}
}

// ValidInteraction reports whether s names a trackable outcome flag
func ValidInteraction(s string) bool {
	switch s {
	case "viewed", "clicked", "liked", "shared", "dismissed":
		return true
	}
	return false
}
