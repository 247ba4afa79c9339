package models

import (
	"time"
)

// Engagement event types
const (
	EventView      = "view"
	EventClick     = "click"
	EventLike      = "like"
	EventShare     = "share"
	EventFollow    = "follow"
	EventSubscribe = "subscribe"
	EventReview    = "review"
	EventDismiss   = "dismiss"
)

// Discovery provenance values, recorded for attribution. Provenance does not
// affect scoring weight in v1.
const (
	ViaFeed           = "feed"
	ViaSearch         = "search"
	ViaTrending       = "trending"
	ViaRecommendation = "recommendation"
	ViaCreatorProfile = "creator_profile"
	ViaDirectLink     = "direct_link"
)

// EngagementEvent is one row of the append-only interaction log. The tracker
// appends rows at request time; the aggregator consumes them on its cadence.
// Rows are never updated or deleted.
type EngagementEvent struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID        int64     `gorm:"not null;index;column:user_id"`
	PersonaID     int64     `gorm:"not null;index:idx_events_persona_time;column:persona_id"`
	EventType     string    `gorm:"type:varchar(16);not null;column:event_type"`
	DiscoveredVia string    `gorm:"type:varchar(32);column:discovered_via"`
	Metadata      string    `gorm:"type:text;column:metadata"`
	CreatedAt     time.Time `gorm:"not null;index:idx_events_persona_time;column:created_at"`
}

// TableName specifies the table name for EngagementEvent
func (EngagementEvent) TableName() string {
	return "engagement_events"
}

// UserFollow represents a user following a creator. Soft-deleted via IsActive
// so the follow history stays visible to the aggregator.
type UserFollow struct {
	UserID        int64     `gorm:"primaryKey;column:user_id"`
	CreatorID     int64     `gorm:"primaryKey;column:creator_id"`
	IsActive      bool      `gorm:"not null;default:true;column:is_active"`
	DiscoveredVia string    `gorm:"type:varchar(32);column:discovered_via"`
	CreatedAt     time.Time `gorm:"not null;column:created_at"`
	UpdatedAt     time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for UserFollow
func (UserFollow) TableName() string {
	return "user_follows"
}

// PersonaLike represents a user liking a persona, soft-deleted via IsActive
type PersonaLike struct {
	UserID        int64     `gorm:"primaryKey;column:user_id"`
	PersonaID     int64     `gorm:"primaryKey;column:persona_id"`
	IsActive      bool      `gorm:"not null;default:true;column:is_active"`
	DiscoveredVia string    `gorm:"type:varchar(32);column:discovered_via"`
	CreatedAt     time.Time `gorm:"not null;column:created_at"`
	UpdatedAt     time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for PersonaLike
func (PersonaLike) TableName() string {
	return "persona_likes"
}

// PersonaReview represents a user review of a persona
type PersonaReview struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID    int64     `gorm:"not null;index;column:user_id"`
	PersonaID int64     `gorm:"not null;index;column:persona_id"`
	Rating    int16     `gorm:"type:smallint;not null;column:rating"` // 1..5
	Comment   string    `gorm:"type:text;column:comment"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PersonaReview
func (PersonaReview) TableName() string {
	return "persona_reviews"
}

// UserConnection represents a user subscription to a persona
type UserConnection struct {
	UserID        int64     `gorm:"primaryKey;column:user_id"`
	PersonaID     int64     `gorm:"primaryKey;column:persona_id"`
	IsActive      bool      `gorm:"not null;default:true;column:is_active"`
	DiscoveredVia string    `gorm:"type:varchar(32);column:discovered_via"`
	CreatedAt     time.Time `gorm:"not null;column:created_at"`
	UpdatedAt     time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for UserConnection
func (UserConnection) TableName() string {
	return "user_connections"
}

// UserBlock represents a user blocking a persona from their feed
type UserBlock struct {
	UserID    int64     `gorm:"primaryKey;column:user_id"`
	PersonaID int64     `gorm:"primaryKey;column:persona_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for UserBlock
func (UserBlock) TableName() string {
	return "user_blocks"
}
