package models

import (
	"time"
)

// UnrankedSentinel marks a persona that has never been ranked. Ranks are
// ordinal with 1 = best, so the sentinel sorts after every real rank.
const UnrankedSentinel int64 = 1<<31 - 1

// DiscoveryMetrics holds the per-persona time-windowed counters and derived
// scores. Exactly one row per persona, written only by the aggregator;
// generators and API reads never mutate it.
type DiscoveryMetrics struct {
	PersonaID int64 `gorm:"primaryKey;column:persona_id"`

	Views24h int64 `gorm:"not null;default:0;column:views_24h"`
	Views7d  int64 `gorm:"not null;default:0;column:views_7d"`
	Views30d int64 `gorm:"not null;default:0;column:views_30d"`

	Likes24h int64 `gorm:"not null;default:0;column:likes_24h"`
	Likes7d  int64 `gorm:"not null;default:0;column:likes_7d"`
	Likes30d int64 `gorm:"not null;default:0;column:likes_30d"`

	Subscriptions24h int64 `gorm:"not null;default:0;column:subscriptions_24h"`
	Subscriptions7d  int64 `gorm:"not null;default:0;column:subscriptions_7d"`
	Subscriptions30d int64 `gorm:"not null;default:0;column:subscriptions_30d"`

	TrendingScore   float64 `gorm:"type:decimal(10,2);not null;default:0;column:trending_score"`
	PopularityScore float64 `gorm:"type:decimal(10,2);not null;default:0;column:popularity_score"`
	QualityScore    float64 `gorm:"type:decimal(10,2);not null;default:0;column:quality_score"`
	EngagementScore float64 `gorm:"type:decimal(10,2);not null;default:0;column:engagement_score"`

	DiscoveryRank int64 `gorm:"not null;default:2147483647;column:discovery_rank"`
	CategoryRank  int64 `gorm:"not null;default:2147483647;column:category_rank"`

	LastCalculated time.Time `gorm:"not null;column:last_calculated"`
}

// TableName specifies the table name for DiscoveryMetrics
func (DiscoveryMetrics) TableName() string {
	return "persona_discovery_metrics"
}

// CompositeScore is the ranking key: the mean of the four derived scores.
func (m *DiscoveryMetrics) CompositeScore() float64 {
	return (m.TrendingScore + m.PopularityScore + m.QualityScore + m.EngagementScore) / 4
}

// IsStale reports whether the row is older than the given cadence interval
func (m *DiscoveryMetrics) IsStale(cadence time.Duration, now time.Time) bool {
	return now.Sub(m.LastCalculated) > cadence
}
