package engine

import (
	"testing"
	"time"

	"github.com/personaverse/discovery/internal/models"
	"github.com/personaverse/discovery/pkg/config"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Version:               "v1",
		ViewWeight:            1,
		LikeWeight:            5,
		SubscriptionWeight:    20,
		PopularityCeiling:     1000000,
		TrendingBaselineFloor: 1,
		QualityHalfLifeDays:   30,
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		input   string
		want    Window
		wantErr bool
	}{
		{"24h", Window24h, false},
		{"7d", Window7d, false},
		{"30d", Window30d, false},
		{"1h", "", true},
		{"", "", true},
		{"7D", "", true},
	}

	for _, tt := range tests {
		got, err := ParseWindow(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseWindow(%q) expected error, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWindow(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWindow(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPopularity(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	tests := []struct {
		name                  string
		views, likes, subs    int64
		wantZero, wantCeiling bool
	}{
		{name: "no engagement", wantZero: true},
		{name: "modest engagement", views: 100, likes: 10},
		{name: "at ceiling", views: 1000000, wantCeiling: true},
		{name: "past ceiling clamps", views: 1000000, likes: 100000, subs: 10000, wantCeiling: true},
	}

	for _, tt := range tests {
		got := scorer.Popularity(tt.views, tt.likes, tt.subs)
		if got < 0 || got > 100 {
			t.Errorf("%s: Popularity = %v, outside [0,100]", tt.name, got)
		}
		if tt.wantZero && got != 0 {
			t.Errorf("%s: Popularity = %v, want 0", tt.name, got)
		}
		if !tt.wantZero && !tt.wantCeiling && (got <= 0 || got >= 100) {
			t.Errorf("%s: Popularity = %v, want strictly between 0 and 100", tt.name, got)
		}
		if tt.wantCeiling && got != 100 {
			t.Errorf("%s: Popularity = %v, want 100", tt.name, got)
		}
	}
}

func TestPopularityWeighting(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	// One subscription weighs as much as 20 views
	bySubs := scorer.Popularity(0, 0, 5)
	byViews := scorer.Popularity(100, 0, 0)
	if bySubs != byViews {
		t.Errorf("5 subscriptions scored %v, 100 views scored %v, want equal", bySubs, byViews)
	}

	// Likes count 5x views
	byLikes := scorer.Popularity(0, 20, 0)
	if byLikes != byViews {
		t.Errorf("20 likes scored %v, 100 views scored %v, want equal", byLikes, byViews)
	}
}

func TestTrendingVelocityOverVolume(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	// Persona A: 500 views in 24h against a 50/day baseline (ratio 10).
	// Persona B: 60 views in 24h against the same baseline (ratio 1.2).
	// A must outrank B despite both having the same weekly volume.
	a := scorer.Trending(500, 0, 350, 0)
	b := scorer.Trending(60, 0, 350, 0)
	if a <= b {
		t.Errorf("spiking persona scored %v, steady persona scored %v, want spiking higher", a, b)
	}
	if a != 100 {
		t.Errorf("ratio-10 spike = %v, want clamped to 100", a)
	}
}

func TestTrendingBaselineFloor(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	// Brand-new persona with zero history: the floor prevents a divide by
	// zero and a modest burst still clamps at the top of the scale.
	got := scorer.Trending(50, 0, 0, 0)
	if got != 100 {
		t.Errorf("Trending with floored baseline = %v, want 100", got)
	}

	if got := scorer.Trending(0, 0, 0, 0); got != 0 {
		t.Errorf("Trending with no activity = %v, want 0", got)
	}
}

func TestQualityRecencyDecay(t *testing.T) {
	scorer := NewScorer(testScoringConfig())
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	// A fresh 5-star against a 90-day-old 1-star: the fresh review carries
	// 8x the weight, so the mean sits well above the midpoint.
	reviews := []models.PersonaReview{
		{Rating: 5, CreatedAt: now},
		{Rating: 1, CreatedAt: now.Add(-90 * 24 * time.Hour)},
	}
	got := scorer.Quality(reviews, now)
	if got <= 60 {
		t.Errorf("Quality = %v, want fresh 5-star to dominate (> 60)", got)
	}
	if got >= 100 {
		t.Errorf("Quality = %v, want below a pure 5-star (< 100)", got)
	}

	// Reversed ages flips the outcome
	reviews = []models.PersonaReview{
		{Rating: 1, CreatedAt: now},
		{Rating: 5, CreatedAt: now.Add(-90 * 24 * time.Hour)},
	}
	if got := scorer.Quality(reviews, now); got >= 60 {
		t.Errorf("Quality = %v, want fresh 1-star to dominate (< 60)", got)
	}
}

func TestQualityBounds(t *testing.T) {
	scorer := NewScorer(testScoringConfig())
	now := time.Now()

	if got := scorer.Quality(nil, now); got != 0 {
		t.Errorf("Quality with no reviews = %v, want 0", got)
	}

	allFive := []models.PersonaReview{
		{Rating: 5, CreatedAt: now},
		{Rating: 5, CreatedAt: now.Add(-10 * 24 * time.Hour)},
	}
	if got := scorer.Quality(allFive, now); got != 100 {
		t.Errorf("Quality with uniform 5-star = %v, want 100", got)
	}
}

func TestEngagement(t *testing.T) {
	scorer := NewScorer(testScoringConfig())

	tests := []struct {
		name                          string
		likes, shares, follows, views int64
		want                          float64
	}{
		{name: "zero views", likes: 10, want: 0},
		{name: "typical ratio", likes: 5, shares: 3, follows: 2, views: 100, want: 10},
		{name: "ratio above one clamps", likes: 200, views: 100, want: 100},
		{name: "no interactions", views: 500, want: 0},
	}

	for _, tt := range tests {
		got := scorer.Engagement(tt.likes, tt.shares, tt.follows, tt.views)
		if got != tt.want {
			t.Errorf("%s: Engagement = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCompositeScore(t *testing.T) {
	m := models.DiscoveryMetrics{
		TrendingScore:   40,
		PopularityScore: 60,
		QualityScore:    80,
		EngagementScore: 20,
	}
	if got := m.CompositeScore(); got != 50 {
		t.Errorf("CompositeScore = %v, want 50", got)
	}
}
