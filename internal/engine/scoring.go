package engine

import (
	"math"
	"time"

	"github.com/personaverse/discovery/internal/models"
	"github.com/personaverse/discovery/pkg/config"
)

// Window is a fixed lookback period for counter aggregation
type Window string

// Supported aggregation windows
const (
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window30d Window = "30d"
)

// ParseWindow validates a timeframe string
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case Window24h, Window7d, Window30d:
		return Window(s), nil
	}
	return "", BadRequestf("invalid timeframe %q", s)
}

// Duration returns the window's lookback duration
func (w Window) Duration() time.Duration {
	switch w {
	case Window24h:
		return 24 * time.Hour
	case Window7d:
		return 7 * 24 * time.Hour
	case Window30d:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Scorer derives the four composite scores from windowed counters. All
// weights come from the versioned scoring config so recorded scores are
// reproducible per version.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer creates a scorer for the given config version
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Version returns the scoring config version the scorer applies
func (s *Scorer) Version() string {
	return s.cfg.Version
}

// Popularity computes the weighted 7d engagement sum, log-normalized to 0-100
// so a single viral persona cannot dominate the scale.
func (s *Scorer) Popularity(views7d, likes7d, subscriptions7d int64) float64 {
	weighted := float64(views7d)*s.cfg.ViewWeight +
		float64(likes7d)*s.cfg.LikeWeight +
		float64(subscriptions7d)*s.cfg.SubscriptionWeight
	if weighted <= 0 {
		return 0
	}
	score := 100 * math.Log10(1+weighted) / math.Log10(1+s.cfg.PopularityCeiling)
	return round2(clamp(score, 0, 100))
}

// Trending compares the persona's 24h weighted velocity against its own
// trailing 7d daily average. The baseline floor keeps brand-new personas from
// dividing by zero; a persona outpacing its own history scores high
// regardless of absolute popularity.
func (s *Scorer) Trending(views24h, likes24h, views7d, likes7d int64) float64 {
	velocity := float64(views24h)*s.cfg.ViewWeight + float64(likes24h)*s.cfg.LikeWeight
	baseline := (float64(views7d)*s.cfg.ViewWeight + float64(likes7d)*s.cfg.LikeWeight) / 7
	if baseline < s.cfg.TrendingBaselineFloor {
		baseline = s.cfg.TrendingBaselineFloor
	}
	score := velocity / baseline * 10
	return round2(clamp(score, 0, 100))
}

// Quality computes a recency-decayed weighted mean of review ratings. Each
// review's weight halves every QualityHalfLifeDays. Bounded 0-5, rescaled to
// the common 0-100 range.
func (s *Scorer) Quality(reviews []models.PersonaReview, now time.Time) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var weightedSum, weightTotal float64
	for _, r := range reviews {
		ageDays := now.Sub(r.CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		w := math.Pow(0.5, ageDays/s.cfg.QualityHalfLifeDays)
		weightedSum += w * float64(r.Rating)
		weightTotal += w
	}
	if weightTotal == 0 {
		return 0
	}
	mean := clamp(weightedSum/weightTotal, 0, 5)
	return round2(mean * 20)
}

// Engagement computes the 7d interaction-to-view ratio. Zero-view personas
// score 0 rather than dividing by zero.
func (s *Scorer) Engagement(likes7d, shares7d, follows7d, views7d int64) float64 {
	if views7d <= 0 {
		return 0
	}
	ratio := float64(likes7d+shares7d+follows7d) / float64(views7d)
	return round2(clamp(ratio, 0, 1) * 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round2 rounds to two decimals, matching the decimal(10,2) columns
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
