package engine

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/personaverse/discovery/internal/models"
	"github.com/personaverse/discovery/pkg/logging"
)

// followedCreatorBoost is added to a search hit's rank score when the
// searching user follows the persona's creator.
const followedCreatorBoost = 10.0

// RankedPersona is a persona hydrated with its discovery scores
type RankedPersona struct {
	Persona         models.Persona `json:"persona"`
	TrendingScore   float64        `json:"trending_score"`
	PopularityScore float64        `json:"popularity_score"`
	QualityScore    float64        `json:"quality_score"`
	EngagementScore float64        `json:"engagement_score"`
	DiscoveryRank   int64          `json:"discovery_rank"`
	CategoryRank    int64          `json:"category_rank"`
	Relevance       float64        `json:"relevance"`
}

// Discovery serves the ranked read operations: trending lists, search and
// personalized recommendations. It only reads the metrics snapshot; stale
// metrics degrade the ordering, never the response.
type Discovery struct {
	personas   PersonaStore
	metrics    MetricsStore
	social     SocialStore
	generators *Generators
	logger     *zap.Logger
	now        func() time.Time
}

// NewDiscovery creates the discovery read service
func NewDiscovery(personas PersonaStore, metrics MetricsStore, social SocialStore, generators *Generators) *Discovery {
	return &Discovery{
		personas:   personas,
		metrics:    metrics,
		social:     social,
		generators: generators,
		logger:     logging.GetLogger().With(zap.String("component", "discovery")),
		now:        time.Now,
	}
}

// TrendingPersonas returns the top publicly visible personas by trending
// score. The timeframe is validated against the supported windows.
func (d *Discovery) TrendingPersonas(ctx context.Context, timeframe string, limit int, categories []string) ([]RankedPersona, error) {
	if _, err := ParseWindow(timeframe); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	candidates, err := d.generators.Trending(ctx, categories, limit)
	if err != nil {
		return nil, err
	}
	return d.hydrate(ctx, candidates)
}

// SearchPersonas matches public personas by name or category and ranks hits
// by composite score. A known user gets a boost on personas whose creator
// they follow. Stale metrics are absorbed silently.
func (d *Discovery) SearchPersonas(ctx context.Context, query string, userID int64, limit int, categories []string) ([]RankedPersona, error) {
	if limit <= 0 {
		limit = 20
	}
	hits, err := d.personas.SearchPersonas(ctx, query, categories, limit*2)
	if err != nil {
		return nil, Internalf("search personas")
	}
	if len(hits) == 0 {
		return []RankedPersona{}, nil
	}

	ids := make([]int64, len(hits))
	for i, p := range hits {
		ids[i] = p.ID
	}
	metricsByID, err := d.metrics.GetBatch(ctx, ids)
	if err != nil {
		return nil, Internalf("load search metrics")
	}

	followed := make(map[int64]bool)
	if userID > 0 {
		creators, err := d.social.ListFollowedCreators(ctx, userID)
		if err != nil {
			// Personalization is a bonus; fall back to unpersonalized order
			d.logger.Warn("Skipping search personalization",
				zap.Int64("user_id", userID),
				zap.Error(err))
		} else {
			followed = toSet(creators)
		}
	}

	type scoredHit struct {
		ranked RankedPersona
		score  float64
	}
	scored := make([]scoredHit, 0, len(hits))
	for _, p := range hits {
		if !p.IsPublic() {
			continue
		}
		ranked := RankedPersona{
			Persona:       p,
			DiscoveryRank: models.UnrankedSentinel,
			CategoryRank:  models.UnrankedSentinel,
		}
		score := 0.0
		if m, ok := metricsByID[p.ID]; ok {
			fillScores(&ranked, m)
			score = m.CompositeScore()
		}
		if followed[p.OwnerID] {
			score += followedCreatorBoost
		}
		ranked.Relevance = round2(clamp(score/100, 0, 1))
		scored = append(scored, scoredHit{ranked: ranked, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].ranked.Persona.ID < scored[j].ranked.Persona.ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]RankedPersona, len(scored))
	for i, s := range scored {
		out[i] = s.ranked
	}
	return out, nil
}

// Recommendations returns the personalized candidate pool hydrated with
// persona records and scores.
func (d *Discovery) Recommendations(ctx context.Context, userID int64, limit int, categories []string) ([]RankedPersona, error) {
	if limit <= 0 {
		limit = 20
	}
	candidates, err := d.generators.Personalized(ctx, userID, categories, limit)
	if err != nil {
		return nil, err
	}
	return d.hydrate(ctx, candidates)
}

// hydrate joins candidates with their persona rows and metrics, preserving
// candidate order.
func (d *Discovery) hydrate(ctx context.Context, candidates []Candidate) ([]RankedPersona, error) {
	if len(candidates) == 0 {
		return []RankedPersona{}, nil
	}
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.PersonaID
	}
	personas, err := d.personas.GetPersonas(ctx, ids)
	if err != nil {
		return nil, Internalf("load personas")
	}
	byID := make(map[int64]models.Persona, len(personas))
	for _, p := range personas {
		byID[p.ID] = p
	}
	metricsByID, err := d.metrics.GetBatch(ctx, ids)
	if err != nil {
		return nil, Internalf("load metrics")
	}

	out := make([]RankedPersona, 0, len(candidates))
	for _, c := range candidates {
		p, ok := byID[c.PersonaID]
		if !ok {
			continue
		}
		ranked := RankedPersona{
			Persona:       p,
			Relevance:     c.Relevance,
			DiscoveryRank: models.UnrankedSentinel,
			CategoryRank:  models.UnrankedSentinel,
		}
		if m, ok := metricsByID[c.PersonaID]; ok {
			fillScores(&ranked, m)
		}
		out = append(out, ranked)
	}
	return out, nil
}

func fillScores(ranked *RankedPersona, m models.DiscoveryMetrics) {
	ranked.TrendingScore = m.TrendingScore
	ranked.PopularityScore = m.PopularityScore
	ranked.QualityScore = m.QualityScore
	ranked.EngagementScore = m.EngagementScore
	ranked.DiscoveryRank = m.DiscoveryRank
	ranked.CategoryRank = m.CategoryRank
}
