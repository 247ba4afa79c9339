package engine

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/personaverse/discovery/internal/models"
	"github.com/personaverse/discovery/pkg/logging"
)

// Candidate is one persona proposed by a generator before mixing
type Candidate struct {
	PersonaID int64
	CreatorID int64
	Source    string
	ItemType  string
	Relevance float64 // 0.00-1.00
}

// Relevance contribution weights for the personalized generator
const (
	categoryMatchWeight = 0.5
	creatorMatchWeight  = 0.3
	popularityPrior     = 0.2
)

// socialFreshnessWindow is the age at which a followed creator's persona
// stops being proposed as a social candidate.
const socialFreshnessWindow = 30 * 24 * time.Hour

// Generators produces candidate pools from the three discovery angles plus
// promoted slots. Each producer is pure given its inputs, the metrics
// snapshot and the current time.
type Generators struct {
	personas   PersonaStore
	metrics    MetricsStore
	engagement EngagementStore
	social     SocialStore
	feed       FeedStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewGenerators creates the candidate generator set
func NewGenerators(personas PersonaStore, metrics MetricsStore, engagement EngagementStore, social SocialStore, feed FeedStore) *Generators {
	return &Generators{
		personas:   personas,
		metrics:    metrics,
		engagement: engagement,
		social:     social,
		feed:       feed,
		logger:     logging.GetLogger().With(zap.String("component", "candidates")),
		now:        time.Now,
	}
}

// Personalized proposes public personas similar to what the user already
// likes, follows or subscribes to, excluding personas the user has
// interacted with. Relevance combines category match, creator match and a
// small popularity prior.
func (g *Generators) Personalized(ctx context.Context, userID int64, categories []string, limit int) ([]Candidate, error) {
	likes, err := g.engagement.ListActiveLikes(ctx, userID)
	if err != nil {
		return nil, Internalf("list likes for user %d", userID)
	}
	connections, err := g.engagement.ListActiveConnections(ctx, userID)
	if err != nil {
		return nil, Internalf("list connections for user %d", userID)
	}
	followedCreators, err := g.social.ListFollowedCreators(ctx, userID)
	if err != nil {
		return nil, Internalf("list followed creators for user %d", userID)
	}

	seedIDs := make([]int64, 0, len(likes)+len(connections))
	for _, l := range likes {
		seedIDs = append(seedIDs, l.PersonaID)
	}
	for _, c := range connections {
		seedIDs = append(seedIDs, c.PersonaID)
	}
	if len(seedIDs) == 0 && len(followedCreators) == 0 {
		// Cold start: nothing to be similar to
		return nil, nil
	}

	seeds, err := g.personas.GetPersonas(ctx, seedIDs)
	if err != nil {
		return nil, Internalf("load seed personas")
	}

	seedCategories := make(map[string]bool)
	seedCreators := make(map[int64]bool)
	for _, p := range seeds {
		if p.Category != "" {
			seedCategories[p.Category] = true
		}
		seedCreators[p.OwnerID] = true
	}
	for _, id := range followedCreators {
		seedCreators[id] = true
	}

	interacted, err := g.engagement.InteractedPersonaIDs(ctx, userID)
	if err != nil {
		return nil, Internalf("list interacted personas for user %d", userID)
	}
	exclude := toSet(interacted)

	// Gather the pool: category neighbors plus other personas by familiar
	// creators, oversampled so exclusions still leave enough.
	pool := make(map[int64]models.Persona)
	if len(seedCategories) > 0 {
		byCategory, err := g.personas.ListPublicPersonas(ctx, keys(seedCategories), limit*3)
		if err != nil {
			return nil, Internalf("list category neighbors")
		}
		for _, p := range byCategory {
			pool[p.ID] = p
		}
	}
	if len(seedCreators) > 0 {
		byCreator, err := g.personas.ListByOwners(ctx, keysInt(seedCreators), limit*2)
		if err != nil {
			return nil, Internalf("list creator personas")
		}
		for _, p := range byCreator {
			pool[p.ID] = p
		}
	}

	requested := toStringSet(categories)
	ids := make([]int64, 0, len(pool))
	for id := range pool {
		ids = append(ids, id)
	}
	metricsByID, err := g.metrics.GetBatch(ctx, ids)
	if err != nil {
		return nil, Internalf("load candidate metrics")
	}

	candidates := make([]Candidate, 0, len(pool))
	for _, p := range pool {
		if exclude[p.ID] || !p.IsPublic() {
			continue
		}
		if len(requested) > 0 && !requested[p.Category] {
			continue
		}
		categoryMatch := seedCategories[p.Category]
		creatorMatch := seedCreators[p.OwnerID]
		if !categoryMatch && !creatorMatch {
			continue
		}

		relevance := 0.0
		if categoryMatch {
			relevance += categoryMatchWeight
		}
		if creatorMatch {
			relevance += creatorMatchWeight
		}
		if m, ok := metricsByID[p.ID]; ok {
			relevance += popularityPrior * m.PopularityScore / 100
		}

		itemType := models.ItemPersonaRecommendation
		if categoryMatch && !creatorMatch {
			itemType = models.ItemSimilarPersonas
		}
		candidates = append(candidates, Candidate{
			PersonaID: p.ID,
			CreatorID: p.OwnerID,
			Source:    models.SourcePersonalized,
			ItemType:  itemType,
			Relevance: round2(clamp(relevance, 0, 1)),
		})
	}

	sortCandidates(candidates)
	return capCandidates(candidates, limit), nil
}

// Trending proposes the top publicly visible personas by trending score
func (g *Generators) Trending(ctx context.Context, categories []string, limit int) ([]Candidate, error) {
	tops, err := g.metrics.TopByTrending(ctx, limit*2)
	if err != nil {
		return nil, Internalf("load trending metrics")
	}
	ids := make([]int64, len(tops))
	for i, m := range tops {
		ids[i] = m.PersonaID
	}
	personasByID, err := g.loadPersonaMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	requested := toStringSet(categories)
	candidates := make([]Candidate, 0, len(tops))
	for _, m := range tops {
		p, ok := personasByID[m.PersonaID]
		if !ok || !p.IsPublic() {
			continue
		}
		if len(requested) > 0 && !requested[p.Category] {
			continue
		}
		candidates = append(candidates, Candidate{
			PersonaID: p.ID,
			CreatorID: p.OwnerID,
			Source:    models.SourceTrending,
			ItemType:  models.ItemTrendingPersona,
			Relevance: round2(clamp(m.TrendingScore/100, 0, 1)),
		})
	}

	sortCandidates(candidates)
	return capCandidates(candidates, limit), nil
}

// Social proposes recent personas from creators the user follows that have
// not yet been surfaced in any of the user's feed batches. Relevance decays
// linearly with persona age.
func (g *Generators) Social(ctx context.Context, userID int64, limit int) ([]Candidate, error) {
	creators, err := g.social.ListFollowedCreators(ctx, userID)
	if err != nil {
		return nil, Internalf("list followed creators for user %d", userID)
	}
	if len(creators) == 0 {
		return nil, nil
	}

	recent, err := g.personas.ListByOwners(ctx, creators, limit*2)
	if err != nil {
		return nil, Internalf("list recent creator personas")
	}
	surfaced, err := g.feed.SurfacedPersonaIDs(ctx, userID)
	if err != nil {
		return nil, Internalf("list surfaced personas for user %d", userID)
	}
	seen := toSet(surfaced)

	now := g.now()
	candidates := make([]Candidate, 0, len(recent))
	for _, p := range recent {
		if seen[p.ID] || !p.IsPublic() {
			continue
		}
		age := now.Sub(p.CreatedAt)
		if age > socialFreshnessWindow {
			continue
		}
		freshness := 1 - age.Hours()/socialFreshnessWindow.Hours()
		candidates = append(candidates, Candidate{
			PersonaID: p.ID,
			CreatorID: p.OwnerID,
			Source:    models.SourceSocial,
			ItemType:  models.ItemFollowedCreatorPersona,
			Relevance: round2(clamp(freshness, 0.1, 1)),
		})
	}

	sortCandidates(candidates)
	return capCandidates(candidates, limit), nil
}

// Promoted proposes personas flagged for promoted slots by the persona
// subsystem, ranked by their popularity prior.
func (g *Generators) Promoted(ctx context.Context, limit int) ([]Candidate, error) {
	promoted, err := g.personas.ListPromoted(ctx, limit*2)
	if err != nil {
		return nil, Internalf("list promoted personas")
	}
	ids := make([]int64, len(promoted))
	for i, p := range promoted {
		ids[i] = p.ID
	}
	metricsByID, err := g.metrics.GetBatch(ctx, ids)
	if err != nil {
		return nil, Internalf("load promoted metrics")
	}

	candidates := make([]Candidate, 0, len(promoted))
	for _, p := range promoted {
		if !p.IsPublic() {
			continue
		}
		relevance := 0.5
		if m, ok := metricsByID[p.ID]; ok {
			relevance = m.PopularityScore / 100
		}
		candidates = append(candidates, Candidate{
			PersonaID: p.ID,
			CreatorID: p.OwnerID,
			Source:    models.SourcePromoted,
			ItemType:  models.ItemPersonaRecommendation,
			Relevance: round2(clamp(relevance, 0, 1)),
		})
	}

	sortCandidates(candidates)
	return capCandidates(candidates, limit), nil
}

func (g *Generators) loadPersonaMap(ctx context.Context, ids []int64) (map[int64]models.Persona, error) {
	personas, err := g.personas.GetPersonas(ctx, ids)
	if err != nil {
		return nil, Internalf("load personas")
	}
	byID := make(map[int64]models.Persona, len(personas))
	for _, p := range personas {
		byID[p.ID] = p
	}
	return byID, nil
}

// sortCandidates orders by relevance descending, persona id ascending on ties
// so generator output is deterministic for a given snapshot.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Relevance != candidates[j].Relevance {
			return candidates[i].Relevance > candidates[j].Relevance
		}
		return candidates[i].PersonaID < candidates[j].PersonaID
	})
}

func capCandidates(candidates []Candidate, limit int) []Candidate {
	if limit > 0 && len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func toStringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func keysInt(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
