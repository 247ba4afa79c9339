package engine

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/personaverse/discovery/internal/models"
	"github.com/personaverse/discovery/pkg/config"
	"github.com/personaverse/discovery/pkg/logging"
)

// reviewLookback bounds how far back reviews can still influence quality.
// At the default 30-day half-life a 180-day-old review weighs under 2%.
const reviewLookback = 180 * 24 * time.Hour

// Aggregator rolls the raw event log into per-persona windowed counters and
// derived scores, then recomputes global and per-category ranks. It is the
// single writer of discovery metrics.
type Aggregator struct {
	personas  PersonaStore
	metrics   MetricsStore
	events    EngagementStore
	scorer    *Scorer
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// NewAggregator creates a new metrics aggregator
func NewAggregator(personas PersonaStore, metrics MetricsStore, events EngagementStore, scoring config.ScoringConfig, batchSize int) *Aggregator {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Aggregator{
		personas:  personas,
		metrics:   metrics,
		events:    events,
		scorer:    NewScorer(scoring),
		batchSize: batchSize,
		logger:    logging.GetLogger().With(zap.String("component", "aggregator")),
		now:       time.Now,
	}
}

type rankEntry struct {
	personaID int64
	category  string
	composite float64
	createdAt time.Time
}

// Recompute scans the event log for the given window, rewrites each persona's
// counters for that window, rederives the four scores and reassigns ranks.
// Two runs over the same event window produce identical rows.
//
// A failure on one persona is logged and skipped; the previous row stays in
// place and the batch continues.
func (a *Aggregator) Recompute(ctx context.Context, window Window) error {
	now := a.now()
	since := now.Add(-window.Duration())

	a.logger.Info("Starting metrics recompute",
		zap.String("window", string(window)),
		zap.String("scoring_version", a.scorer.Version()))

	views, err := a.events.CountByPersona(ctx, []string{models.EventView}, since)
	if err != nil {
		return Internalf("count views for window %s", window)
	}
	likes, err := a.events.CountByPersona(ctx, []string{models.EventLike}, since)
	if err != nil {
		return Internalf("count likes for window %s", window)
	}
	subscriptions, err := a.events.CountByPersona(ctx, []string{models.EventSubscribe}, since)
	if err != nil {
		return Internalf("count subscriptions for window %s", window)
	}

	// Engagement score inputs always come from the trailing 7d window,
	// whichever window triggered the recompute.
	since7d := now.Add(-Window7d.Duration())
	shares7d, err := a.events.CountByPersona(ctx, []string{models.EventShare}, since7d)
	if err != nil {
		return Internalf("count shares")
	}
	follows7d, err := a.events.CountByPersona(ctx, []string{models.EventFollow}, since7d)
	if err != nil {
		return Internalf("count follows")
	}

	reviews, err := a.events.ListRecentReviews(ctx, now.Add(-reviewLookback))
	if err != nil {
		return Internalf("list reviews")
	}
	reviewsByPersona := make(map[int64][]models.PersonaReview)
	for _, r := range reviews {
		reviewsByPersona[r.PersonaID] = append(reviewsByPersona[r.PersonaID], r)
	}

	var entries []rankEntry
	var processed, skipped int

	for offset := 0; ; offset += a.batchSize {
		page, err := a.personas.ListPersonas(ctx, offset, a.batchSize)
		if err != nil {
			return Internalf("list personas at offset %d", offset)
		}
		if len(page) == 0 {
			break
		}

		ids := make([]int64, len(page))
		for i, p := range page {
			ids[i] = p.ID
		}
		existing, err := a.metrics.GetBatch(ctx, ids)
		if err != nil {
			return Internalf("load metrics batch at offset %d", offset)
		}

		for _, persona := range page {
			row := existing[persona.ID]
			row.PersonaID = persona.ID
			if row.DiscoveryRank == 0 {
				row.DiscoveryRank = models.UnrankedSentinel
				row.CategoryRank = models.UnrankedSentinel
			}

			setWindowCounters(&row, window,
				views[persona.ID], likes[persona.ID], subscriptions[persona.ID])

			row.PopularityScore = a.scorer.Popularity(row.Views7d, row.Likes7d, row.Subscriptions7d)
			row.TrendingScore = a.scorer.Trending(row.Views24h, row.Likes24h, row.Views7d, row.Likes7d)
			row.QualityScore = a.scorer.Quality(reviewsByPersona[persona.ID], now)
			row.EngagementScore = a.scorer.Engagement(
				row.Likes7d, shares7d[persona.ID], follows7d[persona.ID], row.Views7d)
			row.LastCalculated = now

			if err := a.metrics.Upsert(ctx, &row); err != nil {
				// One bad persona must not abort the batch
				a.logger.Warn("Skipping persona after metrics write failure",
					zap.Int64("persona_id", persona.ID),
					zap.Error(err))
				skipped++
				continue
			}
			processed++

			entries = append(entries, rankEntry{
				personaID: persona.ID,
				category:  persona.Category,
				composite: row.CompositeScore(),
				createdAt: persona.CreatedAt,
			})
		}
	}

	if err := a.assignRanks(ctx, entries); err != nil {
		return err
	}

	a.logger.Info("Metrics recompute finished",
		zap.String("window", string(window)),
		zap.Int("processed", processed),
		zap.Int("skipped", skipped))
	return nil
}

// assignRanks performs the full ordinal sort and writes the rank snapshot.
// Ties rank by persona creation time ascending, so proven content wins over
// brand-new identical scores.
func (a *Aggregator) assignRanks(ctx context.Context, entries []rankEntry) error {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].composite != entries[j].composite {
			return entries[i].composite > entries[j].composite
		}
		return entries[i].createdAt.Before(entries[j].createdAt)
	})

	categoryNext := make(map[string]int64)
	ranks := make([]RankAssignment, len(entries))
	for i, e := range entries {
		categoryNext[e.category]++
		ranks[i] = RankAssignment{
			PersonaID:     e.personaID,
			DiscoveryRank: int64(i) + 1,
			CategoryRank:  categoryNext[e.category],
		}
	}

	if len(ranks) == 0 {
		return nil
	}
	if err := a.metrics.UpdateRanks(ctx, ranks); err != nil {
		return Internalf("write rank snapshot")
	}
	return nil
}

func setWindowCounters(row *models.DiscoveryMetrics, window Window, views, likes, subscriptions int64) {
	switch window {
	case Window24h:
		row.Views24h = views
		row.Likes24h = likes
		row.Subscriptions24h = subscriptions
	case Window7d:
		row.Views7d = views
		row.Likes7d = likes
		row.Subscriptions7d = subscriptions
	case Window30d:
		row.Views30d = views
		row.Likes30d = likes
		row.Subscriptions30d = subscriptions
	}
}
