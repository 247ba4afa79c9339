package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/personaverse/discovery/internal/models"
	"github.com/personaverse/discovery/pkg/config"
	"github.com/personaverse/discovery/pkg/logging"
)

// FeedOptions controls one feed generation run
type FeedOptions struct {
	Limit           int
	IncludePromoted bool
	RefreshExisting bool
	Categories      []string
}

// DefaultFeedOptions returns the standard generation options
func DefaultFeedOptions() FeedOptions {
	return FeedOptions{IncludePromoted: true}
}

// FeedBatch is the result of one assembler run
type FeedBatch struct {
	BatchID     string
	Items       []models.FeedItem
	GeneratedAt time.Time
	// Regenerated is false when an existing non-stale batch was returned
	Regenerated bool
}

// FeedMetrics aggregates outcome flags over a user's feed history
type FeedMetrics struct {
	Timeframe   string  `json:"timeframe"`
	Items       int64   `json:"items"`
	Viewed      int64   `json:"viewed"`
	Clicked     int64   `json:"clicked"`
	Liked       int64   `json:"liked"`
	Shared      int64   `json:"shared"`
	Dismissed   int64   `json:"dismissed"`
	ClickRate   float64 `json:"click_rate"`
	LikeRate    float64 `json:"like_rate"`
	DismissRate float64 `json:"dismiss_rate"`
}

// Assembler merges the candidate pools into persisted, position-ordered feed
// batches. It is the only writer of new feed items.
type Assembler struct {
	generators *Generators
	feed       FeedStore
	social     SocialStore
	cfg        config.FeedConfig
	logger     *zap.Logger
	now        func() time.Time
	newBatchID func() string
}

// NewAssembler creates a feed assembler
func NewAssembler(generators *Generators, feed FeedStore, social SocialStore, cfg config.FeedConfig) *Assembler {
	return &Assembler{
		generators: generators,
		feed:       feed,
		social:     social,
		cfg:        cfg,
		logger:     logging.GetLogger().With(zap.String("component", "assembler")),
		now:        time.Now,
		newBatchID: uuid.NewString,
	}
}

// GenerateFeed assembles and persists a feed batch for the user. With
// RefreshExisting=false an existing non-stale batch is returned unchanged;
// with RefreshExisting=true the prior batch is superseded (kept for audit,
// excluded from reads). On timeout the last good batch wins over an error.
func (a *Assembler) GenerateFeed(ctx context.Context, userID int64, opts FeedOptions) (*FeedBatch, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = a.cfg.DefaultLimit
	}
	if limit > a.cfg.MaxLimit {
		limit = a.cfg.MaxLimit
	}

	// The previous batch doubles as the graceful-degradation fallback
	existing, err := a.feed.LatestBatch(ctx, userID)
	if err != nil {
		return nil, Internalf("load latest batch for user %d", userID)
	}
	if !opts.RefreshExisting && len(existing) > 0 {
		age := a.now().Sub(existing[0].CreatedAt)
		if age <= a.cfg.BatchTTL {
			return &FeedBatch{
				BatchID:     existing[0].BatchID,
				Items:       existing,
				GeneratedAt: existing[0].CreatedAt,
			}, nil
		}
	}

	genCtx := ctx
	if a.cfg.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, a.cfg.GenerateTimeout)
		defer cancel()
	}

	batch, err := a.assemble(genCtx, userID, opts, limit)
	if err != nil {
		if len(existing) > 0 {
			// Degrade to the last good batch rather than failing the read
			a.logger.Warn("Feed generation failed, returning previous batch",
				zap.Int64("user_id", userID),
				zap.Error(err))
			return &FeedBatch{
				BatchID:     existing[0].BatchID,
				Items:       existing,
				GeneratedAt: existing[0].CreatedAt,
			}, nil
		}
		return nil, err
	}
	return batch, nil
}

func (a *Assembler) assemble(ctx context.Context, userID int64, opts FeedOptions, limit int) (*FeedBatch, error) {
	pools := a.collectPools(ctx, userID, opts, limit)

	blocked, err := a.social.ListBlockedPersonas(ctx, userID)
	if err != nil {
		return nil, Internalf("list blocked personas for user %d", userID)
	}
	dismissed, err := a.feed.DismissedPersonaIDs(ctx, userID)
	if err != nil {
		return nil, Internalf("list dismissed personas for user %d", userID)
	}
	excluded := toSet(blocked)
	for _, id := range dismissed {
		excluded[id] = true
	}

	selected := a.mix(pools, excluded, opts.IncludePromoted, limit)
	if len(selected) == 0 {
		return nil, Internalf("no candidates available for user %d", userID)
	}

	now := a.now()
	batchID := a.newBatchID()
	items := make([]models.FeedItem, len(selected))
	for i, c := range selected {
		items[i] = models.FeedItem{
			UserID:          userID,
			BatchID:         batchID,
			PersonaID:       c.PersonaID,
			CreatorID:       c.CreatorID,
			ItemType:        c.ItemType,
			AlgorithmSource: c.Source,
			RelevanceScore:  c.Relevance,
			FeedPosition:    i,
			IsPromoted:      c.Source == models.SourcePromoted,
			IsTrending:      c.Source == models.SourceTrending,
			CreatedAt:       now,
		}
	}

	if err := a.feed.CreateBatch(ctx, userID, items); err != nil {
		return nil, Internalf("persist feed batch for user %d", userID)
	}

	a.logger.Info("Generated feed batch",
		zap.Int64("user_id", userID),
		zap.String("batch_id", batchID),
		zap.Int("items", len(items)))

	return &FeedBatch{
		BatchID:     batchID,
		Items:       items,
		GeneratedAt: now,
		Regenerated: true,
	}, nil
}

// collectPools fans out the generators concurrently and joins the results.
// A failed generator degrades to an empty pool so the user still gets the
// best available mixed feed.
func (a *Assembler) collectPools(ctx context.Context, userID int64, opts FeedOptions, limit int) map[string][]Candidate {
	type poolResult struct {
		source     string
		candidates []Candidate
		err        error
	}

	runs := []struct {
		source string
		fn     func(context.Context) ([]Candidate, error)
	}{
		{models.SourcePersonalized, func(ctx context.Context) ([]Candidate, error) {
			return a.generators.Personalized(ctx, userID, opts.Categories, limit)
		}},
		{models.SourceTrending, func(ctx context.Context) ([]Candidate, error) {
			return a.generators.Trending(ctx, opts.Categories, limit)
		}},
		{models.SourceSocial, func(ctx context.Context) ([]Candidate, error) {
			return a.generators.Social(ctx, userID, limit)
		}},
	}
	if opts.IncludePromoted {
		runs = append(runs, struct {
			source string
			fn     func(context.Context) ([]Candidate, error)
		}{models.SourcePromoted, func(ctx context.Context) ([]Candidate, error) {
			return a.generators.Promoted(ctx, limit)
		}})
	}

	results := make(chan poolResult, len(runs))
	var wg sync.WaitGroup
	for _, run := range runs {
		wg.Add(1)
		go func(source string, fn func(context.Context) ([]Candidate, error)) {
			defer wg.Done()
			candidates, err := fn(ctx)
			results <- poolResult{source: source, candidates: candidates, err: err}
		}(run.source, run.fn)
	}
	wg.Wait()
	close(results)

	pools := make(map[string][]Candidate, len(runs))
	for r := range results {
		if r.err != nil {
			a.logger.Warn("Candidate generator failed, using empty pool",
				zap.String("source", r.source),
				zap.Int64("user_id", userID),
				zap.Error(r.err))
			continue
		}
		pools[r.source] = r.candidates
	}
	return pools
}

// dedupOrder scans pools highest-priority first so a persona proposed by
// several sources is attributed to the winning one.
var dedupOrder = []string{
	models.SourcePersonalized,
	models.SourceSocial,
	models.SourceTrending,
	models.SourcePromoted,
}

// mix applies the slot ratio, dedup, exclusions and final ordering
func (a *Assembler) mix(pools map[string][]Candidate, excluded map[int64]bool, includePromoted bool, limit int) []Candidate {
	// Dedup across sources, dropping excluded personas
	chosen := make(map[int64]Candidate)
	for _, source := range dedupOrder {
		for _, c := range pools[source] {
			if excluded[c.PersonaID] {
				continue
			}
			if _, ok := chosen[c.PersonaID]; !ok {
				chosen[c.PersonaID] = c
			}
		}
	}

	slots := a.allocateSlots(limit, includePromoted)

	// Fill each source's slot count from its deduped pool
	selected := make([]Candidate, 0, limit)
	taken := make(map[int64]bool)
	for _, source := range dedupOrder {
		quota := slots[source]
		for _, c := range pools[source] {
			if quota == 0 {
				break
			}
			winner, ok := chosen[c.PersonaID]
			if !ok || winner.Source != source || taken[c.PersonaID] {
				continue
			}
			selected = append(selected, winner)
			taken[c.PersonaID] = true
			quota--
		}
	}

	// Backfill unused slots from the remaining candidates, priority order
	if len(selected) < limit {
		for _, source := range dedupOrder {
			for _, c := range pools[source] {
				if len(selected) >= limit {
					break
				}
				winner, ok := chosen[c.PersonaID]
				if !ok || winner.Source != source || taken[c.PersonaID] {
					continue
				}
				selected = append(selected, winner)
				taken[c.PersonaID] = true
			}
		}
	}

	// Final mixed order: relevance descending; equal raw scores break by
	// source priority with social first so a followed creator's new persona
	// leads equally scored trending or personalized items.
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Relevance != selected[j].Relevance {
			return selected[i].Relevance > selected[j].Relevance
		}
		pi, pj := orderPriority(selected[i].Source), orderPriority(selected[j].Source)
		if pi != pj {
			return pi > pj
		}
		return selected[i].PersonaID < selected[j].PersonaID
	})

	if len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}

func orderPriority(source string) int {
	switch source {
	case models.SourceSocial:
		return 4
	case models.SourcePersonalized:
		return 3
	case models.SourceTrending:
		return 2
	case models.SourcePromoted:
		return 1
	default:
		return 0
	}
}

// allocateSlots converts the mixing percentages into integer slot counts
// summing to limit, largest remainder first. With promoted slots disabled
// the promoted share is redistributed across the other sources.
func (a *Assembler) allocateSlots(limit int, includePromoted bool) map[string]int {
	pcts := map[string]int{
		models.SourcePersonalized: a.cfg.PersonalizedPct,
		models.SourceTrending:     a.cfg.TrendingPct,
		models.SourceSocial:       a.cfg.SocialPct,
	}
	total := a.cfg.PersonalizedPct + a.cfg.TrendingPct + a.cfg.SocialPct
	if includePromoted {
		pcts[models.SourcePromoted] = a.cfg.PromotedPct
		total += a.cfg.PromotedPct
	}
	if total == 0 {
		return map[string]int{}
	}

	type share struct {
		source    string
		count     int
		remainder int
	}
	shares := make([]share, 0, len(pcts))
	assigned := 0
	for _, source := range dedupOrder {
		pct, ok := pcts[source]
		if !ok {
			continue
		}
		exact := limit * pct
		count := exact / total
		shares = append(shares, share{source: source, count: count, remainder: exact % total})
		assigned += count
	}

	// Hand leftover slots to the largest remainders
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder > shares[j].remainder
	})
	for i := 0; assigned < limit && len(shares) > 0; i = (i + 1) % len(shares) {
		shares[i].count++
		assigned++
	}

	slots := make(map[string]int, len(shares))
	for _, s := range shares {
		slots[s.source] = s.count
	}
	return slots
}

// GetFeed returns a page of the user's latest non-superseded batch ordered
// by feed position.
func (a *Assembler) GetFeed(ctx context.Context, userID int64, limit, offset int) ([]models.FeedItem, error) {
	if limit <= 0 {
		limit = a.cfg.DefaultLimit
	}
	if limit > a.cfg.MaxLimit {
		limit = a.cfg.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, err := a.feed.GetFeedPage(ctx, userID, limit, offset)
	if err != nil {
		return nil, Internalf("read feed page for user %d", userID)
	}
	return items, nil
}

// GetFeedMetrics aggregates the user's outcome flags within the timeframe
func (a *Assembler) GetFeedMetrics(ctx context.Context, userID int64, timeframe string) (*FeedMetrics, error) {
	window, err := ParseWindow(timeframe)
	if err != nil {
		return nil, err
	}
	counts, err := a.feed.OutcomeCounts(ctx, userID, a.now().Add(-window.Duration()))
	if err != nil {
		return nil, Internalf("aggregate outcomes for user %d", userID)
	}

	m := &FeedMetrics{
		Timeframe: string(window),
		Items:     counts.Items,
		Viewed:    counts.Viewed,
		Clicked:   counts.Clicked,
		Liked:     counts.Liked,
		Shared:    counts.Shared,
		Dismissed: counts.Dismissed,
	}
	if counts.Viewed > 0 {
		m.ClickRate = round2(float64(counts.Clicked) / float64(counts.Viewed))
		m.LikeRate = round2(float64(counts.Liked) / float64(counts.Viewed))
	}
	if counts.Items > 0 {
		m.DismissRate = round2(float64(counts.Dismissed) / float64(counts.Items))
	}
	return m, nil
}
