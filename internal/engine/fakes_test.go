package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/personaverse/discovery/internal/models"
)

var errStoreDown = errors.New("store unreachable")

// In-memory stores backing the engine tests.

type memPersonas struct {
	personas map[int64]models.Persona
	err      error
}

func newMemPersonas(personas ...models.Persona) *memPersonas {
	byID := make(map[int64]models.Persona)
	for _, p := range personas {
		byID[p.ID] = p
	}
	return &memPersonas{personas: byID}
}

func (s *memPersonas) GetPersona(ctx context.Context, id int64) (*models.Persona, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.personas[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *memPersonas) GetPersonas(ctx context.Context, ids []int64) ([]models.Persona, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Persona
	for _, id := range ids {
		if p, ok := s.personas[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPersonas) ListPersonas(ctx context.Context, offset, limit int) ([]models.Persona, error) {
	if s.err != nil {
		return nil, s.err
	}
	all := s.sorted()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *memPersonas) ListPublicPersonas(ctx context.Context, categories []string, limit int) ([]models.Persona, error) {
	if s.err != nil {
		return nil, s.err
	}
	wanted := make(map[string]bool)
	for _, c := range categories {
		wanted[c] = true
	}
	var out []models.Persona
	for _, p := range s.sorted() {
		if !p.IsPublic() {
			continue
		}
		if len(wanted) > 0 && !wanted[p.Category] {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memPersonas) ListByOwners(ctx context.Context, ownerIDs []int64, limit int) ([]models.Persona, error) {
	if s.err != nil {
		return nil, s.err
	}
	owners := make(map[int64]bool)
	for _, id := range ownerIDs {
		owners[id] = true
	}
	var out []models.Persona
	for _, p := range s.sorted() {
		if owners[p.OwnerID] {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memPersonas) ListPromoted(ctx context.Context, limit int) ([]models.Persona, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Persona
	for _, p := range s.sorted() {
		if p.IsPromoted && p.IsPublic() {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memPersonas) SearchPersonas(ctx context.Context, query string, categories []string, limit int) ([]models.Persona, error) {
	if s.err != nil {
		return nil, s.err
	}
	wanted := make(map[string]bool)
	for _, c := range categories {
		wanted[c] = true
	}
	q := strings.ToLower(query)
	var out []models.Persona
	for _, p := range s.sorted() {
		if !p.IsPublic() {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Category), q) {
			continue
		}
		if len(wanted) > 0 && !wanted[p.Category] {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memPersonas) sorted() []models.Persona {
	out := make([]models.Persona, 0, len(s.personas))
	for _, p := range s.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memMetrics struct {
	rows         map[int64]models.DiscoveryMetrics
	upsertFailOn map[int64]bool
	err          error
	upserts      int
}

func newMemMetrics(rows ...models.DiscoveryMetrics) *memMetrics {
	byID := make(map[int64]models.DiscoveryMetrics)
	for _, r := range rows {
		byID[r.PersonaID] = r
	}
	return &memMetrics{rows: byID, upsertFailOn: make(map[int64]bool)}
}

func (s *memMetrics) Get(ctx context.Context, personaID int64) (*models.DiscoveryMetrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.rows[personaID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *memMetrics) GetBatch(ctx context.Context, personaIDs []int64) (map[int64]models.DiscoveryMetrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64]models.DiscoveryMetrics)
	for _, id := range personaIDs {
		if r, ok := s.rows[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (s *memMetrics) Upsert(ctx context.Context, m *models.DiscoveryMetrics) error {
	if s.err != nil {
		return s.err
	}
	if s.upsertFailOn[m.PersonaID] {
		return errStoreDown
	}
	s.rows[m.PersonaID] = *m
	s.upserts++
	return nil
}

func (s *memMetrics) UpdateRanks(ctx context.Context, ranks []RankAssignment) error {
	if s.err != nil {
		return s.err
	}
	for _, rank := range ranks {
		row := s.rows[rank.PersonaID]
		row.PersonaID = rank.PersonaID
		row.DiscoveryRank = rank.DiscoveryRank
		row.CategoryRank = rank.CategoryRank
		s.rows[rank.PersonaID] = row
	}
	return nil
}

func (s *memMetrics) TopByTrending(ctx context.Context, limit int) ([]models.DiscoveryMetrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.DiscoveryMetrics, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TrendingScore != out[j].TrendingScore {
			return out[i].TrendingScore > out[j].TrendingScore
		}
		return out[i].PersonaID < out[j].PersonaID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memEngagement struct {
	events      []models.EngagementEvent
	reviews     []models.PersonaReview
	likes       map[int64][]models.PersonaLike
	connections map[int64][]models.UserConnection
	appendErr   error
	err         error
}

func newMemEngagement() *memEngagement {
	return &memEngagement{
		likes:       make(map[int64][]models.PersonaLike),
		connections: make(map[int64][]models.UserConnection),
	}
}

func (s *memEngagement) addEvent(personaID int64, eventType string, at time.Time) {
	s.events = append(s.events, models.EngagementEvent{
		PersonaID: personaID,
		EventType: eventType,
		CreatedAt: at,
	})
}

func (s *memEngagement) AppendEvent(ctx context.Context, event *models.EngagementEvent) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *memEngagement) CountByPersona(ctx context.Context, eventTypes []string, since time.Time) (map[int64]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	types := make(map[string]bool)
	for _, t := range eventTypes {
		types[t] = true
	}
	counts := make(map[int64]int64)
	for _, e := range s.events {
		if types[e.EventType] && !e.CreatedAt.Before(since) {
			counts[e.PersonaID]++
		}
	}
	return counts, nil
}

func (s *memEngagement) ListRecentReviews(ctx context.Context, since time.Time) ([]models.PersonaReview, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.PersonaReview
	for _, r := range s.reviews {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memEngagement) ListActiveLikes(ctx context.Context, userID int64) ([]models.PersonaLike, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.likes[userID], nil
}

func (s *memEngagement) ListActiveConnections(ctx context.Context, userID int64) ([]models.UserConnection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.connections[userID], nil
}

func (s *memEngagement) InteractedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	seen := make(map[int64]bool)
	var out []int64
	for _, l := range s.likes[userID] {
		if !seen[l.PersonaID] {
			seen[l.PersonaID] = true
			out = append(out, l.PersonaID)
		}
	}
	for _, c := range s.connections[userID] {
		if !seen[c.PersonaID] {
			seen[c.PersonaID] = true
			out = append(out, c.PersonaID)
		}
	}
	for _, r := range s.reviews {
		if r.UserID == userID && !seen[r.PersonaID] {
			seen[r.PersonaID] = true
			out = append(out, r.PersonaID)
		}
	}
	return out, nil
}

type memSocial struct {
	follows map[int64][]int64
	blocks  map[int64][]int64
	err     error
}

func newMemSocial() *memSocial {
	return &memSocial{
		follows: make(map[int64][]int64),
		blocks:  make(map[int64][]int64),
	}
}

func (s *memSocial) ListFollowedCreators(ctx context.Context, userID int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.follows[userID], nil
}

func (s *memSocial) IsFollowing(ctx context.Context, userID, creatorID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, id := range s.follows[userID] {
		if id == creatorID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memSocial) ListBlockedPersonas(ctx context.Context, userID int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.blocks[userID], nil
}

type memFeed struct {
	items     []*models.FeedItem
	nextID    int64
	createErr error
	err       error
}

func newMemFeed() *memFeed {
	return &memFeed{nextID: 1}
}

func (s *memFeed) LatestBatch(ctx context.Context, userID int64) ([]models.FeedItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	var latest *models.FeedItem
	for _, it := range s.items {
		if it.UserID != userID || it.Superseded {
			continue
		}
		if latest == nil || it.CreatedAt.After(latest.CreatedAt) ||
			(it.CreatedAt.Equal(latest.CreatedAt) && it.ID > latest.ID) {
			latest = it
		}
	}
	if latest == nil {
		return nil, nil
	}
	var out []models.FeedItem
	for _, it := range s.items {
		if it.UserID == userID && it.BatchID == latest.BatchID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeedPosition < out[j].FeedPosition })
	return out, nil
}

func (s *memFeed) CreateBatch(ctx context.Context, userID int64, items []models.FeedItem) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.err != nil {
		return s.err
	}
	for _, it := range s.items {
		if it.UserID == userID {
			it.Superseded = true
		}
	}
	for i := range items {
		item := items[i]
		item.ID = s.nextID
		s.nextID++
		s.items = append(s.items, &item)
	}
	return nil
}

func (s *memFeed) GetFeedPage(ctx context.Context, userID int64, limit, offset int) ([]models.FeedItem, error) {
	batch, err := s.LatestBatch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if offset >= len(batch) {
		return []models.FeedItem{}, nil
	}
	end := offset + limit
	if end > len(batch) {
		end = len(batch)
	}
	return batch[offset:end], nil
}

func (s *memFeed) GetItem(ctx context.Context, feedItemID int64) (*models.FeedItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, it := range s.items {
		if it.ID == feedItemID {
			item := *it
			return &item, nil
		}
	}
	return nil, nil
}

func (s *memFeed) SetOutcomeFlag(ctx context.Context, feedItemID int64, flag string) error {
	if s.err != nil {
		return s.err
	}
	for _, it := range s.items {
		if it.ID != feedItemID {
			continue
		}
		switch flag {
		case "viewed":
			it.WasViewed = true
		case "clicked":
			it.WasClicked = true
		case "liked":
			it.WasLiked = true
		case "shared":
			it.WasShared = true
		case "dismissed":
			it.WasDismissed = true
		default:
			return errors.New("unknown flag")
		}
		return nil
	}
	return nil
}

func (s *memFeed) SurfacedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	seen := make(map[int64]bool)
	var out []int64
	for _, it := range s.items {
		if it.UserID == userID && !seen[it.PersonaID] {
			seen[it.PersonaID] = true
			out = append(out, it.PersonaID)
		}
	}
	return out, nil
}

func (s *memFeed) DismissedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	seen := make(map[int64]bool)
	var out []int64
	for _, it := range s.items {
		if it.UserID == userID && it.WasDismissed && !seen[it.PersonaID] {
			seen[it.PersonaID] = true
			out = append(out, it.PersonaID)
		}
	}
	return out, nil
}

func (s *memFeed) OutcomeCounts(ctx context.Context, userID int64, since time.Time) (*OutcomeCounts, error) {
	if s.err != nil {
		return nil, s.err
	}
	counts := &OutcomeCounts{}
	for _, it := range s.items {
		if it.UserID != userID || it.CreatedAt.Before(since) {
			continue
		}
		counts.Items++
		if it.WasViewed {
			counts.Viewed++
		}
		if it.WasClicked {
			counts.Clicked++
		}
		if it.WasLiked {
			counts.Liked++
		}
		if it.WasShared {
			counts.Shared++
		}
		if it.WasDismissed {
			counts.Dismissed++
		}
	}
	return counts, nil
}
