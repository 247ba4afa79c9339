package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/personaverse/discovery/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PersonaRepository provides read access to persona records
type PersonaRepository struct {
	*Repository
}

// NewPersonaRepository creates a new persona repository
func NewPersonaRepository(repo *Repository) *PersonaRepository {
	return &PersonaRepository{Repository: repo}
}

// GetPersona retrieves a persona by ID
func (r *PersonaRepository) GetPersona(ctx context.Context, id int64) (*models.Persona, error) {
	var persona models.Persona
	if err := r.db.WithContext(ctx).First(&persona, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &persona, nil
}

// GetPersonas retrieves multiple personas by IDs
func (r *PersonaRepository) GetPersonas(ctx context.Context, ids []int64) ([]models.Persona, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var personas []models.Persona
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

// ListPersonas pages through all personas in stable ID order
func (r *PersonaRepository) ListPersonas(ctx context.Context, offset, limit int) ([]models.Persona, error) {
	var personas []models.Persona
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

// ListPublicPersonas retrieves public personas, optionally filtered by category
func (r *PersonaRepository) ListPublicPersonas(ctx context.Context, categories []string, limit int) ([]models.Persona, error) {
	query := r.db.WithContext(ctx).
		Where("visibility = ?", models.VisibilityPublic)
	if len(categories) > 0 {
		query = query.Where("category IN ?", categories)
	}
	var personas []models.Persona
	if err := query.Order("created_at DESC").Limit(limit).Find(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

// ListByOwners retrieves the most recent personas of the given creators
func (r *PersonaRepository) ListByOwners(ctx context.Context, ownerIDs []int64, limit int) ([]models.Persona, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var personas []models.Persona
	if err := r.db.WithContext(ctx).
		Where("owner_id IN ?", ownerIDs).
		Order("created_at DESC").
		Limit(limit).
		Find(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

// ListPromoted retrieves public personas flagged for promoted slots
func (r *PersonaRepository) ListPromoted(ctx context.Context, limit int) ([]models.Persona, error) {
	var personas []models.Persona
	if err := r.db.WithContext(ctx).
		Where("is_promoted = ? AND visibility = ?", true, models.VisibilityPublic).
		Order("created_at DESC").
		Limit(limit).
		Find(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

// SearchPersonas matches public personas by name or category substring
func (r *PersonaRepository) SearchPersonas(ctx context.Context, query string, categories []string, limit int) ([]models.Persona, error) {
	pattern := "%" + query + "%"
	q := r.db.WithContext(ctx).
		Where("visibility = ?", models.VisibilityPublic).
		Where("name ILIKE ? OR category ILIKE ?", pattern, pattern)
	if len(categories) > 0 {
		q = q.Where("category IN ?", categories)
	}
	var personas []models.Persona
	if err := q.Order("created_at DESC").Limit(limit).Find(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

// SocialRepository provides read access to the social graph
type SocialRepository struct {
	*Repository
}

// NewSocialRepository creates a new social repository
func NewSocialRepository(repo *Repository) *SocialRepository {
	return &SocialRepository{Repository: repo}
}

// ListFollowedCreators returns the creators the user actively follows
func (r *SocialRepository) ListFollowedCreators(ctx context.Context, userID int64) ([]int64, error) {
	var creatorIDs []int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserFollow{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("creator_id", &creatorIDs).Error; err != nil {
		return nil, err
	}
	return creatorIDs, nil
}

// IsFollowing reports whether the user actively follows the creator
func (r *SocialRepository) IsFollowing(ctx context.Context, userID, creatorID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserFollow{}).
		Where("user_id = ? AND creator_id = ? AND is_active = ?", userID, creatorID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListBlockedPersonas returns the personas the user has blocked
func (r *SocialRepository) ListBlockedPersonas(ctx context.Context, userID int64) ([]int64, error) {
	var personaIDs []int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserBlock{}).
		Where("user_id = ?", userID).
		Pluck("persona_id", &personaIDs).Error; err != nil {
		return nil, err
	}
	return personaIDs, nil
}

// EngagementRepository provides access to the event log and signal tables
type EngagementRepository struct {
	*Repository
}

// NewEngagementRepository creates a new engagement repository
func NewEngagementRepository(repo *Repository) *EngagementRepository {
	return &EngagementRepository{Repository: repo}
}

// AppendEvent appends one row to the event log
func (r *EngagementRepository) AppendEvent(ctx context.Context, event *models.EngagementEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CountByPersona returns per-persona counts of the given event types since
// the window start.
func (r *EngagementRepository) CountByPersona(ctx context.Context, eventTypes []string, since time.Time) (map[int64]int64, error) {
	var rows []struct {
		PersonaID int64
		Count     int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.EngagementEvent{}).
		Select("persona_id, COUNT(*) AS count").
		Where("event_type IN ? AND created_at >= ?", eventTypes, since).
		Group("persona_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[int64]int64, len(rows))
	for _, row := range rows {
		counts[row.PersonaID] = row.Count
	}
	return counts, nil
}

// ListRecentReviews returns reviews created since the given time
func (r *EngagementRepository) ListRecentReviews(ctx context.Context, since time.Time) ([]models.PersonaReview, error) {
	var reviews []models.PersonaReview
	if err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

// ListActiveLikes returns the user's active persona likes
func (r *EngagementRepository) ListActiveLikes(ctx context.Context, userID int64) ([]models.PersonaLike, error) {
	var likes []models.PersonaLike
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&likes).Error; err != nil {
		return nil, err
	}
	return likes, nil
}

// ListActiveConnections returns the user's active persona subscriptions
func (r *EngagementRepository) ListActiveConnections(ctx context.Context, userID int64) ([]models.UserConnection, error) {
	var connections []models.UserConnection
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&connections).Error; err != nil {
		return nil, err
	}
	return connections, nil
}

// InteractedPersonaIDs returns personas the user has liked, subscribed to or
// reviewed, deduplicated.
func (r *EngagementRepository) InteractedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	seen := make(map[int64]bool)

	var likedIDs []int64
	if err := r.db.WithContext(ctx).
		Model(&models.PersonaLike{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("persona_id", &likedIDs).Error; err != nil {
		return nil, err
	}
	var connectedIDs []int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserConnection{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("persona_id", &connectedIDs).Error; err != nil {
		return nil, err
	}
	var reviewedIDs []int64
	if err := r.db.WithContext(ctx).
		Model(&models.PersonaReview{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("persona_id", &reviewedIDs).Error; err != nil {
		return nil, err
	}

	var out []int64
	for _, ids := range [][]int64{likedIDs, connectedIDs, reviewedIDs} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}
