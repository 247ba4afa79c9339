package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/personaverse/discovery/internal/engine"
	"github.com/personaverse/discovery/internal/models"
)

// MetricsRepository provides access to discovery metrics rows. Write methods
// are reserved for the aggregator.
type MetricsRepository struct {
	*Repository
}

// NewMetricsRepository creates a new metrics repository
func NewMetricsRepository(repo *Repository) *MetricsRepository {
	return &MetricsRepository{Repository: repo}
}

// Get retrieves the metrics row for a persona
func (r *MetricsRepository) Get(ctx context.Context, personaID int64) (*models.DiscoveryMetrics, error) {
	var metrics models.DiscoveryMetrics
	if err := r.db.WithContext(ctx).
		Where("persona_id = ?", personaID).
		First(&metrics).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &metrics, nil
}

// GetBatch retrieves metrics rows for multiple personas keyed by persona ID.
// Personas without a row are simply absent from the map.
func (r *MetricsRepository) GetBatch(ctx context.Context, personaIDs []int64) (map[int64]models.DiscoveryMetrics, error) {
	if len(personaIDs) == 0 {
		return map[int64]models.DiscoveryMetrics{}, nil
	}
	var rows []models.DiscoveryMetrics
	if err := r.db.WithContext(ctx).
		Where("persona_id IN ?", personaIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]models.DiscoveryMetrics, len(rows))
	for _, row := range rows {
		byID[row.PersonaID] = row
	}
	return byID, nil
}

// Upsert writes a metrics row, replacing any previous snapshot for the persona
func (r *MetricsRepository) Upsert(ctx context.Context, m *models.DiscoveryMetrics) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "persona_id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

// UpdateRanks writes the full rank snapshot in one transaction so readers
// never observe a partially updated rank table.
func (r *MetricsRepository) UpdateRanks(ctx context.Context, ranks []engine.RankAssignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rank := range ranks {
			if err := tx.Model(&models.DiscoveryMetrics{}).
				Where("persona_id = ?", rank.PersonaID).
				Updates(map[string]interface{}{
					"discovery_rank": rank.DiscoveryRank,
					"category_rank":  rank.CategoryRank,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TopByTrending returns the highest trending-score rows
func (r *MetricsRepository) TopByTrending(ctx context.Context, limit int) ([]models.DiscoveryMetrics, error) {
	var rows []models.DiscoveryMetrics
	if err := r.db.WithContext(ctx).
		Order("trending_score DESC, persona_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
