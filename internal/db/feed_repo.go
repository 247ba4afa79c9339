package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/personaverse/discovery/internal/engine"
	"github.com/personaverse/discovery/internal/models"
)

// FeedRepository provides access to feed item batches
type FeedRepository struct {
	*Repository
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(repo *Repository) *FeedRepository {
	return &FeedRepository{Repository: repo}
}

// outcomeColumns maps interaction names to their flag columns. The column
// set is closed: the tracker may touch nothing else post-creation.
var outcomeColumns = map[string]string{
	"viewed":    "was_viewed",
	"clicked":   "was_clicked",
	"liked":     "was_liked",
	"shared":    "was_shared",
	"dismissed": "was_dismissed",
}

// latestBatchID returns the newest non-superseded batch for the user, or ""
// when the user has none. Creation time plus row ID gives a monotonic batch
// order, so two concurrent generations cannot both read as "latest".
func (r *FeedRepository) latestBatchID(ctx context.Context, userID int64) (string, error) {
	var item models.FeedItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND superseded = ?", userID, false).
		Order("created_at DESC, id DESC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return item.BatchID, nil
}

// LatestBatch returns the newest non-superseded batch ordered by position
func (r *FeedRepository) LatestBatch(ctx context.Context, userID int64) ([]models.FeedItem, error) {
	batchID, err := r.latestBatchID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if batchID == "" {
		return nil, nil
	}
	var items []models.FeedItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Order("feed_position ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CreateBatch persists the new batch and supersedes all prior batches of the
// user in the same transaction. Prior items are retained for audit.
func (r *FeedRepository) CreateBatch(ctx context.Context, userID int64, items []models.FeedItem) error {
	if len(items) == 0 {
		return fmt.Errorf("refusing to create empty feed batch for user %d", userID)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FeedItem{}).
			Where("user_id = ? AND superseded = ?", userID, false).
			Update("superseded", true).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
}

// GetFeedPage returns a page of the latest non-superseded batch
func (r *FeedRepository) GetFeedPage(ctx context.Context, userID int64, limit, offset int) ([]models.FeedItem, error) {
	batchID, err := r.latestBatchID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if batchID == "" {
		return []models.FeedItem{}, nil
	}
	var items []models.FeedItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Order("feed_position ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem retrieves a feed item by ID
func (r *FeedRepository) GetItem(ctx context.Context, feedItemID int64) (*models.FeedItem, error) {
	var item models.FeedItem
	if err := r.db.WithContext(ctx).First(&item, feedItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// SetOutcomeFlag sets the named flag true. The guarded WHERE makes the write
// idempotent and serializes concurrent calls at the row level: the flag can
// only ever transition false→true.
func (r *FeedRepository) SetOutcomeFlag(ctx context.Context, feedItemID int64, flag string) error {
	column, ok := outcomeColumns[flag]
	if !ok {
		return fmt.Errorf("unknown outcome flag %q", flag)
	}
	return r.db.WithContext(ctx).
		Model(&models.FeedItem{}).
		Where("id = ? AND "+column+" = ?", feedItemID, false).
		Update(column, true).Error
}

// SurfacedPersonaIDs returns every persona that has appeared in any of the
// user's batches, superseded ones included.
func (r *FeedRepository) SurfacedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	var personaIDs []int64
	if err := r.db.WithContext(ctx).
		Model(&models.FeedItem{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("persona_id", &personaIDs).Error; err != nil {
		return nil, err
	}
	return personaIDs, nil
}

// DismissedPersonaIDs returns personas the user dismissed in any batch
func (r *FeedRepository) DismissedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	var personaIDs []int64
	if err := r.db.WithContext(ctx).
		Model(&models.FeedItem{}).
		Where("user_id = ? AND was_dismissed = ?", userID, true).
		Distinct().
		Pluck("persona_id", &personaIDs).Error; err != nil {
		return nil, err
	}
	return personaIDs, nil
}

// OutcomeCounts aggregates outcome flags over the user's feed history since
// the window start, superseded batches included.
func (r *FeedRepository) OutcomeCounts(ctx context.Context, userID int64, since time.Time) (*engine.OutcomeCounts, error) {
	var counts engine.OutcomeCounts
	if err := r.db.WithContext(ctx).
		Model(&models.FeedItem{}).
		Select(`COUNT(*) AS items,
			COUNT(*) FILTER (WHERE was_viewed) AS viewed,
			COUNT(*) FILTER (WHERE was_clicked) AS clicked,
			COUNT(*) FILTER (WHERE was_liked) AS liked,
			COUNT(*) FILTER (WHERE was_shared) AS shared,
			COUNT(*) FILTER (WHERE was_dismissed) AS dismissed`).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return &counts, nil
}
