package dal

import (
	"context"
	"fmt"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"gorm.io/gorm"
)

// MaxHistoryLimit caps how many exchanges a single listing returns.
const MaxHistoryLimit = 50

// HistoryDAL stores question/answer exchanges in the relational database.
type HistoryDAL struct {
	db *gorm.DB
}

// NewHistoryDAL creates a new HistoryDAL.
func NewHistoryDAL(db *gorm.DB) *HistoryDAL {
	return &HistoryDAL{db: db}
}

// Record appends an exchange.
func (dal *HistoryDAL) Record(ctx context.Context, h *models.QueryHistory) error {
	if err := dal.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// List returns a tenant's most recent exchanges first.
func (dal *HistoryDAL) List(ctx context.Context, tenantID string, limit int) ([]*models.QueryHistory, error) {
	var records []*models.QueryHistory
	result := dal.db.WithContext(ctx).
		Where("user_id = ?", tenantID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(ClampLimit(limit)).
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("list history: %w", result.Error)
	}
	return records, nil
}

// Delete removes one exchange. It only matches rows owned by tenantID, so a
// tenant cannot delete another tenant's record even when it knows the ID.
func (dal *HistoryDAL) Delete(ctx context.Context, tenantID, id string) error {
	result := dal.db.WithContext(ctx).Where("user_id = ? AND id = ?", tenantID, id).Delete(&models.QueryHistory{})
	if result.Error != nil {
		return fmt.Errorf("delete history: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: history %s", schema.ErrNotFound, id)
	}
	return nil
}

// ClampLimit maps a requested page size into 1..MaxHistoryLimit, treating
// non-positive values as the maximum.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

var _ interfaces.HistoryRecorder = (*HistoryDAL)(nil)
