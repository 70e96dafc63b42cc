package persistence

import (
	"context"

	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSettlementLogRepository implements SettlementLogRepository using GORM.
// It is read-only: log rows are written by the batch repository inside the
// same transaction as the state change they record.
type GormSettlementLogRepository struct {
	db *gorm.DB
}

// NewGormSettlementLogRepository creates a new GormSettlementLogRepository
func NewGormSettlementLogRepository(db *gorm.DB) *GormSettlementLogRepository {
	return &GormSettlementLogRepository{db: db}
}

// FindByBatchOrdered returns the full audit trail of a batch in chronological order
func (r *GormSettlementLogRepository) FindByBatchOrdered(ctx context.Context, tenantID, batchID uuid.UUID) ([]settlement.LogEntry, error) {
	var logModels []models.SettlementLogModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND batch_id = ?", tenantID, batchID).
		Order("created_at ASC").
		Find(&logModels).Error
	if err != nil {
		return nil, err
	}

	entries := make([]settlement.LogEntry, len(logModels))
	for i := range logModels {
		entries[i] = *logModels[i].ToDomain()
	}
	return entries, nil
}

// CountByBatch counts audit entries for a batch
func (r *GormSettlementLogRepository) CountByBatch(ctx context.Context, tenantID, batchID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SettlementLogModel{}).
		Where("tenant_id = ? AND batch_id = ?", tenantID, batchID).
		Count(&count).Error
	return count, err
}
