package persistence

import (
	"context"
	"time"

	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSettlementTransactionRepository implements SettlementTransactionRepository using GORM
type GormSettlementTransactionRepository struct {
	db *gorm.DB
}

// NewGormSettlementTransactionRepository creates a new GormSettlementTransactionRepository
func NewGormSettlementTransactionRepository(db *gorm.DB) *GormSettlementTransactionRepository {
	return &GormSettlementTransactionRepository{db: db}
}

// Save persists a new settlement transaction
func (r *GormSettlementTransactionRepository) Save(ctx context.Context, tx *settlement.SettlementTransaction) error {
	model := models.SettlementTransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindForPeriod returns all transactions for an owner within a period.
// The period is half-open: occurred_at >= start and < end, so adjacent
// periods never double-count a transaction.
func (r *GormSettlementTransactionRepository) FindForPeriod(ctx context.Context, tenantID uuid.UUID, contextType settlement.ContextType, ownerID uuid.UUID, periodStart, periodEnd time.Time) ([]settlement.SettlementTransaction, error) {
	var txModels []models.SettlementTransactionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND context_type = ? AND owner_id = ? AND occurred_at >= ? AND occurred_at < ?",
			tenantID, contextType, ownerID, periodStart, periodEnd).
		Order("occurred_at ASC").
		Find(&txModels).Error
	if err != nil {
		return nil, err
	}

	transactions := make([]settlement.SettlementTransaction, len(txModels))
	for i := range txModels {
		transactions[i] = *txModels[i].ToDomain()
	}
	return transactions, nil
}
