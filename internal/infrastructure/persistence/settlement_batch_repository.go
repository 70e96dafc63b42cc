package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSettlementBatchRepository implements SettlementBatchRepository using GORM.
// All state-changing methods write the batch row, its audit log entry and any
// pending domain events in a single transaction.
type GormSettlementBatchRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormSettlementBatchRepository creates a new GormSettlementBatchRepository
func NewGormSettlementBatchRepository(db *gorm.DB) *GormSettlementBatchRepository {
	return &GormSettlementBatchRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormSettlementBatchRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a batch by its ID
func (r *GormSettlementBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.SettlementBatch, error) {
	var model models.SettlementBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a batch by ID within a tenant
func (r *GormSettlementBatchRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*settlement.SettlementBatch, error) {
	var model models.SettlementBatchModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all batches for a tenant with filtering
func (r *GormSettlementBatchRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter settlement.BatchFilter) ([]settlement.SettlementBatch, error) {
	var batchModels []models.SettlementBatchModel

	query := r.db.WithContext(ctx).Model(&models.SettlementBatchModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)
	query = r.applyPagination(query, filter)

	if err := query.Find(&batchModels).Error; err != nil {
		return nil, err
	}

	batches := make([]settlement.SettlementBatch, len(batchModels))
	for i := range batchModels {
		batches[i] = *batchModels[i].ToDomain()
	}
	return batches, nil
}

// CountForTenant counts batches for a tenant matching the filter
func (r *GormSettlementBatchRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter settlement.BatchFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.SettlementBatchModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsForPeriod reports whether a batch already covers the given owner and period
func (r *GormSettlementBatchRepository) ExistsForPeriod(ctx context.Context, tenantID uuid.UUID, contextType settlement.ContextType, ownerID uuid.UUID, periodStart, periodEnd time.Time, unit settlement.PeriodUnit) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SettlementBatchModel{}).
		Where("tenant_id = ? AND context_type = ? AND owner_id = ? AND period_start = ? AND period_end = ? AND period_unit = ?",
			tenantID, contextType, ownerID, periodStart, periodEnd, unit).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateWithLog inserts a new batch and its creation log entry atomically.
// A unique constraint violation on the period index maps to ErrDuplicateBatch,
// so two racing opens for the same owner and period yield exactly one batch.
func (r *GormSettlementBatchRepository) CreateWithLog(ctx context.Context, batch *settlement.SettlementBatch, entry *settlement.LogEntry) error {
	events := batch.GetDomainEvents()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.SettlementBatchModelFromDomain(batch)
		if err := tx.Create(model).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.ErrDuplicateBatch
			}
			return err
		}

		if err := tx.Create(models.SettlementLogModelFromDomain(entry)).Error; err != nil {
			return err
		}

		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	batch.ClearDomainEvents()
	return nil
}

// SaveWithLog persists batch state and the transition's log entry in one
// transaction, with an optimistic version check on the batch row
func (r *GormSettlementBatchRepository) SaveWithLog(ctx context.Context, batch *settlement.SettlementBatch, entry *settlement.LogEntry) error {
	events := batch.GetDomainEvents()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.SettlementBatchModelFromDomain(batch)

		// The domain already incremented the version; the previous value must
		// still be on the row or someone else got there first.
		result := tx.Model(&models.SettlementBatchModel{}).
			Where("id = ? AND version = ?", batch.ID, batch.Version-1).
			Updates(map[string]interface{}{
				"status":            model.Status,
				"total_amount":      model.TotalAmount,
				"commission_amount": model.CommissionAmount,
				"net_amount":        model.NetAmount,
				"line_snapshot":     model.LineSnapshot,
				"payment_ref":       model.PaymentRef,
				"failure_reason":    model.FailureReason,
				"cancel_reason":     model.CancelReason,
				"closed_at":         model.ClosedAt,
				"paid_at":           model.PaidAt,
				"version":           model.Version,
				"updated_at":        model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Create(models.SettlementLogModelFromDomain(entry)).Error; err != nil {
			return err
		}

		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	batch.ClearDomainEvents()
	return nil
}

// TransitionWithLog performs the guarded status transition as a conditional
// write: the batch row changes only if its current status is still in
// allowedFrom. The losing caller gets ErrConcurrencyConflict and no log row.
func (r *GormSettlementBatchRepository) TransitionWithLog(ctx context.Context, batch *settlement.SettlementBatch, allowedFrom []settlement.BatchStatus, entry *settlement.LogEntry) error {
	events := batch.GetDomainEvents()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.SettlementBatchModelFromDomain(batch)

		result := tx.Model(&models.SettlementBatchModel{}).
			Where("id = ? AND status IN ?", batch.ID, statusStrings(allowedFrom)).
			Updates(map[string]interface{}{
				"status":         model.Status,
				"payment_ref":    model.PaymentRef,
				"failure_reason": model.FailureReason,
				"cancel_reason":  model.CancelReason,
				"closed_at":      model.ClosedAt,
				"paid_at":        model.PaidAt,
				"version":        model.Version,
				"updated_at":     model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Create(models.SettlementLogModelFromDomain(entry)).Error; err != nil {
			return err
		}

		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	batch.ClearDomainEvents()
	return nil
}

// GenerateBatchNumber generates a unique batch number for a tenant.
// Format: STL-YYYYMMDD-NNNNN (e.g., STL-20260301-00001)
func (r *GormSettlementBatchRepository) GenerateBatchNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("STL-%s-", time.Now().Format("20060102"))

	var lastBatch models.SettlementBatchModel
	err := r.db.WithContext(ctx).
		Model(&models.SettlementBatchModel{}).
		Where("tenant_id = ? AND batch_number LIKE ?", tenantID, prefix+"%").
		Order("batch_number DESC").
		First(&lastBatch).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && lastBatch.BatchNumber != "" {
		parts := strings.Split(lastBatch.BatchNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// applyFilter applies batch filter conditions to the query
func (r *GormSettlementBatchRepository) applyFilter(query *gorm.DB, filter settlement.BatchFilter) *gorm.DB {
	if filter.ContextType != nil {
		query = query.Where("context_type = ?", *filter.ContextType)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PeriodFrom != nil {
		query = query.Where("period_start >= ?", *filter.PeriodFrom)
	}
	if filter.PeriodTo != nil {
		query = query.Where("period_end <= ?", *filter.PeriodTo)
	}
	return query
}

// applyPagination applies sorting and pagination to the query
func (r *GormSettlementBatchRepository) applyPagination(query *gorm.DB, filter settlement.BatchFilter) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, SettlementBatchSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

// statusStrings converts batch statuses to strings for IN clauses
func statusStrings(statuses []settlement.BatchStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// isUniqueViolation reports whether the error is a Postgres unique constraint
// violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "SQLSTATE 23505") ||
		strings.Contains(err.Error(), "duplicate key value")
}
