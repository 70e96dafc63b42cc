package persistence

import (
	"context"
	"time"

	"github.com/marketplace/backend/internal/domain/webhook"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWebhookDeliveryRepository implements DeliveryJobRepository using GORM.
// It backs the durable delivery queue worked by the webhook worker pool.
type GormWebhookDeliveryRepository struct {
	db *gorm.DB
}

// NewGormWebhookDeliveryRepository creates a new GormWebhookDeliveryRepository
func NewGormWebhookDeliveryRepository(db *gorm.DB) *GormWebhookDeliveryRepository {
	return &GormWebhookDeliveryRepository{db: db}
}

// Save persists one or more delivery jobs
func (r *GormWebhookDeliveryRepository) Save(ctx context.Context, jobs ...*webhook.DeliveryJob) error {
	if len(jobs) == 0 {
		return nil
	}

	jobModels := make([]*models.WebhookDeliveryModel, len(jobs))
	for i, j := range jobs {
		jobModels[i] = models.WebhookDeliveryModelFromDomain(j)
	}
	return r.db.WithContext(ctx).Create(jobModels).Error
}

// ClaimDue atomically claims up to limit due jobs and returns them in
// PROCESSING status. FOR UPDATE SKIP LOCKED lets concurrent workers claim
// disjoint sets, so each job has a single in-flight owner.
func (r *GormWebhookDeliveryRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*webhook.DeliveryJob, error) {
	var jobModels []*models.WebhookDeliveryModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("status = ? OR (status = ? AND next_attempt_at <= ?)",
				webhook.DeliveryStatusPending, webhook.DeliveryStatusFailed, now).
			Order("created_at ASC").
			Limit(limit).
			Find(&jobModels).Error; err != nil {
			return err
		}

		if len(jobModels) == 0 {
			return nil
		}

		jobIDs := make([]uuid.UUID, len(jobModels))
		for i, m := range jobModels {
			jobIDs[i] = m.ID
		}

		claimedAt := time.Now()
		if err := tx.Model(&models.WebhookDeliveryModel{}).
			Where("id IN ?", jobIDs).
			Updates(map[string]interface{}{
				"status":     webhook.DeliveryStatusProcessing,
				"updated_at": claimedAt,
			}).Error; err != nil {
			return err
		}

		for _, m := range jobModels {
			m.Status = webhook.DeliveryStatusProcessing
			m.UpdatedAt = claimedAt
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	jobs := make([]*webhook.DeliveryJob, len(jobModels))
	for i, m := range jobModels {
		jobs[i] = m.ToDomain()
	}
	return jobs, nil
}

// Update updates an existing delivery job
func (r *GormWebhookDeliveryRepository) Update(ctx context.Context, job *webhook.DeliveryJob) error {
	job.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.WebhookDeliveryModelFromDomain(job)).Error
}

// FindDead lists permanently failed jobs for operator inspection
func (r *GormWebhookDeliveryRepository) FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*webhook.DeliveryJob, int64, error) {
	var jobModels []*models.WebhookDeliveryModel
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.WebhookDeliveryModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, webhook.DeliveryStatusDead)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	if err := query.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&jobModels).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]*webhook.DeliveryJob, len(jobModels))
	for i, m := range jobModels {
		jobs[i] = m.ToDomain()
	}
	return jobs, total, nil
}

// DeleteOlderThan prunes delivered and dead jobs outside the retention window
func (r *GormWebhookDeliveryRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]webhook.DeliveryStatus{webhook.DeliveryStatusDelivered, webhook.DeliveryStatusDead}, before).
		Delete(&models.WebhookDeliveryModel{})
	return result.RowsAffected, result.Error
}
