package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/marketplace/backend/internal/domain/partner"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWebhookConfigRepository implements WebhookConfigRepository using GORM.
// Webhook configuration lives on the partner record; the engine only reads
// it and stamps the last successful delivery time.
type GormWebhookConfigRepository struct {
	db *gorm.DB
}

// NewGormWebhookConfigRepository creates a new GormWebhookConfigRepository
func NewGormWebhookConfigRepository(db *gorm.DB) *GormWebhookConfigRepository {
	return &GormWebhookConfigRepository{db: db}
}

// FindByPartner returns the webhook config for a partner
func (r *GormWebhookConfigRepository) FindByPartner(ctx context.Context, tenantID, partnerID uuid.UUID) (*partner.WebhookConfig, error) {
	var model models.PartnerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, partnerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToWebhookConfig(), nil
}

// UpdateLastDeliveredAt records the most recent successful delivery. Losing a
// concurrent write here is harmless, so no locking or version check is used.
func (r *GormWebhookConfigRepository) UpdateLastDeliveredAt(ctx context.Context, partnerID uuid.UUID, deliveredAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PartnerModel{}).
		Where("id = ?", partnerID).
		Update("webhook_last_delivered_at", deliveredAt).Error
}
