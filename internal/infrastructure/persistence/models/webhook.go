package models

import (
	"time"

	"github.com/marketplace/backend/internal/domain/webhook"
	"github.com/google/uuid"
)

// WebhookDeliveryModel is the persistence model for the durable webhook
// delivery queue
type WebhookDeliveryModel struct {
	ID            uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID              `gorm:"type:uuid;not null;index:idx_webhook_tenant_status,priority:1"`
	PartnerID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	EventID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	Event         string                 `gorm:"type:varchar(100);not null"`
	URL           string                 `gorm:"type:varchar(2048);not null"`
	Secret        string                 `gorm:"type:varchar(255);not null"`
	Payload       []byte                 `gorm:"type:jsonb;not null"`
	Status        webhook.DeliveryStatus `gorm:"type:varchar(20);not null;index:idx_webhook_tenant_status,priority:2;index:idx_webhook_due,priority:1"`
	Attempts      int                    `gorm:"not null;default:0"`
	MaxAttempts   int                    `gorm:"not null;default:5"`
	LastError     string                 `gorm:"type:text"`
	NextAttemptAt *time.Time             `gorm:"index:idx_webhook_due,priority:2"`
	DeliveredAt   *time.Time
	CreatedAt     time.Time `gorm:"not null;default:now()"`
	UpdatedAt     time.Time `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (WebhookDeliveryModel) TableName() string {
	return "webhook_deliveries"
}

// ToDomain converts the persistence model to a domain DeliveryJob
func (m *WebhookDeliveryModel) ToDomain() *webhook.DeliveryJob {
	return &webhook.DeliveryJob{
		ID:            m.ID,
		TenantID:      m.TenantID,
		PartnerID:     m.PartnerID,
		EventID:       m.EventID,
		Event:         m.Event,
		URL:           m.URL,
		Secret:        m.Secret,
		Payload:       m.Payload,
		Status:        m.Status,
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		LastError:     m.LastError,
		NextAttemptAt: m.NextAttemptAt,
		DeliveredAt:   m.DeliveredAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain DeliveryJob
func (m *WebhookDeliveryModel) FromDomain(j *webhook.DeliveryJob) {
	m.ID = j.ID
	m.TenantID = j.TenantID
	m.PartnerID = j.PartnerID
	m.EventID = j.EventID
	m.Event = j.Event
	m.URL = j.URL
	m.Secret = j.Secret
	m.Payload = j.Payload
	m.Status = j.Status
	m.Attempts = j.Attempts
	m.MaxAttempts = j.MaxAttempts
	m.LastError = j.LastError
	m.NextAttemptAt = j.NextAttemptAt
	m.DeliveredAt = j.DeliveredAt
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
}

// WebhookDeliveryModelFromDomain creates a new persistence model from a domain DeliveryJob
func WebhookDeliveryModelFromDomain(j *webhook.DeliveryJob) *WebhookDeliveryModel {
	m := &WebhookDeliveryModel{}
	m.FromDomain(j)
	return m
}
