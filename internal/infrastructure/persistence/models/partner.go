package models

import (
	"time"

	"github.com/marketplace/backend/internal/domain/commission"
	"github.com/marketplace/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// PartnerModel is the persistence model for settleable parties (sellers,
// suppliers, partners, pharmacies). The engine reads the commission default
// and webhook configuration from this record; the partner management surface
// owns everything else.
type PartnerModel struct {
	TenantAggregateModel
	Name                   string                `gorm:"type:varchar(255);not null"`
	ContextType            string                `gorm:"type:varchar(30);not null;index"`
	CommissionPercent      *decimal.Decimal      `gorm:"type:decimal(5,2)"`
	WebhookURL             string                `gorm:"type:varchar(2048)"`
	WebhookSecret          string                `gorm:"type:varchar(255)"`
	WebhookEnabled         bool                  `gorm:"not null;default:false"`
	WebhookEvents          partner.WebhookEvents `gorm:"type:jsonb"`
	WebhookLastDeliveredAt *time.Time
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "partners"
}

// ToWebhookConfig extracts the webhook configuration read by the dispatcher
func (m *PartnerModel) ToWebhookConfig() *partner.WebhookConfig {
	return &partner.WebhookConfig{
		PartnerID:       m.ID,
		TenantID:        m.TenantID,
		URL:             m.WebhookURL,
		Secret:          m.WebhookSecret,
		Enabled:         m.WebhookEnabled,
		Events:          m.WebhookEvents,
		LastDeliveredAt: m.WebhookLastDeliveredAt,
	}
}

// ToSellerRate extracts the seller-level default commission rate, or nil
// when no default is configured on the record
func (m *PartnerModel) ToSellerRate() *commission.SellerDefaultRate {
	if m.CommissionPercent == nil {
		return nil
	}
	return &commission.SellerDefaultRate{Percent: *m.CommissionPercent}
}

// ProductModel is the persistence model for the product fields the engine
// reads. Commission override columns are nullable; both must be set for the
// override to participate in the cascade.
type ProductModel struct {
	TenantAggregateModel
	Name            string                 `gorm:"type:varchar(255);not null"`
	CommissionType  *commission.PolicyType `gorm:"type:varchar(10)"`
	CommissionValue *decimal.Decimal       `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToProductPolicy extracts the product-level commission override, or nil
// when the product has no override configured
func (m *ProductModel) ToProductPolicy() *commission.ProductPolicy {
	if m.CommissionType == nil || m.CommissionValue == nil {
		return nil
	}
	return &commission.ProductPolicy{
		Type:  *m.CommissionType,
		Value: *m.CommissionValue,
	}
}
