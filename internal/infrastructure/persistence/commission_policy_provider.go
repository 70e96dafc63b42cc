package persistence

import (
	"context"
	"errors"

	"github.com/marketplace/backend/internal/domain/commission"
	"github.com/marketplace/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPolicyProvider implements commission.PolicyProvider by reading the
// commission columns on product and partner records. A missing record or an
// unset policy both resolve to nil so the cascade falls through.
type GormPolicyProvider struct {
	db *gorm.DB
}

// NewGormPolicyProvider creates a new GormPolicyProvider
func NewGormPolicyProvider(db *gorm.DB) *GormPolicyProvider {
	return &GormPolicyProvider{db: db}
}

// ProductPolicy returns the product-level commission override, or nil
func (p *GormPolicyProvider) ProductPolicy(ctx context.Context, tenantID, productID uuid.UUID) (*commission.ProductPolicy, error) {
	var model models.ProductModel
	err := p.db.WithContext(ctx).
		Select("commission_type", "commission_value").
		Where("tenant_id = ? AND id = ?", tenantID, productID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToProductPolicy(), nil
}

// SellerRate returns the seller-level default commission rate, or nil
func (p *GormPolicyProvider) SellerRate(ctx context.Context, tenantID, sellerID uuid.UUID) (*commission.SellerDefaultRate, error) {
	var model models.PartnerModel
	err := p.db.WithContext(ctx).
		Select("commission_percent").
		Where("tenant_id = ? AND id = ?", tenantID, sellerID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToSellerRate(), nil
}
