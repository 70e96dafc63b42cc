package commission

import (
	"context"

	"github.com/google/uuid"
)

// PolicyProvider reads the commission-policy fields living on product and
// seller records. The engine consumes these fields but does not own them;
// both lookups return nil when no policy is set at that level.
type PolicyProvider interface {
	// ProductPolicy returns the product-level commission override, or nil
	ProductPolicy(ctx context.Context, tenantID, productID uuid.UUID) (*ProductPolicy, error)
	// SellerRate returns the seller-level default commission rate, or nil
	SellerRate(ctx context.Context, tenantID, sellerID uuid.UUID) (*SellerDefaultRate, error)
}
