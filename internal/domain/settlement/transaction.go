package settlement

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/marketplace/backend/internal/domain/commission"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementTransaction is an immutable commission-bearing line item produced
// by the order pipeline. The engine only reads these; they are never mutated
// after their batch is confirmed.
type SettlementTransaction struct {
	shared.BaseEntity
	TenantID    uuid.UUID       `json:"tenant_id"`
	ContextType ContextType     `json:"context_type"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	SaleAmount  decimal.Decimal `json:"sale_amount"`
	Quantity    int64           `json:"quantity"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewSettlementTransaction creates a new settlement transaction line
func NewSettlementTransaction(
	tenantID uuid.UUID,
	contextType ContextType,
	ownerID uuid.UUID,
	productID uuid.UUID,
	saleAmount decimal.Decimal,
	quantity int64,
	occurredAt time.Time,
) (*SettlementTransaction, error) {
	if !contextType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONTEXT_TYPE", "Context type is not valid")
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if saleAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Sale amount cannot be negative")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	return &SettlementTransaction{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		ContextType: contextType,
		OwnerID:     ownerID,
		ProductID:   productID,
		SaleAmount:  saleAmount,
		Quantity:    quantity,
		OccurredAt:  occurredAt,
	}, nil
}

// ResolvedLine is one transaction with its resolved commission. A batch's
// line snapshot is a frozen copy of these, so later policy edits cannot
// retroactively change a settled batch.
type ResolvedLine struct {
	TransactionID    uuid.UUID               `json:"transaction_id"`
	ProductID        uuid.UUID               `json:"product_id"`
	SaleAmount       decimal.Decimal         `json:"sale_amount"`
	Quantity         int64                   `json:"quantity"`
	CommissionAmount decimal.Decimal         `json:"commission_amount"`
	Source           commission.PolicySource `json:"source"`
	ValueUsed        decimal.Decimal         `json:"value_used"`
}

// LineSnapshot is a slice of ResolvedLine stored as JSONB
type LineSnapshot []ResolvedLine

// Value implements driver.Valuer interface for GORM to store as JSONB
func (s LineSnapshot) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (s *LineSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = LineSnapshot{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineSnapshot: unsupported type")
	}

	if len(bytes) == 0 {
		*s = LineSnapshot{}
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// TotalSale sums the sale amounts of all lines
func (s LineSnapshot) TotalSale() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s {
		total = total.Add(l.SaleAmount)
	}
	return total
}

// TotalCommission sums the resolved commissions of all lines
func (s LineSnapshot) TotalCommission() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s {
		total = total.Add(l.CommissionAmount)
	}
	return total
}
