package settlement

import (
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names double as the partner-facing webhook event names
const (
	EventTypeBatchOpened        = "settlement.opened"
	EventTypeBatchCalculated    = "settlement.calculated"
	EventTypeBatchConfirmed     = "settlement.confirmed"
	EventTypeCommissionAdjusted = "commission.adjusted"
	EventTypeBatchPaid          = "settlement.paid"
	EventTypeBatchCancelled     = "settlement.cancelled"
)

const aggregateTypeBatch = "SettlementBatch"

// BatchOpenedEvent is raised when a new settlement batch is opened
type BatchOpenedEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID   `json:"batch_id"`
	BatchNumber string      `json:"batch_number"`
	ContextType ContextType `json:"context_type"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	PeriodStart time.Time   `json:"period_start"`
	PeriodEnd   time.Time   `json:"period_end"`
}

// EventType returns the event type name
func (e *BatchOpenedEvent) EventType() string {
	return EventTypeBatchOpened
}

// NewBatchOpenedEvent creates a new BatchOpenedEvent
func NewBatchOpenedEvent(b *SettlementBatch) *BatchOpenedEvent {
	return &BatchOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchOpened, aggregateTypeBatch, b.ID, b.TenantID),
		BatchID:         b.ID,
		BatchNumber:     b.BatchNumber,
		ContextType:     b.ContextType,
		OwnerID:         b.OwnerID,
		PeriodStart:     b.PeriodStart,
		PeriodEnd:       b.PeriodEnd,
	}
}

// BatchCalculatedEvent is raised when a calculation run completes
type BatchCalculatedEvent struct {
	shared.BaseDomainEvent
	BatchID          uuid.UUID       `json:"batch_id"`
	BatchNumber      string          `json:"batch_number"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	ContextType      ContextType     `json:"context_type"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	LineCount        int             `json:"line_count"`
}

// EventType returns the event type name
func (e *BatchCalculatedEvent) EventType() string {
	return EventTypeBatchCalculated
}

// NewBatchCalculatedEvent creates a new BatchCalculatedEvent
func NewBatchCalculatedEvent(b *SettlementBatch) *BatchCalculatedEvent {
	return &BatchCalculatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeBatchCalculated, aggregateTypeBatch, b.ID, b.TenantID),
		BatchID:          b.ID,
		BatchNumber:      b.BatchNumber,
		OwnerID:          b.OwnerID,
		ContextType:      b.ContextType,
		TotalAmount:      b.TotalAmount,
		CommissionAmount: b.CommissionAmount,
		NetAmount:        b.NetAmount,
		LineCount:        len(b.LineSnapshot),
	}
}

// BatchConfirmedEvent is raised when a batch is confirmed and its snapshot frozen
type BatchConfirmedEvent struct {
	shared.BaseDomainEvent
	BatchID          uuid.UUID       `json:"batch_id"`
	BatchNumber      string          `json:"batch_number"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	ContextType      ContextType     `json:"context_type"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	ConfirmedAt      time.Time       `json:"confirmed_at"`
}

// EventType returns the event type name
func (e *BatchConfirmedEvent) EventType() string {
	return EventTypeBatchConfirmed
}

// NewBatchConfirmedEvent creates a new BatchConfirmedEvent
func NewBatchConfirmedEvent(b *SettlementBatch) *BatchConfirmedEvent {
	confirmedAt := time.Now()
	if b.ClosedAt != nil {
		confirmedAt = *b.ClosedAt
	}
	return &BatchConfirmedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeBatchConfirmed, aggregateTypeBatch, b.ID, b.TenantID),
		BatchID:          b.ID,
		BatchNumber:      b.BatchNumber,
		OwnerID:          b.OwnerID,
		ContextType:      b.ContextType,
		PeriodStart:      b.PeriodStart,
		PeriodEnd:        b.PeriodEnd,
		TotalAmount:      b.TotalAmount,
		CommissionAmount: b.CommissionAmount,
		NetAmount:        b.NetAmount,
		ConfirmedAt:      confirmedAt,
	}
}

// CommissionAdjustedEvent is raised when an additive adjustment is recorded
type CommissionAdjustedEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	ContextType ContextType     `json:"context_type"`
	Delta       decimal.Decimal `json:"delta"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Reason      string          `json:"reason"`
}

// EventType returns the event type name
func (e *CommissionAdjustedEvent) EventType() string {
	return EventTypeCommissionAdjusted
}

// NewCommissionAdjustedEvent creates a new CommissionAdjustedEvent
func NewCommissionAdjustedEvent(b *SettlementBatch, delta decimal.Decimal, reason string) *CommissionAdjustedEvent {
	return &CommissionAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommissionAdjusted, aggregateTypeBatch, b.ID, b.TenantID),
		BatchID:         b.ID,
		BatchNumber:     b.BatchNumber,
		OwnerID:         b.OwnerID,
		ContextType:     b.ContextType,
		Delta:           delta,
		NetAmount:       b.NetAmount,
		Reason:          reason,
	}
}

// BatchPaidEvent is raised when a batch payment completes
type BatchPaidEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	ContextType ContextType     `json:"context_type"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	PaymentRef  string          `json:"payment_ref"`
	PaidAt      time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *BatchPaidEvent) EventType() string {
	return EventTypeBatchPaid
}

// NewBatchPaidEvent creates a new BatchPaidEvent
func NewBatchPaidEvent(b *SettlementBatch) *BatchPaidEvent {
	paidAt := time.Now()
	if b.PaidAt != nil {
		paidAt = *b.PaidAt
	}
	return &BatchPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchPaid, aggregateTypeBatch, b.ID, b.TenantID),
		BatchID:         b.ID,
		BatchNumber:     b.BatchNumber,
		OwnerID:         b.OwnerID,
		ContextType:     b.ContextType,
		NetAmount:       b.NetAmount,
		PaymentRef:      b.PaymentRef,
		PaidAt:          paidAt,
	}
}

// BatchCancelledEvent is raised when a batch is cancelled before payment
type BatchCancelledEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID   `json:"batch_id"`
	BatchNumber string      `json:"batch_number"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	ContextType ContextType `json:"context_type"`
	Reason      string      `json:"reason"`
}

// EventType returns the event type name
func (e *BatchCancelledEvent) EventType() string {
	return EventTypeBatchCancelled
}

// NewBatchCancelledEvent creates a new BatchCancelledEvent
func NewBatchCancelledEvent(b *SettlementBatch) *BatchCancelledEvent {
	return &BatchCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchCancelled, aggregateTypeBatch, b.ID, b.TenantID),
		BatchID:         b.ID,
		BatchNumber:     b.BatchNumber,
		OwnerID:         b.OwnerID,
		ContextType:     b.ContextType,
		Reason:          b.CancelReason,
	}
}
