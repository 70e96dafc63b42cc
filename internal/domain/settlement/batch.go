package settlement

import (
	"fmt"
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus represents the lifecycle state of a settlement batch
type BatchStatus string

const (
	BatchStatusOpen           BatchStatus = "OPEN"            // Created, awaiting calculation
	BatchStatusCalculating    BatchStatus = "CALCULATING"     // Calculation in progress, single winner
	BatchStatusCalculated     BatchStatus = "CALCULATED"      // Totals computed, not yet confirmed
	BatchStatusConfirmed      BatchStatus = "CONFIRMED"       // Snapshot frozen, amounts immutable
	BatchStatusPaymentPending BatchStatus = "PAYMENT_PENDING" // Payment initiated with external rail
	BatchStatusPaid           BatchStatus = "PAID"            // Payment completed
	BatchStatusFailed         BatchStatus = "FAILED"          // Calculation failed, retryable
	BatchStatusCancelled      BatchStatus = "CANCELLED"       // Cancelled before payment
)

// IsValid checks if the status is a valid BatchStatus
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusOpen, BatchStatusCalculating, BatchStatusCalculated,
		BatchStatusConfirmed, BatchStatusPaymentPending, BatchStatusPaid,
		BatchStatusFailed, BatchStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the batch is in a terminal state
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusPaid || s == BatchStatusCancelled
}

// CanStartCalculation returns true if a calculation may begin in this status.
// Recalculation is allowed while the batch has not yet been confirmed.
func (s BatchStatus) CanStartCalculation() bool {
	return s == BatchStatusOpen || s == BatchStatusFailed || s == BatchStatusCalculated
}

// CanAdjust returns true if additive adjustments are allowed in this status
func (s BatchStatus) CanAdjust() bool {
	return s == BatchStatusConfirmed || s == BatchStatusPaymentPending
}

// CanCancel returns true if the batch can still be cancelled (pre-payment only)
func (s BatchStatus) CanCancel() bool {
	return s == BatchStatusConfirmed || s == BatchStatusPaymentPending
}

// CalculationStartStatuses is the allowed-from set for the calculation CAS guard
func CalculationStartStatuses() []BatchStatus {
	return []BatchStatus{BatchStatusOpen, BatchStatusFailed, BatchStatusCalculated}
}

// ContextType is the owner category of a settlement batch
type ContextType string

const (
	ContextSeller            ContextType = "SELLER"
	ContextSupplier          ContextType = "SUPPLIER"
	ContextPartner           ContextType = "PARTNER"
	ContextPharmacy          ContextType = "PHARMACY"
	ContextPlatformExtension ContextType = "PLATFORM_EXTENSION"
)

// IsValid checks if the context type is valid
func (c ContextType) IsValid() bool {
	switch c {
	case ContextSeller, ContextSupplier, ContextPartner, ContextPharmacy, ContextPlatformExtension:
		return true
	}
	return false
}

// String returns the string representation of ContextType
func (c ContextType) String() string {
	return string(c)
}

// PeriodUnit is the granularity of a settlement period
type PeriodUnit string

const (
	PeriodUnitWeekly  PeriodUnit = "WEEKLY"
	PeriodUnitMonthly PeriodUnit = "MONTHLY"
)

// IsValid checks if the period unit is valid
func (u PeriodUnit) IsValid() bool {
	return u == PeriodUnitWeekly || u == PeriodUnitMonthly
}

// SettlementBatch groups one owner's transactions for a period and moves them
// through the settlement lifecycle. At most one batch exists per
// (contextType, ownerID, period, unit) per tenant.
type SettlementBatch struct {
	shared.TenantAggregateRoot
	BatchNumber      string          `json:"batch_number"`
	ContextType      ContextType     `json:"context_type"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	PeriodUnit       PeriodUnit      `json:"period_unit"`
	Status           BatchStatus     `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	LineSnapshot     LineSnapshot    `json:"line_snapshot"`
	PaymentRef       string          `json:"payment_ref,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	ClosedAt         *time.Time      `json:"closed_at"`
	PaidAt           *time.Time      `json:"paid_at"`
}

// NewSettlementBatch opens a new batch in OPEN status. The uniqueness
// invariant per (contextType, ownerID, period, unit) is enforced by the
// repository on save.
func NewSettlementBatch(
	tenantID uuid.UUID,
	batchNumber string,
	contextType ContextType,
	ownerID uuid.UUID,
	periodStart, periodEnd time.Time,
	unit PeriodUnit,
) (*SettlementBatch, error) {
	if batchNumber == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
	}
	if !contextType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONTEXT_TYPE", "Context type is not valid")
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if !unit.IsValid() {
		return nil, shared.NewDomainError("INVALID_PERIOD_UNIT", "Period unit is not valid")
	}
	if !periodEnd.After(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end must be after period start")
	}

	b := &SettlementBatch{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BatchNumber:         batchNumber,
		ContextType:         contextType,
		OwnerID:             ownerID,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		PeriodUnit:          unit,
		Status:              BatchStatusOpen,
		TotalAmount:         decimal.Zero,
		CommissionAmount:    decimal.Zero,
		NetAmount:           decimal.Zero,
		LineSnapshot:        LineSnapshot{},
	}

	b.AddDomainEvent(NewBatchOpenedEvent(b))

	return b, nil
}

// BeginCalculation moves the batch into CALCULATING. The repository enforces
// this as a conditional status write, so only one concurrent caller wins.
func (b *SettlementBatch) BeginCalculation() error {
	if b.Status == BatchStatusCalculating {
		return shared.ErrBatchBusy
	}
	if !b.Status.CanStartCalculation() {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot start calculation from %s status", b.Status))
	}
	b.Status = BatchStatusCalculating
	b.FailureReason = ""
	b.Touch()
	b.IncrementVersion()
	return nil
}

// CompleteCalculation records the aggregated totals and resolved lines and
// moves the batch to CALCULATED. Lines stay replaceable until confirmation.
func (b *SettlementBatch) CompleteCalculation(lines LineSnapshot) error {
	if b.Status != BatchStatusCalculating {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot complete calculation from %s status", b.Status))
	}

	b.TotalAmount = lines.TotalSale()
	b.CommissionAmount = lines.TotalCommission()
	b.NetAmount = b.TotalAmount.Sub(b.CommissionAmount)
	b.LineSnapshot = lines
	b.Status = BatchStatusCalculated
	b.Touch()
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchCalculatedEvent(b))

	return nil
}

// FailCalculation moves a running calculation to FAILED with the cause.
// A failed batch is retried by invoking the calculation again.
func (b *SettlementBatch) FailCalculation(reason string) error {
	if b.Status != BatchStatusCalculating {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot fail calculation from %s status", b.Status))
	}
	b.Status = BatchStatusFailed
	b.FailureReason = reason
	b.Touch()
	b.IncrementVersion()
	return nil
}

// Confirm freezes the line snapshot and moves the batch to CONFIRMED.
// From here on the commission amount is immutable; later corrections are
// additive adjustments, never in-place edits.
func (b *SettlementBatch) Confirm() error {
	if b.Status != BatchStatusCalculated {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot confirm batch from %s status", b.Status))
	}
	now := time.Now()
	b.Status = BatchStatusConfirmed
	b.ClosedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchConfirmedEvent(b))

	return nil
}

// AddAdjustment appends a signed delta to the net amount. The frozen line
// snapshot and the confirmed commission amount are never touched.
func (b *SettlementBatch) AddAdjustment(delta valueobject.Money, reason string) error {
	if !b.Status.CanAdjust() {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot adjust batch in %s status", b.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}
	if delta.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Adjustment delta cannot be zero")
	}

	b.NetAmount = b.NetAmount.Add(delta.Amount())
	b.Touch()
	b.IncrementVersion()

	b.AddDomainEvent(NewCommissionAdjustedEvent(b, delta.Amount(), reason))

	return nil
}

// InitiatePayment records that payment has been handed to an external rail
func (b *SettlementBatch) InitiatePayment(paymentRef string) error {
	if b.Status != BatchStatusConfirmed {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot initiate payment from %s status", b.Status))
	}
	if paymentRef == "" {
		return shared.NewDomainError("INVALID_PAYMENT_REF", "Payment reference is required")
	}
	b.Status = BatchStatusPaymentPending
	b.PaymentRef = paymentRef
	b.Touch()
	b.IncrementVersion()
	return nil
}

// MarkPaid completes the lifecycle. Allowed directly from CONFIRMED for
// rails that settle synchronously, or from PAYMENT_PENDING.
func (b *SettlementBatch) MarkPaid(paymentRef string) error {
	if b.Status != BatchStatusConfirmed && b.Status != BatchStatusPaymentPending {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot mark batch paid from %s status", b.Status))
	}
	if paymentRef != "" {
		b.PaymentRef = paymentRef
	}
	now := time.Now()
	b.Status = BatchStatusPaid
	b.PaidAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchPaidEvent(b))

	return nil
}

// MarkPaymentFailed records a failed payment attempt. The batch stays in
// PAYMENT_PENDING so payment can be retried or the batch cancelled.
func (b *SettlementBatch) MarkPaymentFailed(reason string) error {
	if b.Status != BatchStatusPaymentPending {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot record payment failure from %s status", b.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Failure reason is required")
	}
	b.FailureReason = reason
	b.Touch()
	b.IncrementVersion()
	return nil
}

// Cancel voids the batch before payment completes
func (b *SettlementBatch) Cancel(reason string) error {
	if !b.Status.CanCancel() {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot cancel batch in %s status", b.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	b.Status = BatchStatusCancelled
	b.CancelReason = reason
	b.Touch()
	b.IncrementVersion()

	b.AddDomainEvent(NewBatchCancelledEvent(b))

	return nil
}

// Helper methods

// GetTotalAmountMoney returns the total amount as Money
func (b *SettlementBatch) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.TotalAmount)
}

// GetCommissionAmountMoney returns the commission amount as Money
func (b *SettlementBatch) GetCommissionAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.CommissionAmount)
}

// GetNetAmountMoney returns the net amount as Money
func (b *SettlementBatch) GetNetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.NetAmount)
}

// IsConfirmed returns true once the snapshot has been frozen
func (b *SettlementBatch) IsConfirmed() bool {
	return b.Status == BatchStatusConfirmed || b.Status == BatchStatusPaymentPending || b.Status == BatchStatusPaid
}

// LineCount returns the number of resolved lines in the snapshot
func (b *SettlementBatch) LineCount() int {
	return len(b.LineSnapshot)
}
