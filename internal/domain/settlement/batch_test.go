package settlement

import (
	"testing"
	"time"

	"github.com/marketplace/backend/internal/domain/commission"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func createTestBatch(t *testing.T) *SettlementBatch {
	periodStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	b, err := NewSettlementBatch(
		uuid.New(),
		"STL-20250201-00001",
		ContextSeller,
		uuid.New(),
		periodStart,
		periodEnd,
		PeriodUnitMonthly,
	)
	require.NoError(t, err)
	return b
}

func testLines() LineSnapshot {
	return LineSnapshot{
		{
			TransactionID:    uuid.New(),
			ProductID:        uuid.New(),
			SaleAmount:       decimal.NewFromInt(100000),
			Quantity:         2,
			CommissionAmount: decimal.NewFromInt(2000),
			Source:           commission.SourceProduct,
			ValueUsed:        decimal.NewFromInt(1000),
		},
		{
			TransactionID:    uuid.New(),
			ProductID:        uuid.New(),
			SaleAmount:       decimal.NewFromInt(50000),
			Quantity:         1,
			CommissionAmount: decimal.NewFromInt(7500),
			Source:           commission.SourceSeller,
			ValueUsed:        decimal.RequireFromString("0.15"),
		},
	}
}

func calculatedBatch(t *testing.T) *SettlementBatch {
	b := createTestBatch(t)
	require.NoError(t, b.BeginCalculation())
	require.NoError(t, b.CompleteCalculation(testLines()))
	return b
}

func confirmedBatch(t *testing.T) *SettlementBatch {
	b := calculatedBatch(t)
	require.NoError(t, b.Confirm())
	return b
}

// BatchStatus tests

func TestBatchStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  BatchStatus
		isValid bool
	}{
		{BatchStatusOpen, true},
		{BatchStatusCalculating, true},
		{BatchStatusCalculated, true},
		{BatchStatusConfirmed, true},
		{BatchStatusPaymentPending, true},
		{BatchStatusPaid, true},
		{BatchStatusFailed, true},
		{BatchStatusCancelled, true},
		{BatchStatus("SETTLED"), false},
		{BatchStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestBatchStatus_CanStartCalculation(t *testing.T) {
	assert.True(t, BatchStatusOpen.CanStartCalculation())
	assert.True(t, BatchStatusFailed.CanStartCalculation())
	assert.True(t, BatchStatusCalculated.CanStartCalculation())
	assert.False(t, BatchStatusCalculating.CanStartCalculation())
	assert.False(t, BatchStatusConfirmed.CanStartCalculation())
	assert.False(t, BatchStatusPaid.CanStartCalculation())
}

// Creation

func TestNewSettlementBatch(t *testing.T) {
	b := createTestBatch(t)

	assert.Equal(t, BatchStatusOpen, b.Status)
	assert.True(t, b.TotalAmount.IsZero())
	assert.True(t, b.CommissionAmount.IsZero())
	assert.Empty(t, b.LineSnapshot)
	assert.Equal(t, 1, b.Version)

	events := b.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeBatchOpened, events[0].EventType())
}

func TestNewSettlementBatch_Validation(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		number  string
		context ContextType
		owner   uuid.UUID
		start   time.Time
		end     time.Time
		unit    PeriodUnit
	}{
		{"empty batch number", "", ContextSeller, uuid.New(), start, end, PeriodUnitMonthly},
		{"invalid context", "STL-1", ContextType("RESELLER"), uuid.New(), start, end, PeriodUnitMonthly},
		{"nil owner", "STL-1", ContextSeller, uuid.Nil, start, end, PeriodUnitMonthly},
		{"invalid unit", "STL-1", ContextSeller, uuid.New(), start, end, PeriodUnit("DAILY")},
		{"inverted period", "STL-1", ContextSeller, uuid.New(), end, start, PeriodUnitMonthly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSettlementBatch(uuid.New(), tt.number, tt.context, tt.owner, tt.start, tt.end, tt.unit)
			assert.Error(t, err)
		})
	}
}

// Calculation

func TestBeginCalculation(t *testing.T) {
	b := createTestBatch(t)

	require.NoError(t, b.BeginCalculation())
	assert.Equal(t, BatchStatusCalculating, b.Status)
	assert.Equal(t, 2, b.Version)
}

func TestBeginCalculation_FromDisallowedStates(t *testing.T) {
	b := confirmedBatch(t)

	err := b.BeginCalculation()
	require.Error(t, err)
	assert.Equal(t, BatchStatusConfirmed, b.Status)
}

func TestBeginCalculation_AlreadyCalculating(t *testing.T) {
	b := createTestBatch(t)
	require.NoError(t, b.BeginCalculation())

	err := b.BeginCalculation()
	assert.Equal(t, shared.ErrBatchBusy, err)
	assert.Equal(t, BatchStatusCalculating, b.Status)
}

func TestCompleteCalculation_AggregatesTotals(t *testing.T) {
	b := createTestBatch(t)
	require.NoError(t, b.BeginCalculation())
	require.NoError(t, b.CompleteCalculation(testLines()))

	assert.Equal(t, BatchStatusCalculated, b.Status)
	assert.True(t, b.TotalAmount.Equal(decimal.NewFromInt(150000)))
	assert.True(t, b.CommissionAmount.Equal(decimal.NewFromInt(9500)))
	assert.True(t, b.NetAmount.Equal(decimal.NewFromInt(140500)))
	assert.Equal(t, 2, b.LineCount())
}

func TestCompleteCalculation_RequiresCalculating(t *testing.T) {
	b := createTestBatch(t)
	assert.Error(t, b.CompleteCalculation(testLines()))
}

func TestRecalculation_IsIdempotentForUnchangedInputs(t *testing.T) {
	b := createTestBatch(t)
	lines := testLines()

	require.NoError(t, b.BeginCalculation())
	require.NoError(t, b.CompleteCalculation(lines))
	first := b.CommissionAmount

	// CALCULATED allows recalculation until confirmed
	require.NoError(t, b.BeginCalculation())
	require.NoError(t, b.CompleteCalculation(lines))

	assert.True(t, b.CommissionAmount.Equal(first))
	assert.True(t, b.TotalAmount.Equal(decimal.NewFromInt(150000)))
}

func TestFailCalculation(t *testing.T) {
	b := createTestBatch(t)
	require.NoError(t, b.BeginCalculation())
	require.NoError(t, b.FailCalculation("policy provider unavailable"))

	assert.Equal(t, BatchStatusFailed, b.Status)
	assert.Equal(t, "policy provider unavailable", b.FailureReason)

	// Failed batches are retryable
	require.NoError(t, b.BeginCalculation())
	assert.Equal(t, BatchStatusCalculating, b.Status)
	assert.Empty(t, b.FailureReason)
}

func TestFailCalculation_OnlyFromCalculating(t *testing.T) {
	b := createTestBatch(t)
	assert.Error(t, b.FailCalculation("nope"))
}

// Confirmation

func TestConfirm_FreezesSnapshot(t *testing.T) {
	b := calculatedBatch(t)
	commissionBefore := b.CommissionAmount

	require.NoError(t, b.Confirm())

	assert.Equal(t, BatchStatusConfirmed, b.Status)
	assert.NotNil(t, b.ClosedAt)
	assert.True(t, b.CommissionAmount.Equal(commissionBefore))
	assert.Equal(t, 2, b.LineCount())

	// Recalculation is no longer possible once confirmed
	assert.Error(t, b.BeginCalculation())
}

func TestConfirm_FromOpenFails(t *testing.T) {
	b := createTestBatch(t)

	err := b.Confirm()
	require.Error(t, err)
	assert.Equal(t, BatchStatusOpen, b.Status)
}

func TestConfirm_EmitsConfirmedEvent(t *testing.T) {
	b := calculatedBatch(t)
	b.ClearDomainEvents()

	require.NoError(t, b.Confirm())

	events := b.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeBatchConfirmed, events[0].EventType())
}

// Adjustments

func TestAddAdjustment(t *testing.T) {
	b := confirmedBatch(t)
	netBefore := b.NetAmount
	commissionBefore := b.CommissionAmount

	delta := valueobject.NewMoneyUSDFromFloat(-250)
	require.NoError(t, b.AddAdjustment(delta, "shipping damage credit"))

	assert.True(t, b.NetAmount.Equal(netBefore.Sub(decimal.NewFromInt(250))))
	// Confirmed commission amount and snapshot are never touched
	assert.True(t, b.CommissionAmount.Equal(commissionBefore))
	assert.Equal(t, 2, b.LineCount())
}

func TestAddAdjustment_Validation(t *testing.T) {
	b := confirmedBatch(t)

	assert.Error(t, b.AddAdjustment(valueobject.NewMoneyUSDFromFloat(10), ""))
	assert.Error(t, b.AddAdjustment(valueobject.ZeroUSD(), "zero delta"))
}

func TestAddAdjustment_OnlyPostConfirmation(t *testing.T) {
	b := calculatedBatch(t)
	err := b.AddAdjustment(valueobject.NewMoneyUSDFromFloat(10), "too early")
	assert.Error(t, err)
}

// Payment

func TestInitiatePayment(t *testing.T) {
	b := confirmedBatch(t)

	require.NoError(t, b.InitiatePayment("PAY-001"))
	assert.Equal(t, BatchStatusPaymentPending, b.Status)
	assert.Equal(t, "PAY-001", b.PaymentRef)
}

func TestMarkPaid_FromConfirmedAndPending(t *testing.T) {
	direct := confirmedBatch(t)
	require.NoError(t, direct.MarkPaid("PAY-002"))
	assert.Equal(t, BatchStatusPaid, direct.Status)
	assert.NotNil(t, direct.PaidAt)

	pending := confirmedBatch(t)
	require.NoError(t, pending.InitiatePayment("PAY-003"))
	require.NoError(t, pending.MarkPaid(""))
	assert.Equal(t, BatchStatusPaid, pending.Status)
	assert.Equal(t, "PAY-003", pending.PaymentRef)
}

func TestMarkPaid_FromOpenFails(t *testing.T) {
	b := createTestBatch(t)
	assert.Error(t, b.MarkPaid("PAY-004"))
}

func TestMarkPaymentFailed(t *testing.T) {
	b := confirmedBatch(t)
	require.NoError(t, b.InitiatePayment("PAY-005"))
	require.NoError(t, b.MarkPaymentFailed("insufficient rail balance"))

	// Stays pending so payment can be retried or the batch cancelled
	assert.Equal(t, BatchStatusPaymentPending, b.Status)
	assert.Equal(t, "insufficient rail balance", b.FailureReason)
}

// Cancellation

func TestCancel_PrePaymentOnly(t *testing.T) {
	b := confirmedBatch(t)
	require.NoError(t, b.Cancel("owner offboarded"))
	assert.Equal(t, BatchStatusCancelled, b.Status)
	assert.Equal(t, "owner offboarded", b.CancelReason)

	paid := confirmedBatch(t)
	require.NoError(t, paid.MarkPaid("PAY-006"))
	assert.Error(t, paid.Cancel("too late"))
}

func TestCancel_FromOpenFails(t *testing.T) {
	b := createTestBatch(t)
	assert.Error(t, b.Cancel("nothing to cancel"))
}
