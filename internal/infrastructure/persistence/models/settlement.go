package models

import (
	"time"

	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementBatchModel is the persistence model for settlement batches.
// The composite unique index enforces the one-batch-per-owner-per-period
// invariant at the database level.
type SettlementBatchModel struct {
	TenantAggregateModel
	BatchNumber      string                  `gorm:"type:varchar(50);not null;uniqueIndex:idx_batch_number_tenant,priority:2"`
	ContextType      settlement.ContextType  `gorm:"type:varchar(30);not null;uniqueIndex:idx_batch_period,priority:2"`
	OwnerID          uuid.UUID               `gorm:"type:uuid;not null;index;uniqueIndex:idx_batch_period,priority:3"`
	PeriodStart      time.Time               `gorm:"not null;uniqueIndex:idx_batch_period,priority:4"`
	PeriodEnd        time.Time               `gorm:"not null;uniqueIndex:idx_batch_period,priority:5"`
	PeriodUnit       settlement.PeriodUnit   `gorm:"type:varchar(10);not null;uniqueIndex:idx_batch_period,priority:6"`
	Status           settlement.BatchStatus  `gorm:"type:varchar(20);not null;index"`
	TotalAmount      decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	CommissionAmount decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	NetAmount        decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	LineSnapshot     settlement.LineSnapshot `gorm:"type:jsonb"`
	PaymentRef       string                  `gorm:"type:varchar(255)"`
	FailureReason    string                  `gorm:"type:text"`
	CancelReason     string                  `gorm:"type:text"`
	ClosedAt         *time.Time
	PaidAt           *time.Time
}

// TableName returns the table name for GORM
func (SettlementBatchModel) TableName() string {
	return "settlement_batches"
}

// ToDomain converts the persistence model to a domain SettlementBatch
func (m *SettlementBatchModel) ToDomain() *settlement.SettlementBatch {
	b := &settlement.SettlementBatch{
		BatchNumber:      m.BatchNumber,
		ContextType:      m.ContextType,
		OwnerID:          m.OwnerID,
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		PeriodUnit:       m.PeriodUnit,
		Status:           m.Status,
		TotalAmount:      m.TotalAmount,
		CommissionAmount: m.CommissionAmount,
		NetAmount:        m.NetAmount,
		LineSnapshot:     m.LineSnapshot,
		PaymentRef:       m.PaymentRef,
		FailureReason:    m.FailureReason,
		CancelReason:     m.CancelReason,
		ClosedAt:         m.ClosedAt,
		PaidAt:           m.PaidAt,
	}
	m.PopulateTenantAggregateRoot(&b.TenantAggregateRoot)
	return b
}

// FromDomain populates the persistence model from a domain SettlementBatch
func (m *SettlementBatchModel) FromDomain(b *settlement.SettlementBatch) {
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	m.BatchNumber = b.BatchNumber
	m.ContextType = b.ContextType
	m.OwnerID = b.OwnerID
	m.PeriodStart = b.PeriodStart
	m.PeriodEnd = b.PeriodEnd
	m.PeriodUnit = b.PeriodUnit
	m.Status = b.Status
	m.TotalAmount = b.TotalAmount
	m.CommissionAmount = b.CommissionAmount
	m.NetAmount = b.NetAmount
	m.LineSnapshot = b.LineSnapshot
	m.PaymentRef = b.PaymentRef
	m.FailureReason = b.FailureReason
	m.CancelReason = b.CancelReason
	m.ClosedAt = b.ClosedAt
	m.PaidAt = b.PaidAt
}

// SettlementBatchModelFromDomain creates a new persistence model from a domain batch
func SettlementBatchModelFromDomain(b *settlement.SettlementBatch) *SettlementBatchModel {
	m := &SettlementBatchModel{}
	m.FromDomain(b)
	return m
}

// SettlementLogModel is the persistence model for the append-only audit log.
// Rows are inserted in the same transaction as the batch state change and
// never updated or deleted.
type SettlementLogModel struct {
	ID                 uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID              `gorm:"type:uuid;not null;index:idx_settlement_logs_batch,priority:1"`
	BatchID            uuid.UUID              `gorm:"type:uuid;not null;index:idx_settlement_logs_batch,priority:2"`
	Action             settlement.LogAction   `gorm:"type:varchar(30);not null"`
	PreviousStatus     settlement.BatchStatus `gorm:"type:varchar(20);not null"`
	NewStatus          settlement.BatchStatus `gorm:"type:varchar(20);not null"`
	Actor              string                 `gorm:"type:varchar(255);not null"`
	ActorType          settlement.ActorType   `gorm:"type:varchar(10);not null"`
	Reason             string                 `gorm:"type:text"`
	CalculationDetails settlement.Details     `gorm:"type:jsonb"`
	AdjustmentDetails  settlement.Details     `gorm:"type:jsonb"`
	CreatedAt          time.Time              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SettlementLogModel) TableName() string {
	return "settlement_logs"
}

// ToDomain converts the persistence model to a domain LogEntry
func (m *SettlementLogModel) ToDomain() *settlement.LogEntry {
	return &settlement.LogEntry{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		BatchID:            m.BatchID,
		Action:             m.Action,
		PreviousStatus:     m.PreviousStatus,
		NewStatus:          m.NewStatus,
		Actor:              m.Actor,
		ActorType:          m.ActorType,
		Reason:             m.Reason,
		CalculationDetails: m.CalculationDetails,
		AdjustmentDetails:  m.AdjustmentDetails,
		CreatedAt:          m.CreatedAt,
	}
}

// SettlementLogModelFromDomain creates a new persistence model from a domain LogEntry
func SettlementLogModelFromDomain(e *settlement.LogEntry) *SettlementLogModel {
	return &SettlementLogModel{
		ID:                 e.ID,
		TenantID:           e.TenantID,
		BatchID:            e.BatchID,
		Action:             e.Action,
		PreviousStatus:     e.PreviousStatus,
		NewStatus:          e.NewStatus,
		Actor:              e.Actor,
		ActorType:          e.ActorType,
		Reason:             e.Reason,
		CalculationDetails: e.CalculationDetails,
		AdjustmentDetails:  e.AdjustmentDetails,
		CreatedAt:          e.CreatedAt,
	}
}

// SettlementTransactionModel is the persistence model for commission-bearing
// transaction lines produced by the order pipeline
type SettlementTransactionModel struct {
	BaseModel
	TenantID    uuid.UUID              `gorm:"type:uuid;not null;index:idx_settlement_tx_period,priority:1"`
	ContextType settlement.ContextType `gorm:"type:varchar(30);not null;index:idx_settlement_tx_period,priority:2"`
	OwnerID     uuid.UUID              `gorm:"type:uuid;not null;index:idx_settlement_tx_period,priority:3"`
	ProductID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	SaleAmount  decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Quantity    int64                  `gorm:"not null"`
	OccurredAt  time.Time              `gorm:"not null;index:idx_settlement_tx_period,priority:4"`
}

// TableName returns the table name for GORM
func (SettlementTransactionModel) TableName() string {
	return "settlement_transactions"
}

// ToDomain converts the persistence model to a domain SettlementTransaction
func (m *SettlementTransactionModel) ToDomain() *settlement.SettlementTransaction {
	return &settlement.SettlementTransaction{
		BaseEntity:  m.BaseModel.ToDomain(),
		TenantID:    m.TenantID,
		ContextType: m.ContextType,
		OwnerID:     m.OwnerID,
		ProductID:   m.ProductID,
		SaleAmount:  m.SaleAmount,
		Quantity:    m.Quantity,
		OccurredAt:  m.OccurredAt,
	}
}

// SettlementTransactionModelFromDomain creates a new persistence model from a domain transaction
func SettlementTransactionModelFromDomain(t *settlement.SettlementTransaction) *SettlementTransactionModel {
	m := &SettlementTransactionModel{
		TenantID:    t.TenantID,
		ContextType: t.ContextType,
		OwnerID:     t.OwnerID,
		ProductID:   t.ProductID,
		SaleAmount:  t.SaleAmount,
		Quantity:    t.Quantity,
		OccurredAt:  t.OccurredAt,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}
