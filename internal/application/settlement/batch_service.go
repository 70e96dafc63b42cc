package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/marketplace/backend/internal/domain/commission"
	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Actor identifies who triggered a settlement operation, recorded in the
// audit trail alongside every state change
type Actor struct {
	Name string
	Type settlement.ActorType
}

// SystemActor is used for operations triggered by background processes
var SystemActor = Actor{Name: "system", Type: settlement.ActorTypeSystem}

// BatchService provides application-level settlement batch operations.
// Every state change writes its audit log entry in the same transaction
// as the batch row, via the repository's atomic save methods.
type BatchService struct {
	batchRepo settlement.SettlementBatchRepository
	logRepo   settlement.SettlementLogRepository
	txRepo    settlement.SettlementTransactionRepository
	policies  commission.PolicyProvider
	logger    *zap.Logger
}

// NewBatchService creates a new BatchService
func NewBatchService(
	batchRepo settlement.SettlementBatchRepository,
	logRepo settlement.SettlementLogRepository,
	txRepo settlement.SettlementTransactionRepository,
	policies commission.PolicyProvider,
	logger *zap.Logger,
) *BatchService {
	return &BatchService{
		batchRepo: batchRepo,
		logRepo:   logRepo,
		txRepo:    txRepo,
		policies:  policies,
		logger:    logger,
	}
}

// ===================== Requests and Responses =====================

// OpenBatchRequest carries the inputs for opening a settlement batch
type OpenBatchRequest struct {
	ContextType settlement.ContextType `json:"context_type" binding:"required"`
	OwnerID     uuid.UUID              `json:"owner_id" binding:"required"`
	PeriodStart time.Time              `json:"period_start" binding:"required"`
	PeriodEnd   time.Time              `json:"period_end" binding:"required"`
	PeriodUnit  settlement.PeriodUnit  `json:"period_unit" binding:"required"`
}

// AdjustmentRequest carries a signed net-amount correction
type AdjustmentRequest struct {
	Delta  decimal.Decimal `json:"delta" binding:"required"`
	Reason string          `json:"reason" binding:"required"`
}

// IngestTransactionRequest carries one commission-bearing line from the
// order pipeline
type IngestTransactionRequest struct {
	ContextType settlement.ContextType `json:"context_type" binding:"required"`
	OwnerID     uuid.UUID              `json:"owner_id" binding:"required"`
	ProductID   uuid.UUID              `json:"product_id" binding:"required"`
	SaleAmount  decimal.Decimal        `json:"sale_amount" binding:"required"`
	Quantity    int64                  `json:"quantity" binding:"required"`
	OccurredAt  time.Time              `json:"occurred_at" binding:"required"`
}

// BatchResponse represents a settlement batch in API responses
type BatchResponse struct {
	ID               uuid.UUID                 `json:"id"`
	TenantID         uuid.UUID                 `json:"tenant_id"`
	BatchNumber      string                    `json:"batch_number"`
	ContextType      settlement.ContextType    `json:"context_type"`
	OwnerID          uuid.UUID                 `json:"owner_id"`
	PeriodStart      time.Time                 `json:"period_start"`
	PeriodEnd        time.Time                 `json:"period_end"`
	PeriodUnit       settlement.PeriodUnit     `json:"period_unit"`
	Status           settlement.BatchStatus    `json:"status"`
	TotalAmount      decimal.Decimal           `json:"total_amount"`
	CommissionAmount decimal.Decimal           `json:"commission_amount"`
	NetAmount        decimal.Decimal           `json:"net_amount"`
	LineCount        int                       `json:"line_count"`
	Lines            []settlement.ResolvedLine `json:"lines,omitempty"`
	PaymentRef       string                    `json:"payment_ref,omitempty"`
	FailureReason    string                    `json:"failure_reason,omitempty"`
	CancelReason     string                    `json:"cancel_reason,omitempty"`
	ClosedAt         *time.Time                `json:"closed_at,omitempty"`
	PaidAt           *time.Time                `json:"paid_at,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
	Version          int                       `json:"version"`
}

// LogEntryResponse represents one audit trail entry in API responses
type LogEntryResponse struct {
	ID                 uuid.UUID              `json:"id"`
	BatchID            uuid.UUID              `json:"batch_id"`
	Action             settlement.LogAction   `json:"action"`
	PreviousStatus     settlement.BatchStatus `json:"previous_status"`
	NewStatus          settlement.BatchStatus `json:"new_status"`
	Actor              string                 `json:"actor"`
	ActorType          settlement.ActorType   `json:"actor_type"`
	Reason             string                 `json:"reason,omitempty"`
	CalculationDetails settlement.Details     `json:"calculation_details,omitempty"`
	AdjustmentDetails  settlement.Details     `json:"adjustment_details,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

// BatchListFilter defines filtering options for batch list queries
type BatchListFilter struct {
	ContextType string     `form:"context_type"`
	OwnerID     *uuid.UUID `form:"owner_id"`
	Status      string     `form:"status"`
	PeriodFrom  *time.Time `form:"period_from"`
	PeriodTo    *time.Time `form:"period_to"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size"`
}

// ===================== Lifecycle Operations =====================

// OpenBatch opens a new settlement batch for an owner and period. At most one
// batch may exist per (contextType, ownerID, period, unit); a second attempt
// returns shared.ErrDuplicateBatch.
func (s *BatchService) OpenBatch(ctx context.Context, tenantID uuid.UUID, req OpenBatchRequest, actor Actor) (*BatchResponse, error) {
	exists, err := s.batchRepo.ExistsForPeriod(ctx, tenantID, req.ContextType, req.OwnerID, req.PeriodStart, req.PeriodEnd, req.PeriodUnit)
	if err != nil {
		return nil, fmt.Errorf("failed to check batch uniqueness: %w", err)
	}
	if exists {
		return nil, shared.ErrDuplicateBatch
	}

	batchNumber, err := s.batchRepo.GenerateBatchNumber(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate batch number: %w", err)
	}

	batch, err := settlement.NewSettlementBatch(tenantID, batchNumber, req.ContextType, req.OwnerID, req.PeriodStart, req.PeriodEnd, req.PeriodUnit)
	if err != nil {
		return nil, err
	}

	entry := settlement.NewLogEntry(batch, settlement.LogActionCreated, "", actor.Name, actor.Type)

	if err := s.batchRepo.CreateWithLog(ctx, batch, entry); err != nil {
		return nil, err
	}

	s.logger.Info("settlement batch opened",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("context_type", batch.ContextType.String()),
		zap.String("owner_id", batch.OwnerID.String()),
	)

	return toBatchResponse(batch, true), nil
}

// RunCalculation executes a commission calculation for the batch. The move
// into CALCULATING is a guarded status write, so when two callers race only
// one calculation runs; the loser gets shared.ErrConcurrencyConflict.
// Recalculation before confirmation replaces the previous result entirely.
func (s *BatchService) RunCalculation(ctx context.Context, tenantID, batchID uuid.UUID, actor Actor) (*BatchResponse, error) {
	batch, err := s.findBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	previous := batch.Status
	if err := batch.BeginCalculation(); err != nil {
		return nil, err
	}

	startEntry := settlement.NewLogEntry(batch, settlement.LogActionStatusChanged, previous, actor.Name, actor.Type)
	if err := s.batchRepo.TransitionWithLog(ctx, batch, settlement.CalculationStartStatuses(), startEntry); err != nil {
		return nil, err
	}

	lines, resolveErr := s.resolveLines(ctx, batch)
	if resolveErr != nil {
		return s.failCalculation(ctx, batch, resolveErr, actor)
	}

	if err := batch.CompleteCalculation(lines); err != nil {
		return nil, err
	}

	entry := settlement.NewLogEntry(batch, settlement.LogActionCalculationExecuted, settlement.BatchStatusCalculating, actor.Name, actor.Type).
		WithCalculationDetails(settlement.Details{
			"line_count":        len(lines),
			"total_amount":      batch.TotalAmount.String(),
			"commission_amount": batch.CommissionAmount.String(),
			"net_amount":        batch.NetAmount.String(),
		})

	if err := s.batchRepo.SaveWithLog(ctx, batch, entry); err != nil {
		return nil, err
	}

	s.logger.Info("settlement calculation completed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.Int("line_count", len(lines)),
		zap.String("commission_amount", batch.CommissionAmount.String()),
	)

	return toBatchResponse(batch, true), nil
}

// Confirm freezes the calculated snapshot. Confirmation is final: the
// commission amount can no longer change except via additive adjustments.
func (s *BatchService) Confirm(ctx context.Context, tenantID, batchID uuid.UUID, actor Actor) (*BatchResponse, error) {
	batch, err := s.findBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	previous := batch.Status
	if err := batch.Confirm(); err != nil {
		return nil, err
	}

	entry := settlement.NewLogEntry(batch, settlement.LogActionConfirmed, previous, actor.Name, actor.Type)
	if err := s.batchRepo.TransitionWithLog(ctx, batch, []settlement.BatchStatus{settlement.BatchStatusCalculated}, entry); err != nil {
		return nil, err
	}

	s.logger.Info("settlement batch confirmed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("net_amount", batch.NetAmount.String()),
	)

	return toBatchResponse(batch, true), nil
}

// AddAdjustment records a signed correction against a confirmed batch.
// The original snapshot stays untouched; only the net amount moves.
func (s *BatchService) AddAdjustment(ctx context.Context, tenantID, batchID uuid.UUID, req AdjustmentRequest, actor Actor) (*BatchResponse, error) {
	batch, err := s.findBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	previous := batch.Status
	delta := valueobject.NewMoneyUSD(req.Delta)
	if err := batch.AddAdjustment(delta, req.Reason); err != nil {
		return nil, err
	}

	entry := settlement.NewLogEntry(batch, settlement.LogActionAdjustmentAdded, previous, actor.Name, actor.Type).
		WithReason(req.Reason).
		WithAdjustmentDetails(settlement.Details{
			"delta":      req.Delta.String(),
			"net_amount": batch.NetAmount.String(),
		})

	if err := s.batchRepo.SaveWithLog(ctx, batch, entry); err != nil {
		return nil, err
	}

	s.logger.Info("settlement adjustment recorded",
		zap.String("batch_id", batch.ID.String()),
		zap.String("delta", req.Delta.String()),
		zap.String("reason", req.Reason),
	)

	return toBatchResponse(batch, true), nil
}

// InitiatePayment records that the batch was handed to an external payment rail
func (s *BatchService) InitiatePayment(ctx context.Context, tenantID, batchID uuid.UUID, paymentRef string, actor Actor) (*BatchResponse, error) {
	batch, err := s.findBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	previous := batch.Status
	if err := batch.InitiatePayment(paymentRef); err != nil {
		return nil, err
	}

	entry := settlement.NewLogEntry(batch, settlement.LogActionPaymentInitiated, previous, actor.Name, actor.Type)
	if err := s.batchRepo.TransitionWithLog(ctx, batch, []settlement.BatchStatus{settlement.BatchStatusConfirmed}, entry); err != nil {
		return nil, err
	}

	return toBatchResponse(batch, true), nil
}

// MarkPaid completes the batch lifecycle once payment settles
func (s *BatchService) MarkPaid(ctx context.Context, tenantID, batchID uuid.UUID, paymentRef string, actor Actor) (*BatchResponse, error) {
	batch, err := s.findBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	previous := batch.Status
	if err := batch.MarkPaid(paymentRef); err != nil {
		return nil, err
	}

	allowedFrom := []settlement.BatchStatus{settlement.BatchStatusConfirmed, settlement.BatchStatusPaymentPending}
	entry := settlement.NewLogEntry(batch, settlement.LogActionPaymentCompleted, previous, actor.Name, actor.Type)
	if err := s.batchRepo.TransitionWithLog(ctx, batch, allowedFrom, entry); err != nil {
		return nil, err
	}

	s.logger.Info("settlement batch paid",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("payment_ref", batch.PaymentRef),
	)

	return toBatchResponse(batch, true), nil
}

// MarkPaymentFailed records a failed payment attempt. The batch stays in
// PAYMENT_PENDING so the payment can be retried or the batch cancelled.
func (s *BatchService) MarkPaymentFailed(ctx context.Context, tenantID, batchID uuid.UUID, reason string, actor Actor) (*BatchResponse, error) {
	batch, err := s.findBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	previous := batch.Status
	if err := batch.MarkPaymentFailed(reason); err != nil {
		return nil, err
	}

	entry := settlement.NewLogEntry(batch, settlement.LogActionPaymentFailed, previous, actor.Name, actor.Type).WithReason(reason)
	if err := s.batchRepo.SaveWithLog(ctx, batch, entry); err != nil {
		return nil, err
	}

	s.logger.Warn("settlement payment failed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("reason", reason),
	)

	return toBatchResponse(batch, true), nil
}

// Cancel voids a confirmed batch before payment completes
func (s *BatchService) Cancel(ctx context.Context, tenantID, batchID uuid.UUID, reason string, actor Actor) (*BatchResponse, error) {
	batch, err := s.findBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	previous := batch.Status
	if err := batch.Cancel(reason); err != nil {
		return nil, err
	}

	allowedFrom := []settlement.BatchStatus{settlement.BatchStatusConfirmed, settlement.BatchStatusPaymentPending}
	entry := settlement.NewLogEntry(batch, settlement.LogActionStatusChanged, previous, actor.Name, actor.Type).WithReason(reason)
	if err := s.batchRepo.TransitionWithLog(ctx, batch, allowedFrom, entry); err != nil {
		return nil, err
	}

	s.logger.Info("settlement batch cancelled",
		zap.String("batch_id", batch.ID.String()),
		zap.String("reason", reason),
	)

	return toBatchResponse(batch, true), nil
}

// ===================== Transaction Ingestion =====================

// IngestTransaction records one commission-bearing line from the order
// pipeline. Lines are immutable once recorded.
func (s *BatchService) IngestTransaction(ctx context.Context, tenantID uuid.UUID, req IngestTransactionRequest) (uuid.UUID, error) {
	tx, err := settlement.NewSettlementTransaction(tenantID, req.ContextType, req.OwnerID, req.ProductID, req.SaleAmount, req.Quantity, req.OccurredAt)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.txRepo.Save(ctx, tx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save settlement transaction: %w", err)
	}
	return tx.ID, nil
}

// ===================== Queries =====================

// GetBatch gets a batch by ID, including its resolved lines
func (s *BatchService) GetBatch(ctx context.Context, tenantID, batchID uuid.UUID) (*BatchResponse, error) {
	batch, err := s.findBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}
	return toBatchResponse(batch, true), nil
}

// ListBatches lists batches for a tenant with filtering
func (s *BatchService) ListBatches(ctx context.Context, tenantID uuid.UUID, filter BatchListFilter) ([]BatchResponse, int64, error) {
	domainFilter := settlement.BatchFilter{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		OwnerID:    filter.OwnerID,
		PeriodFrom: filter.PeriodFrom,
		PeriodTo:   filter.PeriodTo,
	}
	if filter.ContextType != "" {
		ct := settlement.ContextType(filter.ContextType)
		domainFilter.ContextType = &ct
	}
	if filter.Status != "" {
		status := settlement.BatchStatus(filter.Status)
		domainFilter.Status = &status
	}

	batches, err := s.batchRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.batchRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]BatchResponse, len(batches))
	for i := range batches {
		responses[i] = *toBatchResponse(&batches[i], false)
	}

	return responses, total, nil
}

// GetAuditTrail returns the full chronological audit trail of a batch.
// Replaying the entries reconstructs every state the batch passed through.
func (s *BatchService) GetAuditTrail(ctx context.Context, tenantID, batchID uuid.UUID) ([]LogEntryResponse, error) {
	if _, err := s.findBatch(ctx, tenantID, batchID); err != nil {
		return nil, err
	}

	entries, err := s.logRepo.FindByBatchOrdered(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	responses := make([]LogEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = LogEntryResponse{
			ID:                 e.ID,
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

	return responses, nil
}

// ===================== Internals =====================

func (s *BatchService) findBatch(ctx context.Context, tenantID, batchID uuid.UUID) (*settlement.SettlementBatch, error) {
	batch, err := s.batchRepo.FindByIDForTenant(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Settlement batch not found")
	}
	return batch, nil
}

// resolveLines loads the batch's transactions and resolves each line's
// commission through the policy cascade
func (s *BatchService) resolveLines(ctx context.Context, batch *settlement.SettlementBatch) (settlement.LineSnapshot, error) {
	transactions, err := s.txRepo.FindForPeriod(ctx, batch.TenantID, batch.ContextType, batch.OwnerID, batch.PeriodStart, batch.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	sellerRate, err := s.policies.SellerRate(ctx, batch.TenantID, batch.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seller rate: %w", err)
	}

	lines := make(settlement.LineSnapshot, 0, len(transactions))
	for i := range transactions {
		tx := &transactions[i]

		productPolicy, err := s.policies.ProductPolicy(ctx, batch.TenantID, tx.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to load product policy for %s: %w", tx.ProductID, err)
		}

		resolution := commission.Resolve(commission.Input{
			SaleAmount:    tx.SaleAmount,
			Quantity:      tx.Quantity,
			ProductPolicy: productPolicy,
			SellerRate:    sellerRate,
		})

		for _, w := range resolution.Warnings {
			s.logger.Warn("commission policy skipped during resolution",
				zap.String("batch_id", batch.ID.String()),
				zap.String("transaction_id", tx.ID.String()),
				zap.String("level", string(w.Level)),
				zap.String("reason", w.Reason),
			)
		}

		lines = append(lines, settlement.ResolvedLine{
			TransactionID:    tx.ID,
			ProductID:        tx.ProductID,
			SaleAmount:       tx.SaleAmount,
			Quantity:         tx.Quantity,
			CommissionAmount: resolution.CommissionAmount,
			Source:           resolution.Source,
			ValueUsed:        resolution.ValueUsed,
		})
	}

	return lines, nil
}

// failCalculation records a calculation failure and its audit entry. The
// original cause is returned to the caller; a failed batch stays retryable.
func (s *BatchService) failCalculation(ctx context.Context, batch *settlement.SettlementBatch, cause error, actor Actor) (*BatchResponse, error) {
	previous := batch.Status
	if err := batch.FailCalculation(cause.Error()); err != nil {
		return nil, err
	}

	entry := settlement.NewLogEntry(batch, settlement.LogActionStatusChanged, previous, actor.Name, actor.Type).WithReason(cause.Error())
	if err := s.batchRepo.SaveWithLog(ctx, batch, entry); err != nil {
		s.logger.Error("failed to persist calculation failure",
			zap.String("batch_id", batch.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Error("settlement calculation failed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.Error(cause),
	)

	return nil, cause
}

func toBatchResponse(b *settlement.SettlementBatch, includeLines bool) *BatchResponse {
	resp := &BatchResponse{
		ID:               b.ID,
		TenantID:         b.TenantID,
		BatchNumber:      b.BatchNumber,
		ContextType:      b.ContextType,
		OwnerID:          b.OwnerID,
		PeriodStart:      b.PeriodStart,
		PeriodEnd:        b.PeriodEnd,
		PeriodUnit:       b.PeriodUnit,
		Status:           b.Status,
		TotalAmount:      b.TotalAmount,
		CommissionAmount: b.CommissionAmount,
		NetAmount:        b.NetAmount,
		LineCount:        b.LineCount(),
		PaymentRef:       b.PaymentRef,
		FailureReason:    b.FailureReason,
		CancelReason:     b.CancelReason,
		ClosedAt:         b.ClosedAt,
		PaidAt:           b.PaidAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		Version:          b.Version,
	}
	if includeLines {
		resp.Lines = b.LineSnapshot
	}
	return resp
}
