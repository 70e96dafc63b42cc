package handler

import (
	"net/http"
	"time"

	settlementapp "github.com/marketplace/backend/internal/application/settlement"
	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementHandler handles settlement batch API endpoints
type SettlementHandler struct {
	BaseHandler
	service *settlementapp.BatchService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(service *settlementapp.BatchService) *SettlementHandler {
	return &SettlementHandler{
		service: service,
	}
}

// ===================== Request DTOs =====================

// PaymentActionRequest carries the external payment reference for payment actions
//
//	@Description	Payment action request
type PaymentActionRequest struct {
	PaymentRef string `json:"payment_ref" example:"PAY-2026-000123"`
}

// ReasonRequest carries the reason for failure and cancellation actions
//
//	@Description	Reason request
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required" example:"beneficiary account closed"`
}

// SettlementListFilter represents filter parameters for the batch list
//
//	@Description	Settlement batch list filter
type SettlementListFilter struct {
	ContextType string `form:"context_type"`
	OwnerID     string `form:"owner_id"`
	Status      string `form:"status"`
	PeriodFrom  string `form:"period_from"`
	PeriodTo    string `form:"period_to"`
	Page        int    `form:"page,omitempty" binding:"omitempty,min=1" example:"1"`
	PageSize    int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100" json:"page_size" example:"20"`
}

// actor builds the audit actor from the request headers
func (h *SettlementHandler) actor(c *gin.Context) settlementapp.Actor {
	return settlementapp.Actor{Name: getActorName(c), Type: settlement.ActorTypeUser}
}

// batchID parses the batch ID path parameter
func (h *SettlementHandler) batchID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid batch ID")
		return uuid.Nil, false
	}
	return id, true
}

// ===================== Lifecycle Handlers =====================

// OpenBatch godoc
//
//	@Summary		Open settlement batch
//	@Description	Open a new settlement batch for an owner and period
//	@Tags			settlements
//	@Accept			json
//	@Produce		json
//	@Param			request	body		settlementapp.OpenBatchRequest	true	"Batch creation request"
//	@Success		201		{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/settlements [post]
func (h *SettlementHandler) OpenBatch(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	var req settlementapp.OpenBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	batch, err := h.service.OpenBatch(c.Request.Context(), tenantID, req, h.actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, batch)
}

// RunCalculation godoc
//
//	@Summary		Run commission calculation
//	@Description	Execute the commission calculation for a batch. Re-running before confirmation replaces the previous result.
//	@Tags			settlements
//	@Produce		json
//	@Param			id	path		string	true	"Batch ID"
//	@Success		200	{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/settlements/{id}/calculate [post]
func (h *SettlementHandler) RunCalculation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	batch, err := h.service.RunCalculation(c.Request.Context(), tenantID, batchID, h.actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// ConfirmBatch godoc
//
//	@Summary		Confirm settlement batch
//	@Description	Freeze the calculated snapshot. Confirmation is final.
//	@Tags			settlements
//	@Produce		json
//	@Param			id	path		string	true	"Batch ID"
//	@Success		200	{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/settlements/{id}/confirm [post]
func (h *SettlementHandler) ConfirmBatch(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	batch, err := h.service.Confirm(c.Request.Context(), tenantID, batchID, h.actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// AddAdjustment godoc
//
//	@Summary		Add adjustment
//	@Description	Record a signed net-amount correction against a confirmed batch
//	@Tags			settlements
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Batch ID"
//	@Param			request	body		settlementapp.AdjustmentRequest	true	"Adjustment request"
//	@Success		200		{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/settlements/{id}/adjustments [post]
func (h *SettlementHandler) AddAdjustment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	var req settlementapp.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	batch, err := h.service.AddAdjustment(c.Request.Context(), tenantID, batchID, req, h.actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// InitiatePayment godoc
//
//	@Summary		Initiate payment
//	@Description	Record that the batch was handed to an external payment rail
//	@Tags			settlements
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Batch ID"
//	@Param			request	body		PaymentActionRequest	true	"Payment initiation request"
//	@Success		200		{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/settlements/{id}/initiate-payment [post]
func (h *SettlementHandler) InitiatePayment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	var req PaymentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	batch, err := h.service.InitiatePayment(c.Request.Context(), tenantID, batchID, req.PaymentRef, h.actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// MarkPaid godoc
//
//	@Summary		Mark batch paid
//	@Description	Complete the batch lifecycle once payment settles
//	@Tags			settlements
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Batch ID"
//	@Param			request	body		PaymentActionRequest	true	"Payment completion request"
//	@Success		200		{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/settlements/{id}/pay [post]
func (h *SettlementHandler) MarkPaid(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	var req PaymentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	batch, err := h.service.MarkPaid(c.Request.Context(), tenantID, batchID, req.PaymentRef, h.actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// MarkPaymentFailed godoc
//
//	@Summary		Record payment failure
//	@Description	Record a failed payment attempt. The batch stays payable for a retry.
//	@Tags			settlements
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Batch ID"
//	@Param			request	body		ReasonRequest	true	"Failure reason"
//	@Success		200		{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/settlements/{id}/payment-failed [post]
func (h *SettlementHandler) MarkPaymentFailed(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	batch, err := h.service.MarkPaymentFailed(c.Request.Context(), tenantID, batchID, req.Reason, h.actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// CancelBatch godoc
//
//	@Summary		Cancel settlement batch
//	@Description	Void a confirmed batch before payment completes
//	@Tags			settlements
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Batch ID"
//	@Param			request	body		ReasonRequest	true	"Cancellation reason"
//	@Success		200		{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/settlements/{id}/cancel [post]
func (h *SettlementHandler) CancelBatch(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	batch, err := h.service.Cancel(c.Request.Context(), tenantID, batchID, req.Reason, h.actor(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// ===================== Query Handlers =====================

// GetBatch godoc
//
//	@Summary		Get settlement batch
//	@Description	Get a single settlement batch by its ID, including resolved lines
//	@Tags			settlements
//	@Produce		json
//	@Param			id	path		string	true	"Batch ID"
//	@Success		200	{object}	APIResponse[settlementapp.BatchResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Router			/settlements/{id} [get]
func (h *SettlementHandler) GetBatch(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	batch, err := h.service.GetBatch(c.Request.Context(), tenantID, batchID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, batch)
}

// ListBatches godoc
//
//	@Summary		List settlement batches
//	@Description	Get a paginated list of settlement batches
//	@Tags			settlements
//	@Produce		json
//	@Param			context_type	query		string	false	"Filter by context"	Enums(SELLER, SUPPLIER)
//	@Param			owner_id		query		string	false	"Filter by owner"
//	@Param			status			query		string	false	"Filter by status"	Enums(OPEN, CALCULATING, CALCULATED, CONFIRMED, PAYMENT_PENDING, PAID, FAILED, CANCELLED)
//	@Param			period_from		query		string	false	"Period start lower bound (YYYY-MM-DD)"
//	@Param			period_to		query		string	false	"Period start upper bound (YYYY-MM-DD)"
//	@Param			page			query		int		false	"Page number"		default(1)
//	@Param			page_size		query		int		false	"Page size"			default(20)
//	@Success		200				{object}	APIResponse[[]settlementapp.BatchResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Router			/settlements [get]
func (h *SettlementHandler) ListBatches(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	var filter SettlementListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	serviceFilter := settlementapp.BatchListFilter{
		ContextType: filter.ContextType,
		Status:      filter.Status,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	}
	if filter.OwnerID != "" {
		ownerID, err := uuid.Parse(filter.OwnerID)
		if err != nil {
			h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid owner ID")
			return
		}
		serviceFilter.OwnerID = &ownerID
	}
	if filter.PeriodFrom != "" {
		if t, err := time.Parse("2006-01-02", filter.PeriodFrom); err == nil {
			serviceFilter.PeriodFrom = &t
		}
	}
	if filter.PeriodTo != "" {
		if t, err := time.Parse("2006-01-02", filter.PeriodTo); err == nil {
			t = t.Add(24*time.Hour - time.Second)
			serviceFilter.PeriodTo = &t
		}
	}

	batches, total, err := h.service.ListBatches(c.Request.Context(), tenantID, serviceFilter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, batches, total, filter.Page, filter.PageSize)
}

// GetAuditTrail godoc
//
//	@Summary		Get batch audit trail
//	@Description	Get the full chronological audit trail of a batch
//	@Tags			settlements
//	@Produce		json
//	@Param			id	path		string	true	"Batch ID"
//	@Success		200	{object}	APIResponse[[]settlementapp.LogEntryResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Router			/settlements/{id}/logs [get]
func (h *SettlementHandler) GetAuditTrail(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	entries, err := h.service.GetAuditTrail(c.Request.Context(), tenantID, batchID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}

// IngestTransaction godoc
//
//	@Summary		Ingest settlement transaction
//	@Description	Record one commission-bearing line from the order pipeline
//	@Tags			settlements
//	@Accept			json
//	@Produce		json
//	@Param			request	body		settlementapp.IngestTransactionRequest	true	"Transaction ingestion request"
//	@Success		201		{object}	APIResponse[map[string]string]
//	@Failure		400		{object}	ErrorResponse
//	@Router			/settlement-transactions [post]
func (h *SettlementHandler) IngestTransaction(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	var req settlementapp.IngestTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	txID, err := h.service.IngestTransaction(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, gin.H{"transaction_id": txID.String()})
}

// RegisterRoutes registers all settlement routes
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settlements := rg.Group("/settlements")
	{
		settlements.GET("", h.ListBatches)
		settlements.GET("/:id", h.GetBatch)
		settlements.GET("/:id/logs", h.GetAuditTrail)
		settlements.POST("", h.OpenBatch)
		settlements.POST("/:id/calculate", h.RunCalculation)
		settlements.POST("/:id/confirm", h.ConfirmBatch)
		settlements.POST("/:id/adjustments", h.AddAdjustment)
		settlements.POST("/:id/initiate-payment", h.InitiatePayment)
		settlements.POST("/:id/pay", h.MarkPaid)
		settlements.POST("/:id/payment-failed", h.MarkPaymentFailed)
		settlements.POST("/:id/cancel", h.CancelBatch)
	}

	transactions := rg.Group("/settlement-transactions")
	{
		transactions.POST("", h.IngestTransaction)
	}
}
