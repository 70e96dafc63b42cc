package handler

import (
	"net/http"
	"time"

	webhookapp "github.com/marketplace/backend/internal/application/webhook"
	"github.com/marketplace/backend/internal/domain/webhook"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler handles webhook delivery inspection endpoints
type WebhookHandler struct {
	BaseHandler
	dispatcher *webhookapp.Dispatcher
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(dispatcher *webhookapp.Dispatcher) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
	}
}

// DeadDeliveryResponse represents a permanently failed delivery in API responses
//
//	@Description	Dead webhook delivery response
type DeadDeliveryResponse struct {
	ID          string    `json:"id"`
	PartnerID   string    `json:"partner_id"`
	EventID     string    `json:"event_id"`
	Event       string    `json:"event" example:"settlement.confirmed"`
	URL         string    `json:"url"`
	Attempts    int       `json:"attempts" example:"5"`
	MaxAttempts int       `json:"max_attempts" example:"5"`
	LastError   string    `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeadDeliveryListFilter represents filter parameters for the dead delivery list
//
//	@Description	Dead delivery list filter
type DeadDeliveryListFilter struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size,omitempty" binding:"omitempty,min=1,max=100" json:"page_size" example:"20"`
}

// ListDeadDeliveries godoc
//
//	@Summary		List dead webhook deliveries
//	@Description	Get a paginated list of deliveries that exhausted all retry attempts
//	@Tags			webhooks
//	@Produce		json
//	@Param			page		query		int	false	"Page number"	default(1)
//	@Param			page_size	query		int	false	"Page size"		default(20)
//	@Success		200			{object}	APIResponse[[]DeadDeliveryResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Router			/webhooks/dead-deliveries [get]
func (h *WebhookHandler) ListDeadDeliveries(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	var filter DeadDeliveryListFilter
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

	jobs, total, err := h.dispatcher.ListDeadDeliveries(c.Request.Context(), tenantID, filter.Page, filter.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	response := make([]DeadDeliveryResponse, len(jobs))
	for i, job := range jobs {
		response[i] = toDeadDeliveryResponse(job)
	}

	h.SuccessWithMeta(c, response, total, filter.Page, filter.PageSize)
}

// TestDeliveryResponse represents an enqueued test delivery in API responses
//
//	@Description	Test webhook delivery response
type TestDeliveryResponse struct {
	JobID string `json:"job_id"`
	Event string `json:"event" example:"webhook.test"`
	URL   string `json:"url"`
}

// SendTestDelivery godoc
//
//	@Summary		Send a test webhook delivery
//	@Description	Enqueue a synthetic test event for the partner's configured endpoint
//	@Tags			webhooks
//	@Produce		json
//	@Param			id	path		string	true	"Partner ID"
//	@Success		201	{object}	APIResponse[TestDeliveryResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse	"Webhook not configured"
//	@Router			/webhooks/partners/{id}/test [post]
func (h *WebhookHandler) SendTestDelivery(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant")
		return
	}

	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid partner ID format")
		return
	}

	job, err := h.dispatcher.DispatchTest(c.Request.Context(), tenantID, partnerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, TestDeliveryResponse{
		JobID: job.ID.String(),
		Event: job.Event,
		URL:   job.URL,
	})
}

func toDeadDeliveryResponse(job *webhook.DeliveryJob) DeadDeliveryResponse {
	return DeadDeliveryResponse{
		ID:          job.ID.String(),
		PartnerID:   job.PartnerID.String(),
		EventID:     job.EventID.String(),
		Event:       job.Event,
		URL:         job.URL,
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		LastError:   job.LastError,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

// RegisterRoutes registers all webhook inspection routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.GET("/dead-deliveries", h.ListDeadDeliveries)
		webhooks.POST("/partners/:id/test", h.SendTestDelivery)
	}
}
