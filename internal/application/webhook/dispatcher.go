package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marketplace/backend/internal/domain/partner"
	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/webhook"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Envelope is the wire format delivered to partner endpoints. The signature
// over the serialized envelope travels in the request headers.
type Envelope struct {
	EventID   uuid.UUID   `json:"event_id"`
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Dispatcher turns settlement domain events into durable webhook delivery
// jobs. It never sends HTTP itself; jobs are picked up by the delivery
// worker, which owns retries and back-off. Misconfigured or unsubscribed
// partners are skipped silently - skipping is not an error.
type Dispatcher struct {
	configRepo  partner.WebhookConfigRepository
	jobRepo     webhook.DeliveryJobRepository
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	logger      *zap.Logger
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(
	configRepo partner.WebhookConfigRepository,
	jobRepo webhook.DeliveryJobRepository,
	idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		configRepo:  configRepo,
		jobRepo:     jobRepo,
		idempotency: idempotency,
		idemConfig:  idemConfig,
		logger:      logger,
	}
}

// EventTypes returns the settlement event types forwarded to partners
func (d *Dispatcher) EventTypes() []string {
	return []string{
		settlement.EventTypeBatchOpened,
		settlement.EventTypeBatchCalculated,
		settlement.EventTypeBatchConfirmed,
		settlement.EventTypeCommissionAdjusted,
		settlement.EventTypeBatchPaid,
		settlement.EventTypeBatchCancelled,
	}
}

// Handle enqueues a delivery job for the event's batch owner
func (d *Dispatcher) Handle(ctx context.Context, event shared.DomainEvent) error {
	ownerID, ok := batchOwner(event)
	if !ok {
		return fmt.Errorf("unexpected event type for webhook dispatch: %s", event.EventType())
	}

	if d.idemConfig.Enabled && d.idempotency != nil {
		fresh, err := d.idempotency.MarkProcessed(ctx, dispatchKey(event), d.idemConfig.TTL)
		if err != nil {
			return fmt.Errorf("idempotency check failed: %w", err)
		}
		if !fresh {
			d.logger.Debug("webhook dispatch already processed, skipping",
				zap.String("event_id", event.EventID().String()),
				zap.String("event", event.EventType()),
			)
			return nil
		}
	}

	config, err := d.configRepo.FindByPartner(ctx, event.TenantID(), ownerID)
	if err != nil {
		if err == shared.ErrNotFound {
			d.logger.Debug("no partner record for batch owner, skipping webhook",
				zap.String("owner_id", ownerID.String()),
				zap.String("event", event.EventType()),
			)
			return nil
		}
		return fmt.Errorf("failed to load webhook config: %w", err)
	}

	deliver, skipReason := config.ShouldDeliver(event.EventType())
	if !deliver {
		d.logger.Debug("webhook delivery skipped",
			zap.String("partner_id", config.PartnerID.String()),
			zap.String("event", event.EventType()),
			zap.String("reason", string(skipReason)),
		)
		return nil
	}

	payload, err := json.Marshal(Envelope{
		EventID:   event.EventID(),
		Event:     event.EventType(),
		Timestamp: event.OccurredAt(),
		Data:      event,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize webhook payload: %w", err)
	}

	job := webhook.NewDeliveryJob(event.TenantID(), config.PartnerID, event.EventID(), event.EventType(), config.URL, config.Secret, payload)
	if err := d.jobRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue webhook delivery: %w", err)
	}

	d.logger.Info("webhook delivery enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("partner_id", config.PartnerID.String()),
		zap.String("event", event.EventType()),
	)

	return nil
}

// EventTypeTest is the synthetic event enqueued by DispatchTest. It bypasses
// the partner's subscription filter since the caller asked for it explicitly.
const EventTypeTest = "webhook.test"

// DispatchTest enqueues a test delivery so a partner can verify their
// endpoint. Unlike real events a disabled or incomplete configuration is an
// error here, not a silent skip.
func (d *Dispatcher) DispatchTest(ctx context.Context, tenantID, partnerID uuid.UUID) (*webhook.DeliveryJob, error) {
	config, err := d.configRepo.FindByPartner(ctx, tenantID, partnerID)
	if err != nil {
		return nil, err
	}

	if !config.Enabled || config.URL == "" || config.Secret == "" {
		return nil, shared.ErrNotConfigured
	}

	eventID := uuid.New()
	payload, err := json.Marshal(Envelope{
		EventID:   eventID,
		Event:     EventTypeTest,
		Timestamp: time.Now(),
		Data:      map[string]string{"partner_id": partnerID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize test payload: %w", err)
	}

	job := webhook.NewDeliveryJob(tenantID, partnerID, eventID, EventTypeTest, config.URL, config.Secret, payload)
	if err := d.jobRepo.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue test delivery: %w", err)
	}

	d.logger.Info("test webhook delivery enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("partner_id", partnerID.String()),
	)

	return job, nil
}

// ListDeadDeliveries returns permanently failed deliveries for inspection
func (d *Dispatcher) ListDeadDeliveries(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*webhook.DeliveryJob, int64, error) {
	return d.jobRepo.FindDead(ctx, tenantID, page, pageSize)
}

// dispatchKey scopes the idempotency mark to this consumer so other
// handlers of the same event are unaffected
func dispatchKey(event shared.DomainEvent) string {
	return "webhook-dispatch:" + event.EventID().String()
}

// batchOwner extracts the owning party from a settlement event
func batchOwner(event shared.DomainEvent) (uuid.UUID, bool) {
	switch e := event.(type) {
	case *settlement.BatchOpenedEvent:
		return e.OwnerID, true
	case *settlement.BatchCalculatedEvent:
		return e.OwnerID, true
	case *settlement.BatchConfirmedEvent:
		return e.OwnerID, true
	case *settlement.CommissionAdjustedEvent:
		return e.OwnerID, true
	case *settlement.BatchPaidEvent:
		return e.OwnerID, true
	case *settlement.BatchCancelledEvent:
		return e.OwnerID, true
	}
	return uuid.Nil, false
}

// Ensure Dispatcher implements shared.EventHandler
var _ shared.EventHandler = (*Dispatcher)(nil)
