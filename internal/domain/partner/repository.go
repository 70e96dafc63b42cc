package partner

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WebhookConfigRepository reads partner webhook configuration and records
// delivery timestamps. LastDeliveredAt is the engine's only write path into
// the partner record; it tolerates eventual consistency, so no locking is
// used.
type WebhookConfigRepository interface {
	// FindByPartner returns the webhook config for a partner, or
	// shared.ErrNotFound when the partner does not exist
	FindByPartner(ctx context.Context, tenantID, partnerID uuid.UUID) (*WebhookConfig, error)
	// UpdateLastDeliveredAt records the most recent successful delivery
	UpdateLastDeliveredAt(ctx context.Context, partnerID uuid.UUID, deliveredAt time.Time) error
}
