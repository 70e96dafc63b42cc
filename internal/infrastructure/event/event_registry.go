package event

import (
	"github.com/marketplace/backend/internal/domain/settlement"
)

// RegisterAllEvents registers all domain event types with the serializer.
// This is required for the OutboxProcessor to deserialize events from the
// outbox table; an unregistered type would dead-letter on first poll.
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(settlement.EventTypeBatchOpened, &settlement.BatchOpenedEvent{})
	serializer.Register(settlement.EventTypeBatchCalculated, &settlement.BatchCalculatedEvent{})
	serializer.Register(settlement.EventTypeBatchConfirmed, &settlement.BatchConfirmedEvent{})
	serializer.Register(settlement.EventTypeCommissionAdjusted, &settlement.CommissionAdjustedEvent{})
	serializer.Register(settlement.EventTypeBatchPaid, &settlement.BatchPaidEvent{})
	serializer.Register(settlement.EventTypeBatchCancelled, &settlement.BatchCancelledEvent{})
}
