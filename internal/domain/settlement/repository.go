package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BatchFilter represents query filter options for settlement batches
type BatchFilter struct {
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
	ContextType *ContextType
	OwnerID     *uuid.UUID
	Status      *BatchStatus
	PeriodFrom  *time.Time
	PeriodTo    *time.Time
}

// SettlementBatchRepository defines persistence for settlement batches.
// State-changing saves take the audit log entry for the transition so both
// rows commit in one transaction: the log exists if and only if the
// transition persisted.
type SettlementBatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SettlementBatch, error)
	// FindByIDForTenant finds a batch by ID scoped to a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SettlementBatch, error)
	// FindAllForTenant lists batches for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BatchFilter) ([]SettlementBatch, error)
	// CountForTenant counts batches for a tenant matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter BatchFilter) (int64, error)
	// ExistsForPeriod reports whether a batch already covers the given
	// (contextType, ownerID, period, unit) for the tenant
	ExistsForPeriod(ctx context.Context, tenantID uuid.UUID, contextType ContextType, ownerID uuid.UUID, periodStart, periodEnd time.Time, unit PeriodUnit) (bool, error)
	// CreateWithLog inserts a new batch and its creation log entry atomically.
	// Returns shared.ErrDuplicateBatch when the period uniqueness invariant
	// would be violated.
	CreateWithLog(ctx context.Context, batch *SettlementBatch, entry *LogEntry) error
	// SaveWithLog persists batch state and the transition's log entry in one
	// transaction, with an optimistic version check.
	SaveWithLog(ctx context.Context, batch *SettlementBatch, entry *LogEntry) error
	// TransitionWithLog performs the guarded status transition: the batch row
	// is updated only if its current status is in allowedFrom (conditional
	// write, equivalent to compare-and-swap). The losing caller receives
	// shared.ErrConcurrencyConflict and the log entry is not written.
	TransitionWithLog(ctx context.Context, batch *SettlementBatch, allowedFrom []BatchStatus, entry *LogEntry) error
	// GenerateBatchNumber generates a unique batch number for the tenant
	GenerateBatchNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// SettlementLogRepository defines read access to the append-only audit log.
// Writes happen only through the batch repository's atomic save methods.
type SettlementLogRepository interface {
	// FindByBatchOrdered returns the full audit trail of a batch in
	// chronological order for replay
	FindByBatchOrdered(ctx context.Context, tenantID, batchID uuid.UUID) ([]LogEntry, error)
	// CountByBatch counts audit entries for a batch
	CountByBatch(ctx context.Context, tenantID, batchID uuid.UUID) (int64, error)
}

// SettlementTransactionRepository defines persistence for transaction lines
type SettlementTransactionRepository interface {
	// Save persists a new settlement transaction
	Save(ctx context.Context, tx *SettlementTransaction) error
	// FindForPeriod returns all transactions for an owner within a period,
	// ordered by occurrence time
	FindForPeriod(ctx context.Context, tenantID uuid.UUID, contextType ContextType, ownerID uuid.UUID, periodStart, periodEnd time.Time) ([]SettlementTransaction, error)
}
