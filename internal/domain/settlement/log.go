package settlement

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// LogAction is the closed set of auditable settlement actions
type LogAction string

const (
	LogActionCreated             LogAction = "created"
	LogActionStatusChanged       LogAction = "status_changed"
	LogActionCalculationExecuted LogAction = "calculation_executed"
	LogActionConfirmed           LogAction = "confirmed"
	LogActionAdjustmentAdded     LogAction = "adjustment_added"
	LogActionPaymentInitiated    LogAction = "payment_initiated"
	LogActionPaymentCompleted    LogAction = "payment_completed"
	LogActionPaymentFailed       LogAction = "payment_failed"
)

// IsValid checks if the action is a valid LogAction
func (a LogAction) IsValid() bool {
	switch a {
	case LogActionCreated, LogActionStatusChanged, LogActionCalculationExecuted,
		LogActionConfirmed, LogActionAdjustmentAdded, LogActionPaymentInitiated,
		LogActionPaymentCompleted, LogActionPaymentFailed:
		return true
	}
	return false
}

// String returns the string representation of LogAction
func (a LogAction) String() string {
	return string(a)
}

// ActorType identifies what kind of actor triggered a settlement action
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeSystem ActorType = "SYSTEM"
)

// Details is an opaque structured value attached to audit entries
// (calculation or adjustment context). It is audit-only and never drives
// control flow, so no strict schema is enforced.
type Details map[string]interface{}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (d *Details) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Details: unsupported type")
	}

	if len(bytes) == 0 {
		*d = nil
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// LogEntry is one append-only audit row for a settlement batch. Entries are
// written in the same transaction as the batch state change and are never
// updated or deleted afterwards.
type LogEntry struct {
	ID                 uuid.UUID   `json:"id"`
	TenantID           uuid.UUID   `json:"tenant_id"`
	BatchID            uuid.UUID   `json:"batch_id"`
	Action             LogAction   `json:"action"`
	PreviousStatus     BatchStatus `json:"previous_status"`
	NewStatus          BatchStatus `json:"new_status"`
	Actor              string      `json:"actor"`
	ActorType          ActorType   `json:"actor_type"`
	Reason             string      `json:"reason,omitempty"`
	CalculationDetails Details     `json:"calculation_details,omitempty"`
	AdjustmentDetails  Details     `json:"adjustment_details,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// NewLogEntry creates a new audit log entry for a batch transition
func NewLogEntry(batch *SettlementBatch, action LogAction, previous BatchStatus, actor string, actorType ActorType) *LogEntry {
	return &LogEntry{
		ID:             uuid.New(),
		TenantID:       batch.TenantID,
		BatchID:        batch.ID,
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      batch.Status,
		Actor:          actor,
		ActorType:      actorType,
		CreatedAt:      time.Now(),
	}
}

// WithReason attaches a reason to the log entry
func (e *LogEntry) WithReason(reason string) *LogEntry {
	e.Reason = reason
	return e
}

// WithCalculationDetails attaches calculation context to the log entry
func (e *LogEntry) WithCalculationDetails(details Details) *LogEntry {
	e.CalculationDetails = details
	return e
}

// WithAdjustmentDetails attaches adjustment context to the log entry
func (e *LogEntry) WithAdjustmentDetails(details Details) *LogEntry {
	e.AdjustmentDetails = details
	return e
}
