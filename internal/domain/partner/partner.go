package partner

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// WebhookEvents is the list of event names a partner subscribes to,
// stored as JSONB on the partner record
type WebhookEvents []string

// Value implements driver.Valuer interface for GORM to store as JSONB
func (e WebhookEvents) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (e *WebhookEvents) Scan(value interface{}) error {
	if value == nil {
		*e = WebhookEvents{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan WebhookEvents: unsupported type")
	}

	if len(bytes) == 0 {
		*e = WebhookEvents{}
		return nil
	}

	return json.Unmarshal(bytes, e)
}

// Contains reports whether the partner subscribed to the given event
func (e WebhookEvents) Contains(event string) bool {
	for _, name := range e {
		if name == event {
			return true
		}
	}
	return false
}

// WebhookConfig is the webhook configuration owned by the partner record.
// The settlement engine reads all fields and writes only LastDeliveredAt.
type WebhookConfig struct {
	PartnerID       uuid.UUID     `json:"partner_id"`
	TenantID        uuid.UUID     `json:"tenant_id"`
	URL             string        `json:"webhook_url"`
	Secret          string        `json:"-"`
	Enabled         bool          `json:"webhook_enabled"`
	Events          WebhookEvents `json:"webhook_events"`
	LastDeliveredAt *time.Time    `json:"webhook_last_delivered_at"`
}

// SkipReason explains why an event was not dispatched to a partner
type SkipReason string

const (
	SkipDisabled      SkipReason = "webhooks_disabled"
	SkipNoURL         SkipReason = "no_url_configured"
	SkipNoSecret      SkipReason = "no_secret_configured"
	SkipNotSubscribed SkipReason = "event_not_subscribed"
)

// ShouldDeliver decides whether the given event is deliverable to this
// partner. A non-empty SkipReason means the event is silently skipped;
// skipping is never an error.
func (c *WebhookConfig) ShouldDeliver(event string) (bool, SkipReason) {
	if !c.Enabled {
		return false, SkipDisabled
	}
	if c.URL == "" {
		return false, SkipNoURL
	}
	if c.Secret == "" {
		return false, SkipNoSecret
	}
	if !c.Events.Contains(event) {
		return false, SkipNotSubscribed
	}
	return true, ""
}
