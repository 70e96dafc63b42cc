package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// SettlementBatchSortFields contains allowed sort fields for settlement batches
var SettlementBatchSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"batch_number": true,
	"status":       true,
	"period_start": true,
	"period_end":   true,
	"total_amount": true,
	"net_amount":   true,
}

// WebhookDeliverySortFields contains allowed sort fields for webhook deliveries
var WebhookDeliverySortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"event":      true,
	"status":     true,
	"attempts":   true,
}
