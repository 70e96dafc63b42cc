// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel, TenantAggregateModel)
// - settlement.go: Settlement context models (SettlementBatch, SettlementLog, SettlementTransaction)
// - partner.go: Partner context models (Partner, Product)
// - webhook.go: Webhook delivery queue model (WebhookDelivery)
// - outbox: shared.OutboxEntry carries its own TableName (outbox_events) and needs no separate model
package models
