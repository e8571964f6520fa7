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
// - base.go: BaseModel (ID and timestamps)
// - credential.go: tiktok_credentials (sealed secrets and tokens, shop cipher)
// - order_record.go: order_records (dashboard order history, unique per order_id)
//
// The tables themselves are created by the SQL migrations in /migrations.
package models
