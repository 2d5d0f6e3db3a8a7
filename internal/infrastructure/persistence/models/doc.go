// Package models contains GORM-specific persistence models that map to database tables.
//
// Most aggregates in this codebase carry their own GORM mappings and are persisted
// directly by the repositories. The models here cover infrastructure concerns whose
// domain types should stay free of ORM annotations:
//
// - outbox.go: Outbox pattern model for transactional event delivery
package models
