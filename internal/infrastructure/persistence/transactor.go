package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txContextKey struct{}

// GormTransactor implements shared.Transactor on GORM. The transaction
// handle travels through the context so repositories created with the same
// *gorm.DB join the transaction transparently.
type GormTransactor struct {
	db *gorm.DB
}

// NewGormTransactor creates a new GormTransactor
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// WithinTransaction runs fn inside a database transaction. Nested calls
// reuse the transaction already present in the context.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// txFromContext returns the transaction stored in the context, or nil
func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx
}

// dbFromContext returns the transaction handle from the context when one is
// active, otherwise the repository's own handle.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// scopeTenant restricts a query to one tenant. uuid.Nil selects untenanted
// records.
func scopeTenant(query *gorm.DB, tenantID uuid.UUID) *gorm.DB {
	if tenantID == uuid.Nil {
		return query.Where("tenant_id IS NULL")
	}
	return query.Where("tenant_id = ?", tenantID)
}
