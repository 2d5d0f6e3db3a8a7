package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerMetricsProvider implements CustomerMetricsProvider using GORM.
// It queries the customers table directly for aggregated metrics.
type GormCustomerMetricsProvider struct {
	db *gorm.DB
}

// NewGormCustomerMetricsProvider creates a new GormCustomerMetricsProvider.
func NewGormCustomerMetricsProvider(db *gorm.DB) *GormCustomerMetricsProvider {
	return &GormCustomerMetricsProvider{db: db}
}

// GetCustomerCountByStatus returns customer counts per status for a tenant.
func (p *GormCustomerMetricsProvider) GetCustomerCountByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	type result struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}

	query := p.db.WithContext(ctx).
		Table("customers").
		Select("status, COUNT(*) as count").
		Where("deleted_at IS NULL").
		Group("status")
	if tenantID == uuid.Nil {
		query = query.Where("tenant_id IS NULL")
	} else {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var results []result
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.Status] = r.Count
	}

	return m, nil
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns the tenant IDs that have at least one customer.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("customers").
		Distinct("tenant_id").
		Where("tenant_id IS NOT NULL AND deleted_at IS NULL").
		Find(&ids).Error

	return ids, err
}
