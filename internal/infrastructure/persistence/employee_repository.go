package persistence

import (
	"context"
	"errors"

	"github.com/crm/backend/internal/domain/employee"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmployeeSortFields contains allowed sort fields for employees
var EmployeeSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"first_name": true,
	"last_name":  true,
	"position":   true,
	"status":     true,
	"hired_at":   true,
}

// GormEmployeeRepository implements employee.EmployeeRepository using GORM
type GormEmployeeRepository struct {
	db *gorm.DB
}

// NewGormEmployeeRepository creates a new GormEmployeeRepository
func NewGormEmployeeRepository(db *gorm.DB) *GormEmployeeRepository {
	return &GormEmployeeRepository{db: db}
}

func (r *GormEmployeeRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// Save persists an employee
func (r *GormEmployeeRepository) Save(ctx context.Context, e *employee.Employee) error {
	return r.conn(ctx).Save(e).Error
}

// FindByID finds an employee by ID
func (r *GormEmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*employee.Employee, error) {
	var e employee.Employee
	if err := r.conn(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// FindByIDForTenant finds an employee by ID within a tenant
func (r *GormEmployeeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*employee.Employee, error) {
	var e employee.Employee
	if err := scopeTenant(r.conn(ctx), tenantID).
		Where("id = ?", id).
		First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// FindAllForTenant lists employees matching the filter
func (r *GormEmployeeRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]employee.Employee, error) {
	var employees []employee.Employee
	query := r.applyFilter(scopeTenant(r.conn(ctx).Model(&employee.Employee{}), tenantID), filter)
	if err := query.Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

// CountForTenant counts employees matching the filter
func (r *GormEmployeeRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(scopeTenant(r.conn(ctx).Model(&employee.Employee{}), tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByDocument reports whether an employee with this document exists
// within a tenant
func (r *GormEmployeeRepository) ExistsByDocument(ctx context.Context, tenantID uuid.UUID, document valueobject.DocumentID) (bool, error) {
	var count int64
	if err := scopeTenant(r.conn(ctx).Model(&employee.Employee{}), tenantID).
		Where("document = ?", document.String()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes an employee permanently
func (r *GormEmployeeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&employee.Employee{}, "id = ?", id).Error
}

func (r *GormEmployeeRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, EmployeeSortFields, "created_at")
	return query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
}

func (r *GormEmployeeRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = query.Where("deleted_at IS NULL")

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"first_name ILIKE ? OR last_name ILIKE ? OR document ILIKE ? OR position ILIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "position":
			query = query.Where("position = ?", value)
		}
	}

	return query
}
