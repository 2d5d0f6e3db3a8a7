package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/vehicle"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VehicleSortFields contains allowed sort fields for vehicles
var VehicleSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"plate":          true,
	"driver_name":    true,
	"maintenance_at": true,
}

// GormVehicleRepository implements vehicle.VehicleRepository using GORM
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewGormVehicleRepository creates a new GormVehicleRepository
func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

func (r *GormVehicleRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// Save persists a vehicle
func (r *GormVehicleRepository) Save(ctx context.Context, v *vehicle.Vehicle) error {
	return r.conn(ctx).Save(v).Error
}

// FindByID finds a vehicle by ID
func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	if err := r.conn(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindByIDForTenant finds a vehicle by ID within a tenant
func (r *GormVehicleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	if err := scopeTenant(r.conn(ctx), tenantID).
		Where("id = ?", id).
		First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindByPlate finds a vehicle by its plate within a tenant
func (r *GormVehicleRepository) FindByPlate(ctx context.Context, tenantID uuid.UUID, plate string) (*vehicle.Vehicle, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	if plate == "" {
		return nil, shared.NewDomainError("INVALID_PLATE", "Plate cannot be empty")
	}
	var v vehicle.Vehicle
	if err := scopeTenant(r.conn(ctx), tenantID).
		Where("plate = ? AND deleted_at IS NULL", plate).
		First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindAllForTenant lists vehicles matching the filter
func (r *GormVehicleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]vehicle.Vehicle, error) {
	var vehicles []vehicle.Vehicle
	query := r.applyFilter(scopeTenant(r.conn(ctx).Model(&vehicle.Vehicle{}), tenantID), filter)
	if err := query.Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

// CountForTenant counts vehicles matching the filter
func (r *GormVehicleRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(scopeTenant(r.conn(ctx).Model(&vehicle.Vehicle{}), tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a vehicle permanently
func (r *GormVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&vehicle.Vehicle{}, "id = ?", id).Error
}

func (r *GormVehicleRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, VehicleSortFields, "created_at")
	return query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
}

func (r *GormVehicleRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = query.Where("deleted_at IS NULL")

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"plate ILIKE ? OR description ILIKE ? OR driver_name ILIKE ?",
			pattern, pattern, pattern,
		)
	}

	return query
}
