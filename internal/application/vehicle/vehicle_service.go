package vehicle

import (
	"context"
	"errors"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/vehicle"
	"github.com/google/uuid"
)

// VehicleService orchestrates fleet use cases
type VehicleService struct {
	vehicles vehicle.VehicleRepository
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(vehicles vehicle.VehicleRepository) *VehicleService {
	return &VehicleService{vehicles: vehicles}
}

// Create registers a new vehicle
func (s *VehicleService) Create(ctx context.Context, tenantID uuid.UUID, req CreateVehicleRequest) (*VehicleResponse, error) {
	v, err := vehicle.NewVehicle(tenantID, req.Plate, req.Description, req.DriverName)
	if err != nil {
		return nil, err
	}

	existing, err := s.vehicles.FindByPlate(ctx, tenantID, v.Plate)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Vehicle with this plate already exists")
	}

	if err := s.vehicles.Save(ctx, v); err != nil {
		return nil, err
	}

	resp := ToVehicleResponse(v)
	return &resp, nil
}

// GetByID returns a vehicle by ID
func (s *VehicleService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*VehicleResponse, error) {
	v, err := s.vehicles.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToVehicleResponse(v)
	return &resp, nil
}

// List returns vehicles matching the filter, paginated
func (s *VehicleService) List(ctx context.Context, tenantID uuid.UUID, filter VehicleListFilter) (*shared.Paginated[VehicleResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search

	vehicles, err := s.vehicles.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.vehicles.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToVehicleResponses(vehicles), total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// Update updates a vehicle's details
func (s *VehicleService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateVehicleRequest) (*VehicleResponse, error) {
	v, err := s.vehicles.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	description := v.Description
	if req.Description != nil {
		description = *req.Description
	}
	driverName := v.DriverName
	if req.DriverName != nil {
		driverName = *req.DriverName
	}
	notes := v.Notes
	if req.Notes != nil {
		notes = *req.Notes
	}

	v.Update(description, driverName, notes)
	if err := s.vehicles.Save(ctx, v); err != nil {
		return nil, err
	}

	resp := ToVehicleResponse(v)
	return &resp, nil
}

// ScheduleMaintenance records the next maintenance date for a vehicle
func (s *VehicleService) ScheduleMaintenance(ctx context.Context, tenantID, id uuid.UUID, req ScheduleMaintenanceRequest) (*VehicleResponse, error) {
	v, err := s.vehicles.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	at, err := time.Parse("2006-01-02", req.At)
	if err != nil {
		return nil, shared.NewDomainError("VALIDATION", "at must be a YYYY-MM-DD date")
	}
	if err := v.ScheduleMaintenance(at); err != nil {
		return nil, err
	}
	if err := s.vehicles.Save(ctx, v); err != nil {
		return nil, err
	}

	resp := ToVehicleResponse(v)
	return &resp, nil
}

// Delete soft deletes a vehicle
func (s *VehicleService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	v, err := s.vehicles.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	v.SoftDelete()
	return s.vehicles.Save(ctx, v)
}
