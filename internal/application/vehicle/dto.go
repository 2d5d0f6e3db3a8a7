package vehicle

import (
	"time"

	"github.com/crm/backend/internal/domain/vehicle"
	"github.com/google/uuid"
)

// CreateVehicleRequest represents a request to register a vehicle
type CreateVehicleRequest struct {
	Plate       string `json:"plate" binding:"required,min=3,max=10"`
	Description string `json:"description" binding:"max=200"`
	DriverName  string `json:"driver_name" binding:"max=200"`
}

// UpdateVehicleRequest represents a request to update a vehicle
type UpdateVehicleRequest struct {
	Description *string `json:"description" binding:"omitempty,max=200"`
	DriverName  *string `json:"driver_name" binding:"omitempty,max=200"`
	Notes       *string `json:"notes"`
}

// ScheduleMaintenanceRequest represents a maintenance scheduling request
type ScheduleMaintenanceRequest struct {
	At string `json:"at" binding:"required,datetime=2006-01-02"`
}

// VehicleResponse represents a vehicle in API responses
type VehicleResponse struct {
	ID               uuid.UUID  `json:"id"`
	Plate            string     `json:"plate"`
	Description      string     `json:"description,omitempty"`
	DriverName       string     `json:"driver_name,omitempty"`
	MaintenanceAt    *time.Time `json:"maintenance_at,omitempty"`
	NeedsMaintenance bool       `json:"needs_maintenance"`
	Notes            string     `json:"notes,omitempty"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// VehicleListFilter represents filter options for vehicle list
type VehicleListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToVehicleResponse converts a domain Vehicle to VehicleResponse
func ToVehicleResponse(v *vehicle.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:               v.ID,
		Plate:            v.Plate,
		Description:      v.Description,
		DriverName:       v.DriverName,
		MaintenanceAt:    v.MaintenanceAt,
		NeedsMaintenance: v.NeedsMaintenance(time.Now()),
		Notes:            v.Notes,
		DeletedAt:        v.DeletedAt,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

// ToVehicleResponses converts a slice of vehicles to responses
func ToVehicleResponses(vehicles []vehicle.Vehicle) []VehicleResponse {
	responses := make([]VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		responses = append(responses, ToVehicleResponse(&vehicles[i]))
	}
	return responses
}
