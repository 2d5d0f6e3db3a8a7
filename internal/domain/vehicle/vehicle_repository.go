package vehicle

import (
	"context"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// VehicleRepository defines the persistence port for vehicles
type VehicleRepository interface {
	// Save persists a vehicle
	Save(ctx context.Context, v *Vehicle) error

	// FindByID finds a vehicle by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)

	// FindByIDForTenant finds a vehicle by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Vehicle, error)

	// FindByPlate finds a vehicle by its plate within a tenant
	FindByPlate(ctx context.Context, tenantID uuid.UUID, plate string) (*Vehicle, error)

	// FindAllForTenant lists vehicles matching the filter; the search term
	// matches plate, description and driver name
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Vehicle, error)

	// CountForTenant counts vehicles matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// Delete removes a vehicle permanently
	Delete(ctx context.Context, id uuid.UUID) error
}
