package employee

import (
	"context"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// EmployeeRepository defines the persistence port for employees
type EmployeeRepository interface {
	// Save persists an employee
	Save(ctx context.Context, e *Employee) error

	// FindByID finds an employee by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Employee, error)

	// FindByIDForTenant finds an employee by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Employee, error)

	// FindAllForTenant lists employees matching the filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Employee, error)

	// CountForTenant counts employees matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// ExistsByDocument reports whether an employee with this document exists
	// within a tenant
	ExistsByDocument(ctx context.Context, tenantID uuid.UUID, document valueobject.DocumentID) (bool, error)

	// Delete removes an employee permanently
	Delete(ctx context.Context, id uuid.UUID) error
}
