package customer

import (
	"context"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CustomerMetrics summarizes the customer base of a tenant
type CustomerMetrics struct {
	Total       int64                  `json:"total"`
	ByStatus    map[CustomerStatus]int64 `json:"by_status"`
	ByType      map[CustomerType]int64 `json:"by_type"`
	Deleted     int64                  `json:"deleted"`
	WithEmail   int64                  `json:"with_email"`
	WithPhone   int64                  `json:"with_phone"`
}

// CustomerRepository defines the persistence port for customers.
// Queries taking a tenantID treat uuid.Nil as "no tenant scope".
type CustomerRepository interface {
	// Save persists a customer and its owned contacts, addresses and tax profile
	Save(ctx context.Context, c *Customer) error

	// FindByID finds a customer by ID, including soft-deleted ones
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByIDForTenant finds a customer by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)

	// FindByDocument finds a customer by its document within a tenant
	FindByDocument(ctx context.Context, tenantID uuid.UUID, document valueobject.DocumentID) (*Customer, error)

	// FindByEmail finds non-deleted customers sharing an email within a tenant
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email valueobject.Email) ([]*Customer, error)

	// FindByPhone finds non-deleted customers sharing a phone within a tenant
	FindByPhone(ctx context.Context, tenantID uuid.UUID, phone valueobject.Phone) ([]*Customer, error)

	// FindBySimilarName finds non-deleted customers whose name resembles the
	// given one within a tenant
	FindBySimilarName(ctx context.Context, tenantID uuid.UUID, name string) ([]*Customer, error)

	// FindAllForTenant lists customers matching the filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Customer, error)

	// CountForTenant counts customers matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// Search finds customers matching the query across document, names,
	// email, phone and segment
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]Customer, error)

	// ExistsByDocument reports whether a customer with this document exists
	// within a tenant
	ExistsByDocument(ctx context.Context, tenantID uuid.UUID, document valueobject.DocumentID) (bool, error)

	// Metrics aggregates customer counts for a tenant
	Metrics(ctx context.Context, tenantID uuid.UUID) (*CustomerMetrics, error)

	// Delete removes a customer permanently
	Delete(ctx context.Context, id uuid.UUID) error
}
