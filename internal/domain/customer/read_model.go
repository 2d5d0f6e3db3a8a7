package customer

import (
	"context"

	"github.com/google/uuid"
)

// CustomerBasicInfo is the read-model projection other modules consume
type CustomerBasicInfo struct {
	ID       uuid.UUID      `json:"id"`
	Type     CustomerType   `json:"type"`
	Document string         `json:"document"`
	Name     string         `json:"name"`
	Status   CustomerStatus `json:"status"`
	Segment  string         `json:"segment,omitempty"`
}

// CustomerContactInfo is the contact projection of a customer
type CustomerContactInfo struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
	Phone string    `json:"phone,omitempty"`
}

// CustomerTaxInfo is the fiscal projection of a customer
type CustomerTaxInfo struct {
	ID               uuid.UUID `json:"id"`
	Document         string    `json:"document"`
	Regime           TaxRegime `json:"regime,omitempty"`
	Responsibilities []string  `json:"responsibilities,omitempty"`
	RetentionAgent   bool      `json:"retention_agent"`
	SelfRetainer     bool      `json:"self_retainer"`
}

// CustomerReadModel is the query port other bounded contexts use to look at
// customers without depending on the aggregate.
type CustomerReadModel interface {
	// GetBasicInfo returns the basic projection, or nil when the customer
	// does not exist or is deleted
	GetBasicInfo(ctx context.Context, id uuid.UUID) (*CustomerBasicInfo, error)

	// GetContactInfo returns the contact projection
	GetContactInfo(ctx context.Context, id uuid.UUID) (*CustomerContactInfo, error)

	// GetTaxInfo returns the fiscal projection
	GetTaxInfo(ctx context.Context, id uuid.UUID) (*CustomerTaxInfo, error)

	// IsCustomerActive reports whether the customer exists, is not deleted
	// and is in active status
	IsCustomerActive(ctx context.Context, id uuid.UUID) (bool, error)

	// Search finds basic projections matching the query
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]CustomerBasicInfo, error)
}
