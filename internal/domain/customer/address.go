package customer

import (
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AddressType classifies a customer address
type AddressType string

const (
	AddressTypeBilling  AddressType = "billing"
	AddressTypeShipping AddressType = "shipping"
	AddressTypeLegal    AddressType = "legal"
	AddressTypeOffice   AddressType = "office"
	AddressTypeHome     AddressType = "home"
)

// IsValid returns true if the address type is known
func (t AddressType) IsValid() bool {
	switch t {
	case AddressTypeBilling, AddressTypeShipping, AddressTypeLegal, AddressTypeOffice, AddressTypeHome:
		return true
	}
	return false
}

// ParseAddressType parses a string into an AddressType
func ParseAddressType(s string) (AddressType, error) {
	t := AddressType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainError("INVALID_ADDRESS", "Unknown address type: "+s)
	}
	return t, nil
}

// Address is a postal address attached to a customer
type Address struct {
	shared.BaseEntity
	CustomerID uuid.UUID               `gorm:"type:uuid;not null;index"`
	Type       AddressType             `gorm:"type:varchar(20);not null;default:'billing'"`
	Line1      string                  `gorm:"type:varchar(200);not null"`
	Line2      string                  `gorm:"type:varchar(200)"`
	City       string                  `gorm:"type:varchar(100)"`
	State      string                  `gorm:"type:varchar(100)"`
	PostalCode string                  `gorm:"type:varchar(20)"`
	Country    valueobject.CountryCode `gorm:"type:varchar(2)"`
	IsDefault  bool                    `gorm:"not null;default:false"`
	Notes      string                  `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Address) TableName() string {
	return "customer_addresses"
}

// NewAddress creates a customer address
func NewAddress(addressType AddressType, line1, line2, city, state, postalCode string, country valueobject.CountryCode) (Address, error) {
	address := Address{
		BaseEntity: shared.NewBaseEntity(),
		Type:       addressType,
		Line1:      strings.TrimSpace(line1),
		Line2:      strings.TrimSpace(line2),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    country,
	}
	if err := address.Validate(); err != nil {
		return Address{}, err
	}
	return address, nil
}

// Validate checks the address invariants
func (a Address) Validate() error {
	if !a.Type.IsValid() {
		return shared.NewDomainError("INVALID_ADDRESS", "Unknown address type: "+string(a.Type))
	}
	if strings.TrimSpace(a.Line1) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Address line is required")
	}
	if len(a.Line1) > 200 || len(a.Line2) > 200 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address lines cannot exceed 200 characters")
	}
	return nil
}

// FullAddress joins the non-empty parts into a single display string. Two
// addresses with the same full string are treated as the same address.
func (a Address) FullAddress() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country.String()} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// SameLocation reports whether both addresses format to the same full string,
// ignoring case.
func (a Address) SameLocation(other Address) bool {
	return strings.EqualFold(a.FullAddress(), other.FullAddress())
}

// CopyFor returns a copy of the address attached to another customer.
// The copy gets a fresh identity and never arrives as the default.
func (a Address) CopyFor(customerID uuid.UUID) Address {
	clone := a
	clone.BaseEntity = shared.NewBaseEntity()
	clone.CustomerID = customerID
	clone.IsDefault = false
	return clone
}
