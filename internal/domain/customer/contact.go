package customer

import (
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Contact is a contact person attached to a customer
type Contact struct {
	shared.BaseEntity
	CustomerID uuid.UUID          `gorm:"type:uuid;not null;index"`
	Name       string             `gorm:"type:varchar(200);not null"`
	Role       string             `gorm:"type:varchar(100)"`
	Email      *valueobject.Email `gorm:"type:varchar(255)"`
	Phone      *valueobject.Phone `gorm:"type:varchar(20)"`
	IsPrimary  bool               `gorm:"not null;default:false"`
	Notes      string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Contact) TableName() string {
	return "customer_contacts"
}

// NewContact creates a contact person
func NewContact(name, role string, email *valueobject.Email, phone *valueobject.Phone) (Contact, error) {
	contact := Contact{
		BaseEntity: shared.NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		Role:       strings.TrimSpace(role),
		Email:      email,
		Phone:      phone,
	}
	if err := contact.Validate(); err != nil {
		return Contact{}, err
	}
	return contact, nil
}

// Validate checks the contact's invariants
func (c Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewDomainError("INVALID_CONTACT", "Contact name is required")
	}
	if len(c.Name) > 200 {
		return shared.NewDomainError("INVALID_CONTACT", "Contact name cannot exceed 200 characters")
	}
	return nil
}

// HasEmail returns true when a non-empty email is set
func (c Contact) HasEmail() bool {
	return c.Email != nil && !c.Email.IsEmpty()
}

// HasPhone returns true when a non-empty phone is set
func (c Contact) HasPhone() bool {
	return c.Phone != nil && !c.Phone.IsEmpty()
}

// Matches reports whether two contacts refer to the same person: a match on
// either email or phone counts.
func (c Contact) Matches(other Contact) bool {
	if c.HasEmail() && other.HasEmail() && c.Email.Equals(*other.Email) {
		return true
	}
	if c.HasPhone() && other.HasPhone() && c.Phone.Equals(*other.Phone) {
		return true
	}
	return false
}

// CopyFor returns a copy of the contact attached to another customer.
// The copy gets a fresh identity and never arrives as primary.
func (c Contact) CopyFor(customerID uuid.UUID) Contact {
	clone := c
	clone.BaseEntity = shared.NewBaseEntity()
	clone.CustomerID = customerID
	clone.IsPrimary = false
	return clone
}
