package customer

import (
	"fmt"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CustomerStatus represents the lifecycle status of a customer
type CustomerStatus string

const (
	CustomerStatusProspect    CustomerStatus = "prospect"
	CustomerStatusActive      CustomerStatus = "active"
	CustomerStatusInactive    CustomerStatus = "inactive"
	CustomerStatusSuspended   CustomerStatus = "suspended"
	CustomerStatusBlacklisted CustomerStatus = "blacklisted"
)

// AllCustomerStatuses lists every valid status
var AllCustomerStatuses = []CustomerStatus{
	CustomerStatusProspect, CustomerStatusActive, CustomerStatusInactive,
	CustomerStatusSuspended, CustomerStatusBlacklisted,
}

// IsValid returns true if the status is known
func (s CustomerStatus) IsValid() bool {
	for _, st := range AllCustomerStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Description returns a human-readable name for the status
func (s CustomerStatus) Description() string {
	switch s {
	case CustomerStatusProspect:
		return "Prospect"
	case CustomerStatusActive:
		return "Active"
	case CustomerStatusInactive:
		return "Inactive"
	case CustomerStatusSuspended:
		return "Suspended"
	case CustomerStatusBlacklisted:
		return "Blacklisted"
	default:
		return string(s)
	}
}

// CanBeUpdated reports whether customers in this status accept profile changes
func (s CustomerStatus) CanBeUpdated() bool {
	return s != CustomerStatusBlacklisted
}

// CanBeDeleted reports whether customers in this status can be soft deleted
func (s CustomerStatus) CanBeDeleted() bool {
	return s != CustomerStatusBlacklisted
}

// ParseCustomerStatus parses a string into a CustomerStatus
func ParseCustomerStatus(s string) (CustomerStatus, error) {
	status := CustomerStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewDomainErrorf("INVALID_STATUS", "Unknown customer status: %s", s)
	}
	return status, nil
}

// CustomerType distinguishes natural persons from juridical (company) customers
type CustomerType string

const (
	CustomerTypeNatural   CustomerType = "natural"
	CustomerTypeJuridical CustomerType = "juridical"
)

// IsValid returns true if the type is known
func (t CustomerType) IsValid() bool {
	return t == CustomerTypeNatural || t == CustomerTypeJuridical
}

// Description returns a human-readable name for the type
func (t CustomerType) Description() string {
	switch t {
	case CustomerTypeNatural:
		return "Natural Person"
	case CustomerTypeJuridical:
		return "Juridical Person"
	default:
		return string(t)
	}
}

// ValidDocumentTypes lists the document types a customer of this type may carry
func (t CustomerType) ValidDocumentTypes() []valueobject.DocumentType {
	switch t {
	case CustomerTypeJuridical:
		return []valueobject.DocumentType{valueobject.DocumentTypeNIT}
	case CustomerTypeNatural:
		return []valueobject.DocumentType{
			valueobject.DocumentTypeCC, valueobject.DocumentTypeCE,
			valueobject.DocumentTypePA, valueobject.DocumentTypeTI,
			valueobject.DocumentTypeRC,
		}
	default:
		return nil
	}
}

// AcceptsDocumentType reports whether the document type is valid for this customer type
func (t CustomerType) AcceptsDocumentType(dt valueobject.DocumentType) bool {
	for _, valid := range t.ValidDocumentTypes() {
		if valid == dt {
			return true
		}
	}
	return false
}

// ParseCustomerType parses a string into a CustomerType
func ParseCustomerType(s string) (CustomerType, error) {
	t := CustomerType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainErrorf("INVALID_TYPE", "Unknown customer type: %s", s)
	}
	return t, nil
}

// DefaultBlacklistReason is recorded when a customer is blacklisted without
// an explicit reason.
const DefaultBlacklistReason = "No reason provided"

// Customer is the aggregate root of the customer context. It owns the
// customer's contacts, addresses and tax profile; all state changes go
// through its methods so invariants hold and domain events are recorded.
type Customer struct {
	shared.TenantAggregateRoot
	Type            CustomerType           `gorm:"type:varchar(20);not null"`
	Document        valueobject.DocumentID `gorm:"type:varchar(40);not null;uniqueIndex:idx_customer_tenant_document,priority:2"`
	BusinessName    string                 `gorm:"type:varchar(200)"`
	FirstName       string                 `gorm:"type:varchar(100)"`
	LastName        string                 `gorm:"type:varchar(100)"`
	Email           *valueobject.Email     `gorm:"type:varchar(255);index"`
	Phone           *valueobject.Phone     `gorm:"type:varchar(20);index"`
	Status          CustomerStatus         `gorm:"type:varchar(20);not null;default:'prospect';index"`
	Segment         string                 `gorm:"type:varchar(100)"`
	Notes           string                 `gorm:"type:text"`
	BlacklistReason string                 `gorm:"type:text"`
	MergedIntoID    *uuid.UUID             `gorm:"type:uuid;index"`
	DeletedAt       *time.Time             `gorm:"index"`
	DeletedReason   string                 `gorm:"type:text"`
	Contacts        []Contact              `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	Addresses       []Address              `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	TaxProfile      *TaxProfile            `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a new customer in prospect status. TenantID may be
// uuid.Nil for records not bound to a tenant.
func NewCustomer(
	tenantID uuid.UUID,
	customerType CustomerType,
	document valueobject.DocumentID,
	businessName, firstName, lastName string,
	email *valueobject.Email,
	phone *valueobject.Phone,
) (*Customer, error) {
	if !customerType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_TYPE", "Unknown customer type: %s", customerType)
	}
	if document.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document is required")
	}
	if !customerType.AcceptsDocumentType(document.Type()) {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE",
			fmt.Sprintf("Document type %s is not valid for %s customers", document.Type(), customerType))
	}
	if err := validateNames(customerType, businessName, firstName, lastName); err != nil {
		return nil, err
	}
	if err := validateReachability(email, phone); err != nil {
		return nil, err
	}

	c := &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Type:                customerType,
		Document:            document,
		BusinessName:        strings.TrimSpace(businessName),
		FirstName:           strings.TrimSpace(firstName),
		LastName:            strings.TrimSpace(lastName),
		Email:               email,
		Phone:               phone,
		Status:              CustomerStatusProspect,
	}

	c.AddDomainEvent(NewCustomerCreatedEvent(c))

	return c, nil
}

func validateNames(customerType CustomerType, businessName, firstName, lastName string) error {
	switch customerType {
	case CustomerTypeJuridical:
		if strings.TrimSpace(businessName) == "" {
			return shared.NewDomainError("INVALID_NAME", "Business name is required for juridical customers")
		}
	case CustomerTypeNatural:
		if strings.TrimSpace(firstName) == "" && strings.TrimSpace(lastName) == "" {
			return shared.NewDomainError("INVALID_NAME", "First or last name is required for natural customers")
		}
	}
	if len(businessName) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Business name cannot exceed 200 characters")
	}
	if len(firstName) > 100 || len(lastName) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Names cannot exceed 100 characters")
	}
	return nil
}

func validateReachability(email *valueobject.Email, phone *valueobject.Phone) error {
	hasEmail := email != nil && !email.IsEmpty()
	hasPhone := phone != nil && !phone.IsEmpty()
	if !hasEmail && !hasPhone {
		return shared.NewDomainError("CONTACT_REQUIRED", "At least one of email or phone is required")
	}
	return nil
}

// Update changes the customer's profile fields. Blacklisted customers
// cannot be updated.
func (c *Customer) Update(
	businessName, firstName, lastName, segment, notes string,
	email *valueobject.Email,
	phone *valueobject.Phone,
) error {
	if !c.Status.CanBeUpdated() {
		return shared.NewDomainError("CUSTOMER_BLACKLISTED", "Blacklisted customers cannot be updated")
	}
	if err := validateNames(c.Type, businessName, firstName, lastName); err != nil {
		return err
	}
	if err := validateReachability(email, phone); err != nil {
		return err
	}

	c.BusinessName = strings.TrimSpace(businessName)
	c.FirstName = strings.TrimSpace(firstName)
	c.LastName = strings.TrimSpace(lastName)
	c.Segment = strings.TrimSpace(segment)
	c.Notes = notes
	c.Email = email
	c.Phone = phone
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// ChangeStatus moves the customer to a new status. Changing to the same
// status is a no-op. Blacklisting requires Blacklist so a reason is always
// recorded; leaving the blacklist requires Unblacklist.
func (c *Customer) ChangeStatus(newStatus CustomerStatus) error {
	if !newStatus.IsValid() {
		return shared.NewDomainErrorf("INVALID_STATUS", "Unknown customer status: %s", newStatus)
	}
	if c.Status == newStatus {
		return nil
	}
	if c.Status == CustomerStatusBlacklisted {
		return shared.NewDomainError("CUSTOMER_BLACKLISTED", "Use the unblacklist operation to restore a blacklisted customer")
	}
	if newStatus == CustomerStatusBlacklisted {
		return c.Blacklist("")
	}

	old := c.Status
	c.Status = newStatus
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerStatusChangedEvent(c, old, newStatus, ""))

	return nil
}

// Activate moves the customer to active status
func (c *Customer) Activate() error {
	return c.ChangeStatus(CustomerStatusActive)
}

// Deactivate moves the customer to inactive status
func (c *Customer) Deactivate() error {
	return c.ChangeStatus(CustomerStatusInactive)
}

// Suspend moves the customer to suspended status
func (c *Customer) Suspend() error {
	return c.ChangeStatus(CustomerStatusSuspended)
}

// Blacklist moves the customer to the blacklist, recording the reason.
// An empty reason is replaced by DefaultBlacklistReason.
func (c *Customer) Blacklist(reason string) error {
	if c.Status == CustomerStatusBlacklisted {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultBlacklistReason
	}

	old := c.Status
	c.Status = CustomerStatusBlacklisted
	c.BlacklistReason = reason
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerStatusChangedEvent(c, old, CustomerStatusBlacklisted, reason))
	c.AddDomainEvent(NewCustomerBlacklistedEvent(c, reason))

	return nil
}

// Unblacklist restores a blacklisted customer to inactive status and clears
// the recorded reason.
func (c *Customer) Unblacklist() error {
	if c.Status != CustomerStatusBlacklisted {
		return shared.NewDomainError("INVALID_STATE", "Customer is not blacklisted")
	}

	c.Status = CustomerStatusInactive
	c.BlacklistReason = ""
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerStatusChangedEvent(c, CustomerStatusBlacklisted, CustomerStatusInactive, ""))

	return nil
}

// IsBlacklisted returns true when the customer is on the blacklist
func (c *Customer) IsBlacklisted() bool {
	return c.Status == CustomerStatusBlacklisted
}

// IsActive returns true when the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

// IsDeleted returns true when the customer has been soft deleted
func (c *Customer) IsDeleted() bool {
	return c.DeletedAt != nil
}

// SoftDelete marks the customer as deleted with an optional reason.
// Blacklisted customers cannot be deleted; they stay visible for audits.
func (c *Customer) SoftDelete(reason string) error {
	if !c.Status.CanBeDeleted() {
		return shared.NewDomainError("CUSTOMER_BLACKLISTED", "Blacklisted customers cannot be deleted")
	}
	if c.IsDeleted() {
		return nil
	}

	now := time.Now()
	c.DeletedAt = &now
	c.DeletedReason = strings.TrimSpace(reason)
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerDeletedEvent(c, reason))

	return nil
}

// Restore clears a previous soft delete
func (c *Customer) Restore() {
	if !c.IsDeleted() {
		return
	}
	c.DeletedAt = nil
	c.DeletedReason = ""
	c.Touch()
	c.IncrementVersion()
}

// AddContact attaches a contact person to the customer. The first contact
// becomes primary; marking a later contact primary demotes the previous one.
func (c *Customer) AddContact(contact Contact) error {
	if err := contact.Validate(); err != nil {
		return err
	}

	contact.CustomerID = c.ID
	if len(c.Contacts) == 0 {
		contact.IsPrimary = true
	} else if contact.IsPrimary {
		for i := range c.Contacts {
			c.Contacts[i].IsPrimary = false
		}
	}

	c.Contacts = append(c.Contacts, contact)
	c.Touch()
	c.IncrementVersion()

	return nil
}

// AddAddress attaches an address to the customer. The first address becomes
// the default; marking a later one default demotes the previous default.
func (c *Customer) AddAddress(address Address) error {
	if err := address.Validate(); err != nil {
		return err
	}

	address.CustomerID = c.ID
	if len(c.Addresses) == 0 {
		address.IsDefault = true
	} else if address.IsDefault {
		for i := range c.Addresses {
			c.Addresses[i].IsDefault = false
		}
	}

	c.Addresses = append(c.Addresses, address)
	c.Touch()
	c.IncrementVersion()

	return nil
}

// SetTaxProfile attaches or replaces the customer's tax profile
func (c *Customer) SetTaxProfile(profile TaxProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	profile.CustomerID = c.ID
	c.TaxProfile = &profile
	c.Touch()
	c.IncrementVersion()

	return nil
}

// HasTaxProfile returns true when a tax profile is attached
func (c *Customer) HasTaxProfile() bool {
	return c.TaxProfile != nil
}

// FullName returns the display name: the personal name for natural
// customers, the business name for juridical ones.
func (c *Customer) FullName() string {
	if c.Type == CustomerTypeJuridical {
		return c.BusinessName
	}
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// HasEmail returns true when a non-empty email is set
func (c *Customer) HasEmail() bool {
	return c.Email != nil && !c.Email.IsEmpty()
}

// HasPhone returns true when a non-empty phone is set
func (c *Customer) HasPhone() bool {
	return c.Phone != nil && !c.Phone.IsEmpty()
}
