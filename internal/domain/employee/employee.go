package employee

import (
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// EmployeeStatus represents the employment status
type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusInactive EmployeeStatus = "inactive"
)

// IsValid returns true if the status is known
func (s EmployeeStatus) IsValid() bool {
	return s == EmployeeStatusActive || s == EmployeeStatusInactive
}

// Employee is the aggregate root for back-office staff records
type Employee struct {
	shared.TenantAggregateRoot
	FirstName string                 `gorm:"type:varchar(100);not null"`
	LastName  string                 `gorm:"type:varchar(100)"`
	Document  valueobject.DocumentID `gorm:"type:varchar(40);not null;uniqueIndex:idx_employee_tenant_document,priority:2"`
	Email     *valueobject.Email     `gorm:"type:varchar(255);index"`
	Phone     *valueobject.Phone     `gorm:"type:varchar(20)"`
	Position  string                 `gorm:"type:varchar(100)"`
	HiredAt   *time.Time             `gorm:""`
	Status    EmployeeStatus         `gorm:"type:varchar(20);not null;default:'active'"`
	Notes     string                 `gorm:"type:text"`
	DeletedAt *time.Time             `gorm:"index"`
}

// TableName returns the table name for GORM
func (Employee) TableName() string {
	return "employees"
}

// NewEmployee creates an active employee
func NewEmployee(tenantID uuid.UUID, firstName, lastName, position string, document valueobject.DocumentID, email *valueobject.Email, phone *valueobject.Phone, hiredAt *time.Time) (*Employee, error) {
	if strings.TrimSpace(firstName) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "First name is required")
	}
	if document.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document is required")
	}

	return &Employee{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		FirstName:           strings.TrimSpace(firstName),
		LastName:            strings.TrimSpace(lastName),
		Document:            document,
		Email:               email,
		Phone:               phone,
		Position:            strings.TrimSpace(position),
		HiredAt:             hiredAt,
		Status:              EmployeeStatusActive,
	}, nil
}

// Update changes the employee's profile fields
func (e *Employee) Update(firstName, lastName, position, notes string, email *valueobject.Email, phone *valueobject.Phone) error {
	if strings.TrimSpace(firstName) == "" {
		return shared.NewDomainError("INVALID_NAME", "First name is required")
	}

	e.FirstName = strings.TrimSpace(firstName)
	e.LastName = strings.TrimSpace(lastName)
	e.Position = strings.TrimSpace(position)
	e.Notes = notes
	e.Email = email
	e.Phone = phone
	e.Touch()
	e.IncrementVersion()

	return nil
}

// Deactivate moves the employee to inactive status
func (e *Employee) Deactivate() {
	if e.Status == EmployeeStatusInactive {
		return
	}
	e.Status = EmployeeStatusInactive
	e.Touch()
	e.IncrementVersion()
}

// Activate moves the employee back to active status
func (e *Employee) Activate() {
	if e.Status == EmployeeStatusActive {
		return
	}
	e.Status = EmployeeStatusActive
	e.Touch()
	e.IncrementVersion()
}

// IsActive returns true when the employee is active and not deleted
func (e *Employee) IsActive() bool {
	return e.Status == EmployeeStatusActive && e.DeletedAt == nil
}

// IsDeleted returns true when the employee has been soft deleted
func (e *Employee) IsDeleted() bool {
	return e.DeletedAt != nil
}

// SoftDelete marks the employee as deleted
func (e *Employee) SoftDelete() {
	if e.IsDeleted() {
		return
	}
	now := time.Now()
	e.DeletedAt = &now
	e.UpdatedAt = now
	e.IncrementVersion()
}

// FullName returns the employee's display name
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}
