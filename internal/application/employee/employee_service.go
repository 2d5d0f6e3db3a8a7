package employee

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/employee"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// EmployeeService orchestrates employee use cases
type EmployeeService struct {
	employees employee.EmployeeRepository
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(employees employee.EmployeeRepository) *EmployeeService {
	return &EmployeeService{employees: employees}
}

// Create creates a new employee
func (s *EmployeeService) Create(ctx context.Context, tenantID uuid.UUID, req CreateEmployeeRequest) (*EmployeeResponse, error) {
	docType, err := valueobject.ParseDocumentType(req.DocumentType)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", err.Error())
	}
	document, err := valueobject.NewDocumentID(docType, req.DocumentNumber)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", err.Error())
	}

	exists, err := s.employees.ExistsByDocument(ctx, tenantID, document)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Employee with this document already exists")
	}

	email, err := parseEmail(req.Email)
	if err != nil {
		return nil, err
	}
	phone, err := parsePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	var hiredAt *time.Time
	if req.HiredAt != "" {
		parsed, err := time.Parse("2006-01-02", req.HiredAt)
		if err != nil {
			return nil, shared.NewDomainError("VALIDATION", "hired_at must be a YYYY-MM-DD date")
		}
		hiredAt = &parsed
	}

	e, err := employee.NewEmployee(tenantID, req.FirstName, req.LastName, req.Position, document, email, phone, hiredAt)
	if err != nil {
		return nil, err
	}
	if err := s.employees.Save(ctx, e); err != nil {
		return nil, err
	}

	resp := ToEmployeeResponse(e)
	return &resp, nil
}

// GetByID returns an employee by ID
func (s *EmployeeService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*EmployeeResponse, error) {
	e, err := s.employees.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToEmployeeResponse(e)
	return &resp, nil
}

// List returns employees matching the filter, paginated
func (s *EmployeeService) List(ctx context.Context, tenantID uuid.UUID, filter EmployeeListFilter) (*shared.Paginated[EmployeeResponse], error) {
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
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Position != "" {
		domainFilter.Filters["position"] = filter.Position
	}

	employees, err := s.employees.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.employees.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToEmployeeResponses(employees), total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// Update updates an employee's profile fields
func (s *EmployeeService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateEmployeeRequest) (*EmployeeResponse, error) {
	e, err := s.employees.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	firstName := e.FirstName
	if req.FirstName != nil {
		firstName = *req.FirstName
	}
	lastName := e.LastName
	if req.LastName != nil {
		lastName = *req.LastName
	}
	position := e.Position
	if req.Position != nil {
		position = *req.Position
	}
	notes := e.Notes
	if req.Notes != nil {
		notes = *req.Notes
	}

	email := e.Email
	if req.Email != nil {
		email, err = parseEmail(*req.Email)
		if err != nil {
			return nil, err
		}
	}
	phone := e.Phone
	if req.Phone != nil {
		phone, err = parsePhone(*req.Phone)
		if err != nil {
			return nil, err
		}
	}

	if err := e.Update(firstName, lastName, position, notes, email, phone); err != nil {
		return nil, err
	}
	if err := s.employees.Save(ctx, e); err != nil {
		return nil, err
	}

	resp := ToEmployeeResponse(e)
	return &resp, nil
}

// Activate moves an employee back to active status
func (s *EmployeeService) Activate(ctx context.Context, tenantID, id uuid.UUID) (*EmployeeResponse, error) {
	return s.changeStatus(ctx, tenantID, id, (*employee.Employee).Activate)
}

// Deactivate moves an employee to inactive status
func (s *EmployeeService) Deactivate(ctx context.Context, tenantID, id uuid.UUID) (*EmployeeResponse, error) {
	return s.changeStatus(ctx, tenantID, id, (*employee.Employee).Deactivate)
}

func (s *EmployeeService) changeStatus(ctx context.Context, tenantID, id uuid.UUID, change func(*employee.Employee)) (*EmployeeResponse, error) {
	e, err := s.employees.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	change(e)
	if err := s.employees.Save(ctx, e); err != nil {
		return nil, err
	}
	resp := ToEmployeeResponse(e)
	return &resp, nil
}

// Delete soft deletes an employee
func (s *EmployeeService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	e, err := s.employees.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	e.SoftDelete()
	return s.employees.Save(ctx, e)
}
