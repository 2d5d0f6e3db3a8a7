package employee

import (
	"time"

	"github.com/crm/backend/internal/domain/employee"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CreateEmployeeRequest represents a request to create a new employee
type CreateEmployeeRequest struct {
	FirstName      string `json:"first_name" binding:"required,min=1,max=100"`
	LastName       string `json:"last_name" binding:"max=100"`
	DocumentType   string `json:"document_type" binding:"required,oneof=CC NIT CE PA TI RC"`
	DocumentNumber string `json:"document_number" binding:"required,min=5,max=20"`
	Email          string `json:"email" binding:"omitempty,email,max=255"`
	Phone          string `json:"phone" binding:"omitempty,max=20"`
	Position       string `json:"position" binding:"max=100"`
	HiredAt        string `json:"hired_at" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateEmployeeRequest represents a request to update an employee
type UpdateEmployeeRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
	Position  *string `json:"position" binding:"omitempty,max=100"`
	Notes     *string `json:"notes"`
}

// EmployeeResponse represents an employee in API responses
type EmployeeResponse struct {
	ID                uuid.UUID  `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name,omitempty"`
	FullName          string     `json:"full_name"`
	DocumentType      string     `json:"document_type"`
	DocumentNumber    string     `json:"document_number"`
	DocumentFormatted string     `json:"document_formatted"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Position          string     `json:"position,omitempty"`
	HiredAt           *time.Time `json:"hired_at,omitempty"`
	Status            string     `json:"status"`
	Notes             string     `json:"notes,omitempty"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EmployeeListFilter represents filter options for employee list
type EmployeeListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive"`
	Position string `form:"position"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToEmployeeResponse converts a domain Employee to EmployeeResponse
func ToEmployeeResponse(e *employee.Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:                e.ID,
		FirstName:         e.FirstName,
		LastName:          e.LastName,
		FullName:          e.FullName(),
		DocumentType:      string(e.Document.Type()),
		DocumentNumber:    e.Document.Number(),
		DocumentFormatted: e.Document.Formatted(),
		Position:          e.Position,
		HiredAt:           e.HiredAt,
		Status:            string(e.Status),
		Notes:             e.Notes,
		DeletedAt:         e.DeletedAt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
	if e.Email != nil && !e.Email.IsEmpty() {
		resp.Email = e.Email.String()
	}
	if e.Phone != nil && !e.Phone.IsEmpty() {
		resp.Phone = e.Phone.String()
	}
	return resp
}

// ToEmployeeResponses converts a slice of employees to responses
func ToEmployeeResponses(employees []employee.Employee) []EmployeeResponse {
	responses := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		responses = append(responses, ToEmployeeResponse(&employees[i]))
	}
	return responses
}

func parseEmail(raw string) (*valueobject.Email, error) {
	if raw == "" {
		return nil, nil
	}
	email, err := valueobject.NewEmail(raw)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_EMAIL", err.Error())
	}
	return &email, nil
}

func parsePhone(raw string) (*valueobject.Phone, error) {
	if raw == "" {
		return nil, nil
	}
	phone, err := valueobject.NewPhone(raw)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PHONE", err.Error())
	}
	return &phone, nil
}
