package customer

import (
	"time"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// =============================================================================
// Customer DTOs
// =============================================================================

// CreateCustomerRequest represents a request to create a new customer
type CreateCustomerRequest struct {
	Type           string                  `json:"type" binding:"required,oneof=natural juridical"`
	DocumentType   string                  `json:"document_type" binding:"required,oneof=CC NIT CE PA TI RC"`
	DocumentNumber string                  `json:"document_number" binding:"required,min=5,max=20"`
	BusinessName   string                  `json:"business_name" binding:"max=200"`
	FirstName      string                  `json:"first_name" binding:"max=100"`
	LastName       string                  `json:"last_name" binding:"max=100"`
	Email          string                  `json:"email" binding:"omitempty,email,max=255"`
	Phone          string                  `json:"phone" binding:"omitempty,max=20"`
	Segment        string                  `json:"segment" binding:"max=100"`
	Notes          string                  `json:"notes"`
	Contacts       []ContactRequest        `json:"contacts" binding:"omitempty,dive"`
	Addresses      []AddressRequest        `json:"addresses" binding:"omitempty,dive"`
	TaxProfile     *TaxProfileRequest      `json:"tax_profile"`
	CreatedBy      *uuid.UUID              `json:"-"` // Set from JWT context, not from request body
}

// UpdateCustomerRequest represents a request to update a customer
type UpdateCustomerRequest struct {
	BusinessName *string `json:"business_name" binding:"omitempty,max=200"`
	FirstName    *string `json:"first_name" binding:"omitempty,max=100"`
	LastName     *string `json:"last_name" binding:"omitempty,max=100"`
	Email        *string `json:"email" binding:"omitempty,email,max=255"`
	Phone        *string `json:"phone" binding:"omitempty,max=20"`
	Segment      *string `json:"segment" binding:"omitempty,max=100"`
	Notes        *string `json:"notes"`
}

// ContactRequest represents a contact person in requests
type ContactRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=200"`
	Role      string `json:"role" binding:"max=100"`
	Email     string `json:"email" binding:"omitempty,email,max=255"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
	IsPrimary bool   `json:"is_primary"`
	Notes     string `json:"notes"`
}

// AddressRequest represents an address in requests
type AddressRequest struct {
	Type       string `json:"type" binding:"required,oneof=billing shipping legal office home"`
	Line1      string `json:"line1" binding:"required,min=1,max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"omitempty,len=2"`
	IsDefault  bool   `json:"is_default"`
}

// TaxProfileRequest represents a tax profile in requests
type TaxProfileRequest struct {
	Regime           string   `json:"regime" binding:"required,oneof=simplified common special not_responsible great_contributor"`
	Responsibilities []string `json:"responsibilities"`
	ActivityCodes    []string `json:"activity_codes"`
	TaxAddress       string   `json:"tax_address" binding:"max=500"`
	RetentionAgent   bool     `json:"retention_agent"`
	SelfRetainer     bool     `json:"self_retainer"`
}

// ChangeStatusRequest represents a status change request
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=prospect active inactive suspended blacklisted"`
	Reason string `json:"reason" binding:"max=500"`
}

// BlacklistRequest represents a blacklist request
type BlacklistRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// DeleteCustomerRequest represents a soft delete request
type DeleteCustomerRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// MergeCustomersRequest represents a merge request
type MergeCustomersRequest struct {
	SourceID       uuid.UUID  `json:"source_id" binding:"required"`
	DestinationID  uuid.UUID  `json:"destination_id" binding:"required"`
	IdempotencyKey string     `json:"idempotency_key" binding:"max=100"`
	Reason         string     `json:"reason" binding:"max=500"`
	ActorID        *uuid.UUID `json:"-"` // Set from JWT context
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID                uuid.UUID            `json:"id"`
	TenantID          *uuid.UUID           `json:"tenant_id,omitempty"`
	Type              string               `json:"type"`
	DocumentType      string               `json:"document_type"`
	DocumentNumber    string               `json:"document_number"`
	DocumentFormatted string               `json:"document_formatted"`
	BusinessName      string               `json:"business_name,omitempty"`
	FirstName         string               `json:"first_name,omitempty"`
	LastName          string               `json:"last_name,omitempty"`
	FullName          string               `json:"full_name"`
	Email             string               `json:"email,omitempty"`
	Phone             string               `json:"phone,omitempty"`
	Status            string               `json:"status"`
	Segment           string               `json:"segment,omitempty"`
	Notes             string               `json:"notes,omitempty"`
	BlacklistReason   string               `json:"blacklist_reason,omitempty"`
	MergedIntoID      *uuid.UUID           `json:"merged_into_id,omitempty"`
	DeletedAt         *time.Time           `json:"deleted_at,omitempty"`
	Contacts          []ContactResponse    `json:"contacts"`
	Addresses         []AddressResponse    `json:"addresses"`
	TaxProfile        *TaxProfileResponse  `json:"tax_profile,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	Version           int                  `json:"version"`
}

// ContactResponse represents a contact person in API responses
type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsPrimary bool      `json:"is_primary"`
	Notes     string    `json:"notes,omitempty"`
}

// AddressResponse represents an address in API responses
type AddressResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Line1       string    `json:"line1"`
	Line2       string    `json:"line2,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	PostalCode  string    `json:"postal_code,omitempty"`
	Country     string    `json:"country,omitempty"`
	FullAddress string    `json:"full_address"`
	IsDefault   bool      `json:"is_default"`
}

// TaxProfileResponse represents a tax profile in API responses
type TaxProfileResponse struct {
	ID               uuid.UUID `json:"id"`
	Regime           string    `json:"regime"`
	Responsibilities []string  `json:"responsibilities,omitempty"`
	ActivityCodes    []string  `json:"activity_codes,omitempty"`
	TaxAddress       string    `json:"tax_address,omitempty"`
	RetentionAgent   bool      `json:"retention_agent"`
	SelfRetainer     bool      `json:"self_retainer"`
}

// CustomerListResponse represents a list item for customers
type CustomerListResponse struct {
	ID                uuid.UUID  `json:"id"`
	Type              string     `json:"type"`
	DocumentFormatted string     `json:"document"`
	FullName          string     `json:"full_name"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Status            string     `json:"status"`
	Segment           string     `json:"segment,omitempty"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// CustomerListFilter represents filter options for customer list
type CustomerListFilter struct {
	Search         string `form:"search"`
	Status         string `form:"status" binding:"omitempty,oneof=prospect active inactive suspended blacklisted"`
	Type           string `form:"type" binding:"omitempty,oneof=natural juridical"`
	Segment        string `form:"segment"`
	CreatedFrom    string `form:"created_from" binding:"omitempty,datetime=2006-01-02"`
	CreatedTo      string `form:"created_to" binding:"omitempty,datetime=2006-01-02"`
	IncludeDeleted bool   `form:"include_deleted"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string `form:"order_by"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MergeResponse represents the outcome of a merge in API responses
type MergeResponse struct {
	Destination          CustomerResponse `json:"destination"`
	SourceID             uuid.UUID        `json:"source_id"`
	FieldsFilled         []string         `json:"fields_filled"`
	ContactsTransferred  int              `json:"contacts_transferred"`
	AddressesTransferred int              `json:"addresses_transferred"`
	TaxProfileAdopted    bool             `json:"tax_profile_adopted"`
	NotesMerged          bool             `json:"notes_merged"`
	AlreadyProcessed     bool             `json:"already_processed"`
}

// DuplicateMatchResponse represents one duplicate candidate in API responses
type DuplicateMatchResponse struct {
	Customer CustomerListResponse `json:"customer"`
	Score    float64              `json:"score"`
	IsLikely bool                 `json:"is_likely"`
	Reasons  []string             `json:"reasons"`
}

// DuplicateReportResponse represents a duplicate report in API responses
type DuplicateReportResponse struct {
	CustomerID uuid.UUID                `json:"customer_id"`
	Matches    []DuplicateMatchResponse `json:"matches"`
}

// ToCustomerResponse converts a domain Customer to CustomerResponse
func ToCustomerResponse(c *customer.Customer) CustomerResponse {
	resp := CustomerResponse{
		ID:                c.ID,
		Type:              string(c.Type),
		DocumentType:      string(c.Document.Type()),
		DocumentNumber:    c.Document.Number(),
		DocumentFormatted: c.Document.Formatted(),
		BusinessName:      c.BusinessName,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		FullName:          c.FullName(),
		Status:            string(c.Status),
		Segment:           c.Segment,
		Notes:             c.Notes,
		BlacklistReason:   c.BlacklistReason,
		MergedIntoID:      c.MergedIntoID,
		DeletedAt:         c.DeletedAt,
		Contacts:          make([]ContactResponse, 0, len(c.Contacts)),
		Addresses:         make([]AddressResponse, 0, len(c.Addresses)),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		Version:           c.GetVersion(),
	}
	if c.TenantID != uuid.Nil {
		tenantID := c.TenantID
		resp.TenantID = &tenantID
	}
	if c.HasEmail() {
		resp.Email = c.Email.String()
	}
	if c.HasPhone() {
		resp.Phone = c.Phone.String()
	}
	for _, contact := range c.Contacts {
		resp.Contacts = append(resp.Contacts, toContactResponse(contact))
	}
	for _, address := range c.Addresses {
		resp.Addresses = append(resp.Addresses, toAddressResponse(address))
	}
	if c.TaxProfile != nil {
		profile := toTaxProfileResponse(*c.TaxProfile)
		resp.TaxProfile = &profile
	}
	return resp
}

func toContactResponse(c customer.Contact) ContactResponse {
	resp := ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Role:      c.Role,
		IsPrimary: c.IsPrimary,
		Notes:     c.Notes,
	}
	if c.HasEmail() {
		resp.Email = c.Email.String()
	}
	if c.HasPhone() {
		resp.Phone = c.Phone.String()
	}
	return resp
}

func toAddressResponse(a customer.Address) AddressResponse {
	return AddressResponse{
		ID:          a.ID,
		Type:        string(a.Type),
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		Country:     a.Country.String(),
		FullAddress: a.FullAddress(),
		IsDefault:   a.IsDefault,
	}
}

func toTaxProfileResponse(p customer.TaxProfile) TaxProfileResponse {
	return TaxProfileResponse{
		ID:               p.ID,
		Regime:           string(p.Regime),
		Responsibilities: p.Responsibilities,
		ActivityCodes:    p.ActivityCodes,
		TaxAddress:       p.TaxAddress,
		RetentionAgent:   p.RetentionAgent,
		SelfRetainer:     p.SelfRetainer,
	}
}

// ToCustomerListResponse converts a domain Customer to a list item
func ToCustomerListResponse(c *customer.Customer) CustomerListResponse {
	resp := CustomerListResponse{
		ID:                c.ID,
		Type:              string(c.Type),
		DocumentFormatted: c.Document.Formatted(),
		FullName:          c.FullName(),
		Status:            string(c.Status),
		Segment:           c.Segment,
		DeletedAt:         c.DeletedAt,
		CreatedAt:         c.CreatedAt,
	}
	if c.HasEmail() {
		resp.Email = c.Email.String()
	}
	if c.HasPhone() {
		resp.Phone = c.Phone.String()
	}
	return resp
}

// ToCustomerListResponses converts a slice of customers to list items
func ToCustomerListResponses(customers []customer.Customer) []CustomerListResponse {
	responses := make([]CustomerListResponse, 0, len(customers))
	for i := range customers {
		responses = append(responses, ToCustomerListResponse(&customers[i]))
	}
	return responses
}

// ToMergeResponse converts a domain MergeResult to MergeResponse
func ToMergeResponse(result *customer.MergeResult) MergeResponse {
	return MergeResponse{
		Destination:          ToCustomerResponse(result.Destination),
		SourceID:             result.SourceID,
		FieldsFilled:         result.FieldsFilled,
		ContactsTransferred:  result.ContactsTransferred,
		AddressesTransferred: result.AddressesTransferred,
		TaxProfileAdopted:    result.TaxProfileAdopted,
		NotesMerged:          result.NotesMerged,
		AlreadyProcessed:     result.AlreadyProcessed,
	}
}

// ToDuplicateReportResponse converts a domain DuplicateReport
func ToDuplicateReportResponse(report *customer.DuplicateReport) DuplicateReportResponse {
	resp := DuplicateReportResponse{
		CustomerID: report.CustomerID,
		Matches:    make([]DuplicateMatchResponse, 0, len(report.Matches)),
	}
	for _, match := range report.Matches {
		resp.Matches = append(resp.Matches, DuplicateMatchResponse{
			Customer: ToCustomerListResponse(match.Customer),
			Score:    match.Score,
			IsLikely: match.IsLikely,
			Reasons:  match.Reasons,
		})
	}
	return resp
}

// parseEmail converts an optional request email into a value object,
// reporting validation failures as domain errors.
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

// parsePhone converts an optional request phone into a value object
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

// parseDocument converts request document fields into a value object
func parseDocument(docType, number string) (valueobject.DocumentID, error) {
	parsedType, err := valueobject.ParseDocumentType(docType)
	if err != nil {
		return valueobject.DocumentID{}, shared.NewDomainError("INVALID_DOCUMENT", err.Error())
	}
	document, err := valueobject.NewDocumentID(parsedType, number)
	if err != nil {
		return valueobject.DocumentID{}, shared.NewDomainError("INVALID_DOCUMENT", err.Error())
	}
	return document, nil
}
