package customer

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// CustomerCache invalidates cached customer projections after writes.
// Implementations must tolerate eviction of keys that were never cached.
type CustomerCache interface {
	Evict(ctx context.Context, id uuid.UUID)
}

// NopCustomerCache is a CustomerCache that does nothing
type NopCustomerCache struct{}

func (NopCustomerCache) Evict(ctx context.Context, id uuid.UUID) {}

// BusinessRecorder counts customer lifecycle activity for the metrics
// pipeline. *telemetry.BusinessMetrics satisfies it.
type BusinessRecorder interface {
	RecordCustomerCreated(ctx context.Context, tenantID uuid.UUID, customerType string)
	RecordCustomerMerged(ctx context.Context, tenantID uuid.UUID, outcome telemetry.MergeOutcome)
	RecordDuplicateCheck(ctx context.Context, tenantID uuid.UUID, matches int64)
}

type nopBusinessRecorder struct{}

func (nopBusinessRecorder) RecordCustomerCreated(context.Context, uuid.UUID, string) {}
func (nopBusinessRecorder) RecordCustomerMerged(context.Context, uuid.UUID, telemetry.MergeOutcome) {
}
func (nopBusinessRecorder) RecordDuplicateCheck(context.Context, uuid.UUID, int64) {}

// CustomerService orchestrates customer use cases on top of the domain
// services and the repository.
type CustomerService struct {
	customers customer.CustomerRepository
	dedup     *customer.DedupService
	merges    *customer.MergeService
	cache     CustomerCache
	metrics   BusinessRecorder
}

// NewCustomerService creates a new customer service
func NewCustomerService(
	customers customer.CustomerRepository,
	dedup *customer.DedupService,
	merges *customer.MergeService,
	cache CustomerCache,
) *CustomerService {
	if cache == nil {
		cache = NopCustomerCache{}
	}
	return &CustomerService{
		customers: customers,
		dedup:     dedup,
		merges:    merges,
		cache:     cache,
		metrics:   nopBusinessRecorder{},
	}
}

// UseMetrics attaches a business metrics recorder. Telemetry is wired up
// after the services, so this is a setter rather than a constructor argument.
func (s *CustomerService) UseMetrics(recorder BusinessRecorder) {
	if recorder != nil {
		s.metrics = recorder
	}
}

// Create creates a new customer
func (s *CustomerService) Create(ctx context.Context, tenantID uuid.UUID, req CreateCustomerRequest) (*CustomerResponse, error) {
	document, err := parseDocument(req.DocumentType, req.DocumentNumber)
	if err != nil {
		return nil, err
	}

	exists, err := s.customers.ExistsByDocument(ctx, tenantID, document)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this document already exists")
	}

	email, err := parseEmail(req.Email)
	if err != nil {
		return nil, err
	}
	phone, err := parsePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	c, err := customer.NewCustomer(
		tenantID,
		customer.CustomerType(req.Type),
		document,
		req.BusinessName,
		req.FirstName,
		req.LastName,
		email,
		phone,
	)
	if err != nil {
		return nil, err
	}
	c.Segment = req.Segment
	c.Notes = req.Notes
	if req.CreatedBy != nil {
		c.SetCreatedBy(*req.CreatedBy)
	}

	for _, contactReq := range req.Contacts {
		contact, err := s.buildContact(contactReq)
		if err != nil {
			return nil, err
		}
		if err := c.AddContact(contact); err != nil {
			return nil, err
		}
	}
	for _, addressReq := range req.Addresses {
		address, err := s.buildAddress(addressReq)
		if err != nil {
			return nil, err
		}
		if err := c.AddAddress(address); err != nil {
			return nil, err
		}
	}
	if req.TaxProfile != nil {
		profile, err := s.buildTaxProfile(*req.TaxProfile)
		if err != nil {
			return nil, err
		}
		if err := c.SetTaxProfile(profile); err != nil {
			return nil, err
		}
	}

	if err := s.customers.Save(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.RecordCustomerCreated(ctx, tenantID, string(c.Type))

	resp := ToCustomerResponse(c)
	return &resp, nil
}

// GetByID returns a customer by ID
func (s *CustomerService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// GetByDocument returns a customer by its document
func (s *CustomerService) GetByDocument(ctx context.Context, tenantID uuid.UUID, docType, number string) (*CustomerResponse, error) {
	document, err := parseDocument(docType, number)
	if err != nil {
		return nil, err
	}
	c, err := s.customers.FindByDocument(ctx, tenantID, document)
	if err != nil {
		return nil, err
	}
	resp := ToCustomerResponse(c)
	return &resp, nil
}

// List returns customers matching the filter, paginated
func (s *CustomerService) List(ctx context.Context, tenantID uuid.UUID, filter CustomerListFilter) (*shared.Paginated[CustomerListResponse], error) {
	domainFilter := buildListFilter(filter)

	customers, err := s.customers.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.customers.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToCustomerListResponses(customers), total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// Search finds customers matching a free-text query
func (s *CustomerService) Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]CustomerListResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	customers, err := s.customers.Search(ctx, tenantID, query, limit)
	if err != nil {
		return nil, err
	}
	return ToCustomerListResponses(customers), nil
}

// Update updates a customer's profile fields. Absent fields keep their
// current value.
func (s *CustomerService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	businessName := c.BusinessName
	if req.BusinessName != nil {
		businessName = *req.BusinessName
	}
	firstName := c.FirstName
	if req.FirstName != nil {
		firstName = *req.FirstName
	}
	lastName := c.LastName
	if req.LastName != nil {
		lastName = *req.LastName
	}
	segment := c.Segment
	if req.Segment != nil {
		segment = *req.Segment
	}
	notes := c.Notes
	if req.Notes != nil {
		notes = *req.Notes
	}

	email := c.Email
	if req.Email != nil {
		email, err = parseEmail(*req.Email)
		if err != nil {
			return nil, err
		}
	}
	phone := c.Phone
	if req.Phone != nil {
		phone, err = parsePhone(*req.Phone)
		if err != nil {
			return nil, err
		}
	}

	if err := c.Update(businessName, firstName, lastName, segment, notes, email, phone); err != nil {
		return nil, err
	}
	if err := s.customers.Save(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Evict(ctx, c.ID)

	resp := ToCustomerResponse(c)
	return &resp, nil
}

// ChangeStatus moves a customer to a new status
func (s *CustomerService) ChangeStatus(ctx context.Context, tenantID, id uuid.UUID, req ChangeStatusRequest) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	newStatus := customer.CustomerStatus(req.Status)
	if newStatus == customer.CustomerStatusBlacklisted {
		err = c.Blacklist(req.Reason)
	} else {
		err = c.ChangeStatus(newStatus)
	}
	if err != nil {
		return nil, err
	}

	if err := s.customers.Save(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Evict(ctx, c.ID)

	resp := ToCustomerResponse(c)
	return &resp, nil
}

// Blacklist puts a customer on the blacklist
func (s *CustomerService) Blacklist(ctx context.Context, tenantID, id uuid.UUID, reason string) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := c.Blacklist(reason); err != nil {
		return nil, err
	}
	if err := s.customers.Save(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Evict(ctx, c.ID)

	resp := ToCustomerResponse(c)
	return &resp, nil
}

// Unblacklist removes a customer from the blacklist
func (s *CustomerService) Unblacklist(ctx context.Context, tenantID, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := c.Unblacklist(); err != nil {
		return nil, err
	}
	if err := s.customers.Save(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Evict(ctx, c.ID)

	resp := ToCustomerResponse(c)
	return &resp, nil
}

// Delete soft deletes a customer
func (s *CustomerService) Delete(ctx context.Context, tenantID, id uuid.UUID, reason string) error {
	c, err := s.customers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := c.SoftDelete(reason); err != nil {
		return err
	}
	if err := s.customers.Save(ctx, c); err != nil {
		return err
	}
	s.cache.Evict(ctx, c.ID)
	return nil
}

// Restore brings a soft-deleted customer back
func (s *CustomerService) Restore(ctx context.Context, tenantID, id uuid.UUID) (*CustomerResponse, error) {
	c, err := s.customers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	c.Restore()
	if err := s.customers.Save(ctx, c); err != nil {
		return nil, err
	}
	s.cache.Evict(ctx, c.ID)

	resp := ToCustomerResponse(c)
	return &resp, nil
}

// Merge merges the source customer into the destination. Both customers
// must belong to the caller's tenant.
func (s *CustomerService) Merge(ctx context.Context, tenantID uuid.UUID, req MergeCustomersRequest) (*MergeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "merge",
		telemetry.WithAttribute(telemetry.SpanAttrMergeSourceID, req.SourceID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrMergeDestinationID, req.DestinationID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrIdempotencyKey, req.IdempotencyKey),
	)
	defer span.End()

	if _, err := s.customers.FindByIDForTenant(ctx, tenantID, req.SourceID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := s.customers.FindByIDForTenant(ctx, tenantID, req.DestinationID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	mergeReq := customer.MergeRequest{
		SourceID:       req.SourceID,
		DestinationID:  req.DestinationID,
		IdempotencyKey: req.IdempotencyKey,
		Reason:         req.Reason,
	}
	if req.ActorID != nil {
		mergeReq.ActorID = *req.ActorID
	}

	result, err := s.merges.Merge(ctx, mergeReq)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordCustomerMerged(ctx, tenantID, telemetry.MergeOutcomeRejected)
		return nil, err
	}
	outcome := telemetry.MergeOutcomeApplied
	if result.AlreadyProcessed {
		outcome = telemetry.MergeOutcomeReplayed
	}
	s.metrics.RecordCustomerMerged(ctx, tenantID, outcome)
	telemetry.AddEvent(span, "customers_merged",
		telemetry.SpanAttrCustomerID, result.Destination.ID.String(),
	)
	s.cache.Evict(ctx, req.SourceID)
	s.cache.Evict(ctx, req.DestinationID)

	resp := ToMergeResponse(result)
	return &resp, nil
}

// PreviewMerge reports what a merge would do without executing it
func (s *CustomerService) PreviewMerge(ctx context.Context, tenantID, sourceID, destinationID uuid.UUID) (*customer.MergePreview, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "preview_merge",
		telemetry.WithAttribute(telemetry.SpanAttrMergeSourceID, sourceID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrMergeDestinationID, destinationID.String()),
	)
	defer span.End()

	if _, err := s.customers.FindByIDForTenant(ctx, tenantID, sourceID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := s.customers.FindByIDForTenant(ctx, tenantID, destinationID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	preview, err := s.merges.Preview(ctx, sourceID, destinationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return preview, nil
}

// FindDuplicates generates a duplicate report for a customer
func (s *CustomerService) FindDuplicates(ctx context.Context, tenantID, id uuid.UUID) (*DuplicateReportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "find_duplicates",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, id.String()),
	)
	defer span.End()

	c, err := s.customers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	// The scan fans out over document, email, phone and name lookups, so
	// label it for the profiler.
	var report *customer.DuplicateReport
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("find_duplicates", nil),
		func(ctx context.Context) {
			report, err = s.dedup.GenerateDuplicateReport(ctx, c)
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrMatchCount, len(report.Matches))
	s.metrics.RecordDuplicateCheck(ctx, tenantID, int64(len(report.Matches)))
	resp := ToDuplicateReportResponse(report)
	return &resp, nil
}

// Metrics aggregates customer counts for a tenant
func (s *CustomerService) Metrics(ctx context.Context, tenantID uuid.UUID) (*customer.CustomerMetrics, error) {
	return s.customers.Metrics(ctx, tenantID)
}

func (s *CustomerService) buildContact(req ContactRequest) (customer.Contact, error) {
	email, err := parseEmail(req.Email)
	if err != nil {
		return customer.Contact{}, err
	}
	phone, err := parsePhone(req.Phone)
	if err != nil {
		return customer.Contact{}, err
	}
	contact, err := customer.NewContact(req.Name, req.Role, email, phone)
	if err != nil {
		return customer.Contact{}, err
	}
	contact.IsPrimary = req.IsPrimary
	contact.Notes = req.Notes
	return contact, nil
}

func (s *CustomerService) buildAddress(req AddressRequest) (customer.Address, error) {
	country := valueobject.MustNewCountryCode(valueobject.DefaultCountryCode)
	if req.Country != "" {
		var err error
		country, err = valueobject.NewCountryCode(req.Country)
		if err != nil {
			return customer.Address{}, shared.NewDomainError("INVALID_COUNTRY", err.Error())
		}
	}
	address, err := customer.NewAddress(
		customer.AddressType(req.Type),
		req.Line1, req.Line2, req.City, req.State, req.PostalCode,
		country,
	)
	if err != nil {
		return customer.Address{}, err
	}
	address.IsDefault = req.IsDefault
	return address, nil
}

func (s *CustomerService) buildTaxProfile(req TaxProfileRequest) (customer.TaxProfile, error) {
	profile, err := customer.NewTaxProfile(customer.TaxRegime(req.Regime), req.TaxAddress)
	if err != nil {
		return customer.TaxProfile{}, err
	}
	profile.Responsibilities = req.Responsibilities
	profile.ActivityCodes = req.ActivityCodes
	profile.RetentionAgent = req.RetentionAgent
	profile.SelfRetainer = req.SelfRetainer
	return profile, nil
}

func buildListFilter(filter CustomerListFilter) shared.Filter {
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
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}
	if filter.Segment != "" {
		domainFilter.Filters["segment"] = filter.Segment
	}
	if filter.CreatedFrom != "" {
		if from, err := time.Parse("2006-01-02", filter.CreatedFrom); err == nil {
			domainFilter.Filters["created_from"] = from
		}
	}
	if filter.CreatedTo != "" {
		if to, err := time.Parse("2006-01-02", filter.CreatedTo); err == nil {
			domainFilter.Filters["created_to"] = to.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if filter.IncludeDeleted {
		domainFilter.Filters["include_deleted"] = true
	}
	return domainFilter
}
