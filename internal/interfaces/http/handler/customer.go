package handler

import (
	appcustomer "github.com/crm/backend/internal/application/customer"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustomerHandler handles customer-related API endpoints
type CustomerHandler struct {
	BaseHandler
	customerService *appcustomer.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService *appcustomer.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// PreviewMergeRequest represents a request to preview a merge
// @Description Request body for previewing a customer merge
type PreviewMergeRequest struct {
	SourceID      uuid.UUID `json:"source_id" binding:"required"`
	DestinationID uuid.UUID `json:"destination_id" binding:"required"`
}

// Create godoc
// @ID           createCustomer
// @Summary      Create a new customer
// @Description  Create a new customer with optional contacts, addresses and tax profile
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body appcustomer.CreateCustomerRequest true "Customer creation request"
// @Success      201 {object} APIResponse[appcustomer.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req appcustomer.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	// Get user ID from JWT context (optional, recorded as creator)
	userID, _ := getUserID(c)
	if userID != uuid.Nil {
		req.CreatedBy = &userID
	}

	customer, err := h.customerService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, customer)
}

// GetByID godoc
// @ID           getCustomerById
// @Summary      Get customer by ID
// @Description  Retrieve a customer by its ID
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[appcustomer.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [get]
func (h *CustomerHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	customerID, ok := h.pathID(c, "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.GetByID(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// GetByDocument godoc
// @ID           getCustomerByDocument
// @Summary      Get customer by document
// @Description  Retrieve a customer by its document type and number
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        type path string true "Document type" Enums(CC, NIT, CE, PA, TI, RC)
// @Param        number path string true "Document number"
// @Success      200 {object} APIResponse[appcustomer.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/document/{type}/{number} [get]
func (h *CustomerHandler) GetByDocument(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	docType := c.Param("type")
	number := c.Param("number")
	if docType == "" || number == "" {
		h.BadRequest(c, "Document type and number are required")
		return
	}

	customer, err := h.customerService.GetByDocument(c.Request.Context(), tenantID, docType, number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// List godoc
// @ID           listCustomers
// @Summary      List customers
// @Description  Retrieve a paginated list of customers with optional filtering
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        search query string false "Search term (name, document, email, phone)"
// @Param        status query string false "Customer status" Enums(prospect, active, inactive, suspended, blacklisted)
// @Param        type query string false "Customer type" Enums(natural, juridical)
// @Param        segment query string false "Segment"
// @Param        created_from query string false "Created from (YYYY-MM-DD)"
// @Param        created_to query string false "Created to (YYYY-MM-DD)"
// @Param        include_deleted query bool false "Include soft-deleted customers"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} APIResponse[[]appcustomer.CustomerListResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var filter appcustomer.CustomerListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	result, err := h.customerService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Search godoc
// @ID           searchCustomers
// @Summary      Search customers
// @Description  Search customers by name, document, email or phone
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        q query string true "Search term"
// @Param        limit query int false "Maximum results" default(10) maximum(50)
// @Success      200 {object} APIResponse[[]appcustomer.CustomerListResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/search [get]
func (h *CustomerHandler) Search(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	query := c.Query("q")
	if query == "" {
		h.BadRequest(c, "Search term is required")
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw, 50)
		if err != nil {
			h.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	customers, err := h.customerService.Search(c.Request.Context(), tenantID, query, limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customers)
}

// Update godoc
// @ID           updateCustomer
// @Summary      Update a customer
// @Description  Update an existing customer's details
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body appcustomer.UpdateCustomerRequest true "Customer update request"
// @Success      200 {object} APIResponse[appcustomer.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	customerID, ok := h.pathID(c, "customer")
	if !ok {
		return
	}

	var req appcustomer.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	customer, err := h.customerService.Update(c.Request.Context(), tenantID, customerID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// ChangeStatus godoc
// @ID           changeCustomerStatus
// @Summary      Change customer status
// @Description  Transition a customer to a new lifecycle status
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body appcustomer.ChangeStatusRequest true "Status change request"
// @Success      200 {object} APIResponse[appcustomer.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/status [put]
func (h *CustomerHandler) ChangeStatus(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	customerID, ok := h.pathID(c, "customer")
	if !ok {
		return
	}

	var req appcustomer.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	customer, err := h.customerService.ChangeStatus(c.Request.Context(), tenantID, customerID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// Blacklist godoc
// @ID           blacklistCustomer
// @Summary      Blacklist a customer
// @Description  Place a customer on the blacklist with a reason
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body appcustomer.BlacklistRequest true "Blacklist request"
// @Success      200 {object} APIResponse[appcustomer.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/blacklist [post]
func (h *CustomerHandler) Blacklist(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	customerID, ok := h.pathID(c, "customer")
	if !ok {
		return
	}

	var req appcustomer.BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	customer, err := h.customerService.Blacklist(c.Request.Context(), tenantID, customerID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// Unblacklist godoc
// @ID           unblacklistCustomer
// @Summary      Remove a customer from the blacklist
// @Description  Clear the blacklist flag and return the customer to inactive status
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[appcustomer.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/blacklist [delete]
func (h *CustomerHandler) Unblacklist(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	customerID, ok := h.pathID(c, "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.Unblacklist(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// Delete godoc
// @ID           deleteCustomer
// @Summary      Delete a customer
// @Description  Soft-delete a customer with an optional reason
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Param        reason query string false "Deletion reason"
// @Success      204 "No Content"
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	customerID, ok := h.pathID(c, "customer")
	if !ok {
		return
	}

	if err := h.customerService.Delete(c.Request.Context(), tenantID, customerID, c.Query("reason")); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Restore godoc
// @ID           restoreCustomer
// @Summary      Restore a deleted customer
// @Description  Restore a soft-deleted customer
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[appcustomer.CustomerResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/restore [post]
func (h *CustomerHandler) Restore(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	customerID, ok := h.pathID(c, "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.Restore(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// Merge godoc
// @ID           mergeCustomers
// @Summary      Merge two customers
// @Description  Merge a source customer into a destination customer. Safe to retry with the same Idempotency-Key.
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        Idempotency-Key header string false "Idempotency key for safe retries"
// @Param        request body appcustomer.MergeCustomersRequest true "Merge request"
// @Success      200 {object} APIResponse[appcustomer.MergeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/merge [post]
func (h *CustomerHandler) Merge(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req appcustomer.MergeCustomersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	// Header takes effect when the body carries no key
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	userID, _ := getUserID(c)
	if userID != uuid.Nil {
		req.ActorID = &userID
	}

	result, err := h.customerService.Merge(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// PreviewMerge godoc
// @ID           previewCustomerMerge
// @Summary      Preview a customer merge
// @Description  Compute the field-level outcome of a merge without applying it
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body PreviewMergeRequest true "Merge preview request"
// @Success      200 {object} APIResponse[customer.MergePreview]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/merge/preview [post]
func (h *CustomerHandler) PreviewMerge(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req PreviewMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	preview, err := h.customerService.PreviewMerge(c.Request.Context(), tenantID, req.SourceID, req.DestinationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, preview)
}

// FindDuplicates godoc
// @ID           findCustomerDuplicates
// @Summary      Find duplicate candidates
// @Description  Score other customers in the tenant against this one and report likely duplicates
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[appcustomer.DuplicateReportResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/duplicates [get]
func (h *CustomerHandler) FindDuplicates(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	customerID, ok := h.pathID(c, "customer")
	if !ok {
		return
	}

	report, err := h.customerService.FindDuplicates(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// Metrics godoc
// @ID           getCustomerMetrics
// @Summary      Customer metrics
// @Description  Aggregate customer counts by status, type and merge activity for the tenant
// @Tags         customers
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Success      200 {object} APIResponse[customer.CustomerMetrics]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /customers/metrics [get]
func (h *CustomerHandler) Metrics(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	metrics, err := h.customerService.Metrics(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, metrics)
}
