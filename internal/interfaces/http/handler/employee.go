package handler

import (
	appemployee "github.com/crm/backend/internal/application/employee"
	"github.com/gin-gonic/gin"
)

// EmployeeHandler handles employee-related API endpoints
type EmployeeHandler struct {
	BaseHandler
	employeeService *appemployee.EmployeeService
}

// NewEmployeeHandler creates a new EmployeeHandler
func NewEmployeeHandler(employeeService *appemployee.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{
		employeeService: employeeService,
	}
}

// Create godoc
// @ID           createEmployee
// @Summary      Create a new employee
// @Description  Register a new employee
// @Tags         employees
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body appemployee.CreateEmployeeRequest true "Employee creation request"
// @Success      201 {object} APIResponse[appemployee.EmployeeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req appemployee.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	employee, err := h.employeeService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, employee)
}

// GetByID godoc
// @ID           getEmployeeById
// @Summary      Get employee by ID
// @Description  Retrieve an employee by its ID
// @Tags         employees
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Employee ID" format(uuid)
// @Success      200 {object} APIResponse[appemployee.EmployeeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /employees/{id} [get]
func (h *EmployeeHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	employeeID, ok := h.pathID(c, "employee")
	if !ok {
		return
	}

	employee, err := h.employeeService.GetByID(c.Request.Context(), tenantID, employeeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, employee)
}

// List godoc
// @ID           listEmployees
// @Summary      List employees
// @Description  Retrieve a paginated list of employees with optional filtering
// @Tags         employees
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        search query string false "Search term (name, document, email)"
// @Param        status query string false "Employee status" Enums(active, inactive)
// @Param        position query string false "Position"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} APIResponse[[]appemployee.EmployeeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var filter appemployee.EmployeeListFilter
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

	result, err := h.employeeService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Update godoc
// @ID           updateEmployee
// @Summary      Update an employee
// @Description  Update an existing employee's details
// @Tags         employees
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Employee ID" format(uuid)
// @Param        request body appemployee.UpdateEmployeeRequest true "Employee update request"
// @Success      200 {object} APIResponse[appemployee.EmployeeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /employees/{id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	employeeID, ok := h.pathID(c, "employee")
	if !ok {
		return
	}

	var req appemployee.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	employee, err := h.employeeService.Update(c.Request.Context(), tenantID, employeeID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, employee)
}

// Activate godoc
// @ID           activateEmployee
// @Summary      Activate an employee
// @Description  Set an employee's status to active
// @Tags         employees
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Employee ID" format(uuid)
// @Success      200 {object} APIResponse[appemployee.EmployeeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /employees/{id}/activate [post]
func (h *EmployeeHandler) Activate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	employeeID, ok := h.pathID(c, "employee")
	if !ok {
		return
	}

	employee, err := h.employeeService.Activate(c.Request.Context(), tenantID, employeeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, employee)
}

// Deactivate godoc
// @ID           deactivateEmployee
// @Summary      Deactivate an employee
// @Description  Set an employee's status to inactive
// @Tags         employees
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Employee ID" format(uuid)
// @Success      200 {object} APIResponse[appemployee.EmployeeResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /employees/{id}/deactivate [post]
func (h *EmployeeHandler) Deactivate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	employeeID, ok := h.pathID(c, "employee")
	if !ok {
		return
	}

	employee, err := h.employeeService.Deactivate(c.Request.Context(), tenantID, employeeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, employee)
}

// Delete godoc
// @ID           deleteEmployee
// @Summary      Delete an employee
// @Description  Soft-delete an employee
// @Tags         employees
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Employee ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /employees/{id} [delete]
func (h *EmployeeHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	employeeID, ok := h.pathID(c, "employee")
	if !ok {
		return
	}

	if err := h.employeeService.Delete(c.Request.Context(), tenantID, employeeID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
