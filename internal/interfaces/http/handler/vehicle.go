package handler

import (
	appvehicle "github.com/crm/backend/internal/application/vehicle"
	"github.com/gin-gonic/gin"
)

// VehicleHandler handles vehicle-related API endpoints
type VehicleHandler struct {
	BaseHandler
	vehicleService *appvehicle.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler
func NewVehicleHandler(vehicleService *appvehicle.VehicleService) *VehicleHandler {
	return &VehicleHandler{
		vehicleService: vehicleService,
	}
}

// Create godoc
// @ID           createVehicle
// @Summary      Register a new vehicle
// @Description  Register a vehicle by its plate
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body appvehicle.CreateVehicleRequest true "Vehicle registration request"
// @Success      201 {object} APIResponse[appvehicle.VehicleResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vehicles [post]
func (h *VehicleHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req appvehicle.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	vehicle, err := h.vehicleService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, vehicle)
}

// GetByID godoc
// @ID           getVehicleById
// @Summary      Get vehicle by ID
// @Description  Retrieve a vehicle by its ID
// @Tags         vehicles
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Vehicle ID" format(uuid)
// @Success      200 {object} APIResponse[appvehicle.VehicleResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vehicles/{id} [get]
func (h *VehicleHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	vehicleID, ok := h.pathID(c, "vehicle")
	if !ok {
		return
	}

	vehicle, err := h.vehicleService.GetByID(c.Request.Context(), tenantID, vehicleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vehicle)
}

// List godoc
// @ID           listVehicles
// @Summary      List vehicles
// @Description  Retrieve a paginated list of vehicles with optional filtering
// @Tags         vehicles
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        search query string false "Search term (plate, driver name)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} APIResponse[[]appvehicle.VehicleResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vehicles [get]
func (h *VehicleHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var filter appvehicle.VehicleListFilter
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

	result, err := h.vehicleService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Update godoc
// @ID           updateVehicle
// @Summary      Update a vehicle
// @Description  Update an existing vehicle's details
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Vehicle ID" format(uuid)
// @Param        request body appvehicle.UpdateVehicleRequest true "Vehicle update request"
// @Success      200 {object} APIResponse[appvehicle.VehicleResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vehicles/{id} [put]
func (h *VehicleHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	vehicleID, ok := h.pathID(c, "vehicle")
	if !ok {
		return
	}

	var req appvehicle.UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	vehicle, err := h.vehicleService.Update(c.Request.Context(), tenantID, vehicleID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vehicle)
}

// ScheduleMaintenance godoc
// @ID           scheduleVehicleMaintenance
// @Summary      Schedule vehicle maintenance
// @Description  Set the next maintenance date for a vehicle
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Vehicle ID" format(uuid)
// @Param        request body appvehicle.ScheduleMaintenanceRequest true "Maintenance scheduling request"
// @Success      200 {object} APIResponse[appvehicle.VehicleResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vehicles/{id}/maintenance [post]
func (h *VehicleHandler) ScheduleMaintenance(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	vehicleID, ok := h.pathID(c, "vehicle")
	if !ok {
		return
	}

	var req appvehicle.ScheduleMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	vehicle, err := h.vehicleService.ScheduleMaintenance(c.Request.Context(), tenantID, vehicleID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, vehicle)
}

// Delete godoc
// @ID           deleteVehicle
// @Summary      Delete a vehicle
// @Description  Soft-delete a vehicle
// @Tags         vehicles
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Vehicle ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /vehicles/{id} [delete]
func (h *VehicleHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	vehicleID, ok := h.pathID(c, "vehicle")
	if !ok {
		return
	}

	if err := h.vehicleService.Delete(c.Request.Context(), tenantID, vehicleID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
