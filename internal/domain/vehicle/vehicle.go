package vehicle

import (
	"regexp"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var platePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,9}$`)

// Vehicle is the aggregate root for fleet vehicles
type Vehicle struct {
	shared.TenantAggregateRoot
	Plate         string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_vehicle_tenant_plate,priority:2"`
	Description   string     `gorm:"type:varchar(200)"`
	DriverName    string     `gorm:"type:varchar(200)"`
	MaintenanceAt *time.Time `gorm:""`
	Notes         string     `gorm:"type:text"`
	DeletedAt     *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (Vehicle) TableName() string {
	return "vehicles"
}

// NewVehicle creates a vehicle. The plate is uppercased and must be
// letters, digits and dashes.
func NewVehicle(tenantID uuid.UUID, plate, description, driverName string) (*Vehicle, error) {
	normalized, err := normalizePlate(plate)
	if err != nil {
		return nil, err
	}

	return &Vehicle{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Plate:               normalized,
		Description:         strings.TrimSpace(description),
		DriverName:          strings.TrimSpace(driverName),
	}, nil
}

func normalizePlate(plate string) (string, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(plate), " ", ""))
	if normalized == "" {
		return "", shared.NewDomainError("INVALID_PLATE", "Plate is required")
	}
	if !platePattern.MatchString(normalized) {
		return "", shared.NewDomainError("INVALID_PLATE", "Plate must be 3 to 10 letters, digits or dashes")
	}
	return normalized, nil
}

// Update changes the vehicle's details. The plate is immutable.
func (v *Vehicle) Update(description, driverName, notes string) {
	v.Description = strings.TrimSpace(description)
	v.DriverName = strings.TrimSpace(driverName)
	v.Notes = notes
	v.Touch()
	v.IncrementVersion()
}

// AssignDriver sets the current driver
func (v *Vehicle) AssignDriver(driverName string) {
	v.DriverName = strings.TrimSpace(driverName)
	v.Touch()
	v.IncrementVersion()
}

// ScheduleMaintenance records the next maintenance date
func (v *Vehicle) ScheduleMaintenance(at time.Time) error {
	if at.Before(time.Now().Truncate(24 * time.Hour)) {
		return shared.NewDomainError("INVALID_MAINTENANCE_DATE", "Maintenance cannot be scheduled in the past")
	}
	v.MaintenanceAt = &at
	v.Touch()
	v.IncrementVersion()
	return nil
}

// NeedsMaintenance reports whether the scheduled maintenance date has passed
func (v *Vehicle) NeedsMaintenance(now time.Time) bool {
	return v.MaintenanceAt != nil && !now.Before(*v.MaintenanceAt)
}

// IsDeleted returns true when the vehicle has been soft deleted
func (v *Vehicle) IsDeleted() bool {
	return v.DeletedAt != nil
}

// SoftDelete marks the vehicle as deleted
func (v *Vehicle) SoftDelete() {
	if v.IsDeleted() {
		return
	}
	now := time.Now()
	v.DeletedAt = &now
	v.UpdatedAt = now
	v.IncrementVersion()
}
