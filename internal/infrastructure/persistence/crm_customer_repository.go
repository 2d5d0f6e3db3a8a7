package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerSortFields contains allowed sort fields for customers
var CustomerSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"document":      true,
	"first_name":    true,
	"last_name":     true,
	"business_name": true,
	"status":        true,
	"segment":       true,
}

// GormCustomerRepository implements customer.CustomerRepository using GORM
type GormCustomerRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormCustomerRepository creates a new GormCustomerRepository. outbox may
// be nil; domain events are then discarded on save.
func NewGormCustomerRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormCustomerRepository {
	return &GormCustomerRepository{db: db, outbox: outbox}
}

func (r *GormCustomerRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// Save persists a customer with its contacts, addresses and tax profile,
// and writes pending domain events to the outbox in the same transaction.
func (r *GormCustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	db := r.conn(ctx)
	if err := db.Session(&gorm.Session{FullSaveAssociations: true}).Save(c).Error; err != nil {
		return err
	}
	if r.outbox != nil {
		if err := r.outbox.SaveEvents(ctx, db, c.GetDomainEvents()...); err != nil {
			return err
		}
	}
	c.ClearDomainEvents()
	return nil
}

// FindByID finds a customer by ID, including soft-deleted ones
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	var c customer.Customer
	if err := r.preloaded(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByIDForTenant finds a customer by ID within a tenant
func (r *GormCustomerRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*customer.Customer, error) {
	var c customer.Customer
	if err := scopeTenant(r.preloaded(ctx), tenantID).
		Where("id = ?", id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByDocument finds a customer by its document within a tenant
func (r *GormCustomerRepository) FindByDocument(ctx context.Context, tenantID uuid.UUID, document valueobject.DocumentID) (*customer.Customer, error) {
	var c customer.Customer
	if err := scopeTenant(r.preloaded(ctx), tenantID).
		Where("document = ?", document.String()).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByEmail finds non-deleted customers sharing an email within a tenant
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email valueobject.Email) ([]*customer.Customer, error) {
	var customers []*customer.Customer
	if err := scopeTenant(r.conn(ctx).Model(&customer.Customer{}), tenantID).
		Where("email = ? AND deleted_at IS NULL", email.String()).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// FindByPhone finds non-deleted customers sharing a phone within a tenant
func (r *GormCustomerRepository) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone valueobject.Phone) ([]*customer.Customer, error) {
	var customers []*customer.Customer
	if err := scopeTenant(r.conn(ctx).Model(&customer.Customer{}), tenantID).
		Where("phone = ? AND deleted_at IS NULL", phone.String()).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// FindBySimilarName finds non-deleted customers whose name resembles the
// given one within a tenant. The database does a coarse ILIKE pass; the
// dedup service refines the candidates in memory.
func (r *GormCustomerRepository) FindBySimilarName(ctx context.Context, tenantID uuid.UUID, name string) ([]*customer.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []*customer.Customer{}, nil
	}

	query := scopeTenant(r.conn(ctx).Model(&customer.Customer{}), tenantID).
		Where("deleted_at IS NULL")

	terms := strings.Fields(name)
	for _, term := range terms {
		pattern := "%" + term + "%"
		query = query.Where(
			"business_name ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?",
			pattern, pattern, pattern,
		)
	}

	var customers []*customer.Customer
	if err := query.Limit(50).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// FindAllForTenant lists customers matching the filter
func (r *GormCustomerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]customer.Customer, error) {
	var customers []customer.Customer
	query := r.applyFilter(scopeTenant(r.conn(ctx).Model(&customer.Customer{}), tenantID), filter)
	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// CountForTenant counts customers matching the filter
func (r *GormCustomerRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(scopeTenant(r.conn(ctx).Model(&customer.Customer{}), tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Search finds customers matching the query across document, names, email,
// phone and segment
func (r *GormCustomerRepository) Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]customer.Customer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []customer.Customer{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + query + "%"
	var customers []customer.Customer
	if err := scopeTenant(r.conn(ctx).Model(&customer.Customer{}), tenantID).
		Where("deleted_at IS NULL").
		Where(
			"document ILIKE ? OR business_name ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR phone ILIKE ? OR segment ILIKE ?",
			pattern, pattern, pattern, pattern, pattern, pattern, pattern,
		).
		Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// ExistsByDocument reports whether a customer with this document exists
// within a tenant
func (r *GormCustomerRepository) ExistsByDocument(ctx context.Context, tenantID uuid.UUID, document valueobject.DocumentID) (bool, error) {
	var count int64
	if err := scopeTenant(r.conn(ctx).Model(&customer.Customer{}), tenantID).
		Where("document = ?", document.String()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Metrics aggregates customer counts for a tenant
func (r *GormCustomerRepository) Metrics(ctx context.Context, tenantID uuid.UUID) (*customer.CustomerMetrics, error) {
	metrics := &customer.CustomerMetrics{
		ByStatus: make(map[customer.CustomerStatus]int64),
		ByType:   make(map[customer.CustomerType]int64),
	}

	base := func() *gorm.DB {
		return scopeTenant(r.conn(ctx).Model(&customer.Customer{}), tenantID)
	}

	if err := base().Where("deleted_at IS NULL").Count(&metrics.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("deleted_at IS NOT NULL").Count(&metrics.Deleted).Error; err != nil {
		return nil, err
	}
	if err := base().Where("deleted_at IS NULL AND email IS NOT NULL AND email != ''").Count(&metrics.WithEmail).Error; err != nil {
		return nil, err
	}
	if err := base().Where("deleted_at IS NULL AND phone IS NOT NULL AND phone != ''").Count(&metrics.WithPhone).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status customer.CustomerStatus
		Count  int64
	}
	var byStatus []statusCount
	if err := base().Where("deleted_at IS NULL").
		Select("status, count(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		metrics.ByStatus[row.Status] = row.Count
	}

	type typeCount struct {
		Type  customer.CustomerType
		Count int64
	}
	var byType []typeCount
	if err := base().Where("deleted_at IS NULL").
		Select("type, count(*) as count").
		Group("type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, row := range byType {
		metrics.ByType[row.Type] = row.Count
	}

	return metrics, nil
}

// Delete removes a customer permanently
func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Delete(&customer.Customer{}, "id = ?", id).Error
}

func (r *GormCustomerRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.conn(ctx).
		Preload("Contacts").
		Preload("Addresses").
		Preload("TaxProfile")
}

func (r *GormCustomerRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, CustomerSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

func (r *GormCustomerRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"document ILIKE ? OR business_name ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	if include, ok := filter.Filters["include_deleted"]; !ok || include != true {
		query = query.Where("deleted_at IS NULL")
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "segment":
			query = query.Where("segment = ?", value)
		case "created_from":
			query = query.Where("created_at >= ?", value)
		case "created_to":
			query = query.Where("created_at <= ?", value)
		}
	}

	return query
}
