package customer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProjectionCache caches serialized customer projections. Get returns
// (nil, nil) on a miss; implementations swallow their own failures so the
// read model can always fall back to the repository.
type ProjectionCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// DefaultProjectionTTL is how long cached projections stay fresh
const DefaultProjectionTTL = 5 * time.Minute

// CustomerReadModelService implements customer.CustomerReadModel on top of
// the repository, with cache-aside on the basic projection.
type CustomerReadModelService struct {
	customers customer.CustomerRepository
	cache     ProjectionCache
	ttl       time.Duration
}

// ReadModelOption is a functional option for the read model service
type ReadModelOption func(*CustomerReadModelService)

// WithProjectionTTL overrides how long cached projections stay fresh
func WithProjectionTTL(ttl time.Duration) ReadModelOption {
	return func(s *CustomerReadModelService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewCustomerReadModelService creates a read model service. cache may be nil.
func NewCustomerReadModelService(customers customer.CustomerRepository, cache ProjectionCache, opts ...ReadModelOption) *CustomerReadModelService {
	s := &CustomerReadModelService{
		customers: customers,
		cache:     cache,
		ttl:       DefaultProjectionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetBasicInfo returns the basic projection, or nil when the customer does
// not exist or is deleted
func (s *CustomerReadModelService) GetBasicInfo(ctx context.Context, id uuid.UUID) (*customer.CustomerBasicInfo, error) {
	key := basicInfoKey(id)
	if cached := getCached[customer.CustomerBasicInfo](ctx, s.cache, key); cached != nil {
		return cached, nil
	}

	c, err := s.load(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}

	info := &customer.CustomerBasicInfo{
		ID:       c.ID,
		Type:     c.Type,
		Document: c.Document.String(),
		Name:     c.FullName(),
		Status:   c.Status,
		Segment:  c.Segment,
	}
	setCached(ctx, s.cache, key, info, s.ttl)
	return info, nil
}

// GetContactInfo returns the contact projection
func (s *CustomerReadModelService) GetContactInfo(ctx context.Context, id uuid.UUID) (*customer.CustomerContactInfo, error) {
	c, err := s.load(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}

	info := &customer.CustomerContactInfo{ID: c.ID}
	if c.HasEmail() {
		info.Email = c.Email.String()
	}
	if c.HasPhone() {
		info.Phone = c.Phone.String()
	}
	return info, nil
}

// GetTaxInfo returns the fiscal projection
func (s *CustomerReadModelService) GetTaxInfo(ctx context.Context, id uuid.UUID) (*customer.CustomerTaxInfo, error) {
	c, err := s.load(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}

	info := &customer.CustomerTaxInfo{
		ID:       c.ID,
		Document: c.Document.String(),
	}
	if c.TaxProfile != nil {
		info.Regime = c.TaxProfile.Regime
		info.Responsibilities = c.TaxProfile.Responsibilities
		info.RetentionAgent = c.TaxProfile.RetentionAgent
		info.SelfRetainer = c.TaxProfile.SelfRetainer
	}
	return info, nil
}

// IsCustomerActive reports whether the customer exists, is not deleted and
// is in active status
func (s *CustomerReadModelService) IsCustomerActive(ctx context.Context, id uuid.UUID) (bool, error) {
	info, err := s.GetBasicInfo(ctx, id)
	if err != nil {
		return false, err
	}
	return info != nil && info.Status == customer.CustomerStatusActive, nil
}

// Search finds basic projections matching the query
func (s *CustomerReadModelService) Search(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]customer.CustomerBasicInfo, error) {
	customers, err := s.customers.Search(ctx, tenantID, query, limit)
	if err != nil {
		return nil, err
	}
	infos := make([]customer.CustomerBasicInfo, 0, len(customers))
	for i := range customers {
		c := &customers[i]
		infos = append(infos, customer.CustomerBasicInfo{
			ID:       c.ID,
			Type:     c.Type,
			Document: c.Document.String(),
			Name:     c.FullName(),
			Status:   c.Status,
			Segment:  c.Segment,
		})
	}
	return infos, nil
}

// Evict implements CustomerCache so write paths can invalidate projections
func (s *CustomerReadModelService) Evict(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		s.cache.Delete(ctx, basicInfoKey(id))
	}
}

func (s *CustomerReadModelService) load(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	c, err := s.customers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if c.IsDeleted() {
		return nil, nil
	}
	return c, nil
}

func basicInfoKey(id uuid.UUID) string {
	return "customer:basic:" + id.String()
}

func getCached[T any](ctx context.Context, cache ProjectionCache, key string) *T {
	if cache == nil {
		return nil
	}
	data, err := cache.Get(ctx, key)
	if err != nil || data == nil {
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil
	}
	return &value
}

func setCached[T any](ctx context.Context, cache ProjectionCache, key string, value *T, ttl time.Duration) {
	if cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	cache.Set(ctx, key, data, ttl)
}
