package customer

import (
	"context"
	"testing"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCustomerProjectionHandler_EventTypes(t *testing.T) {
	handler := NewCustomerProjectionHandler(nil, zap.NewNop())

	types := handler.EventTypes()
	assert.Contains(t, types, customer.EventTypeCustomerUpdated)
	assert.Contains(t, types, customer.EventTypeCustomerMerged)
	assert.Contains(t, types, customer.EventTypeCustomerDeleted)
	assert.NotContains(t, types, customer.EventTypeCustomerCreated)
}

func TestCustomerProjectionHandler_EvictsOnUpdate(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	cache := newMemoryCache()
	readModel := NewCustomerReadModelService(mockRepo, cache)
	handler := NewCustomerProjectionHandler(readModel, zap.NewNop())

	ctx := context.Background()
	c := newTestCustomer(uuid.New())
	mockRepo.On("FindByID", ctx, c.ID).Return(c, nil).Once()

	_, err := readModel.GetBasicInfo(ctx, c.ID)
	assert.NoError(t, err)
	assert.Contains(t, cache.entries, basicInfoKey(c.ID))

	err = handler.Handle(ctx, customer.NewCustomerUpdatedEvent(c))
	assert.NoError(t, err)
	assert.NotContains(t, cache.entries, basicInfoKey(c.ID))
}

func TestCustomerProjectionHandler_MergeEvictsBothSides(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	cache := newMemoryCache()
	readModel := NewCustomerReadModelService(mockRepo, cache)
	handler := NewCustomerProjectionHandler(readModel, zap.NewNop())

	ctx := context.Background()
	tenantID := uuid.New()
	source := newTestCustomer(tenantID)
	destination := newTestCustomer(tenantID)

	cache.entries[basicInfoKey(source.ID)] = []byte(`{}`)
	cache.entries[basicInfoKey(destination.ID)] = []byte(`{}`)

	event := customer.NewCustomerMergedEvent(source, destination, uuid.New(), "duplicate")
	err := handler.Handle(ctx, event)
	assert.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestCustomerProjectionHandler_IgnoresUnknownEvent(t *testing.T) {
	readModel := NewCustomerReadModelService(new(MockCustomerRepository), newMemoryCache())
	handler := NewCustomerProjectionHandler(readModel, zap.NewNop())

	c := newTestCustomer(uuid.New())
	err := handler.Handle(context.Background(), customer.NewCustomerCreatedEvent(c))
	assert.NoError(t, err)
}
