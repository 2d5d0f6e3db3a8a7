package customer

import (
	"context"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CustomerProjectionHandler evicts cached customer projections when a
// customer aggregate changes, keeping the read model consistent with writes
// that happen on other instances.
type CustomerProjectionHandler struct {
	readModel *CustomerReadModelService
	logger    *zap.Logger
}

// NewCustomerProjectionHandler creates a new handler for customer change events
func NewCustomerProjectionHandler(
	readModel *CustomerReadModelService,
	logger *zap.Logger,
) *CustomerProjectionHandler {
	return &CustomerProjectionHandler{
		readModel: readModel,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CustomerProjectionHandler) EventTypes() []string {
	return []string{
		customer.EventTypeCustomerUpdated,
		customer.EventTypeCustomerStatusChanged,
		customer.EventTypeCustomerBlacklisted,
		customer.EventTypeCustomerMerged,
		customer.EventTypeCustomerDeleted,
	}
}

// Handle evicts the projections of every customer touched by the event.
// A merge invalidates both the source and the destination.
func (h *CustomerProjectionHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *customer.CustomerUpdatedEvent:
		h.readModel.Evict(ctx, e.CustomerID)
	case *customer.CustomerStatusChangedEvent:
		h.readModel.Evict(ctx, e.CustomerID)
	case *customer.CustomerBlacklistedEvent:
		h.readModel.Evict(ctx, e.CustomerID)
	case *customer.CustomerMergedEvent:
		h.readModel.Evict(ctx, e.SourceID)
		h.readModel.Evict(ctx, e.DestinationID)
	case *customer.CustomerDeletedEvent:
		h.readModel.Evict(ctx, e.CustomerID)
	default:
		h.logger.Warn("unexpected event type for projection eviction",
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	h.logger.Debug("customer projections evicted",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
	)
	return nil
}
