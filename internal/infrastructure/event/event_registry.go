package event

import (
	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
)

// EventRegistrar is the registration surface shared by EventSerializer and
// VersionedSerializer.
type EventRegistrar interface {
	Register(eventType string, eventInstance shared.DomainEvent)
}

// RegisterAllEvents registers every domain event type with the serializer.
// The OutboxProcessor cannot deserialize events from the outbox table without
// this.
func RegisterAllEvents(serializer EventRegistrar) {
	serializer.Register(customer.EventTypeCustomerCreated, &customer.CustomerCreatedEvent{})
	serializer.Register(customer.EventTypeCustomerUpdated, &customer.CustomerUpdatedEvent{})
	serializer.Register(customer.EventTypeCustomerStatusChanged, &customer.CustomerStatusChangedEvent{})
	serializer.Register(customer.EventTypeCustomerBlacklisted, &customer.CustomerBlacklistedEvent{})
	serializer.Register(customer.EventTypeCustomerMerged, &customer.CustomerMergedEvent{})
	serializer.Register(customer.EventTypeCustomerDeleted, &customer.CustomerDeletedEvent{})
}

// RegisterVersionedEvents registers the full schema history with a versioned
// serializer, so payloads written by older releases can still be read.
//
// CustomerMerged is the only type past version 1: v1 stored the parties as
// merged_from/merged_into, v2 renamed them to source_id/destination_id.
func RegisterVersionedEvents(serializer *VersionedSerializer) error {
	RegisterAllEvents(serializer)

	return serializer.RegisterVersioned(
		customer.EventTypeCustomerMerged,
		customer.CustomerMergedEventVersion,
		map[int]shared.DomainEvent{
			1: &customer.CustomerMergedEvent{},
			2: &customer.CustomerMergedEvent{},
		},
		NewMapUpgrader(1, 2, func(data map[string]any) (map[string]any, error) {
			if v, ok := data["merged_from"]; ok {
				data["source_id"] = v
				delete(data, "merged_from")
			}
			if v, ok := data["merged_into"]; ok {
				data["destination_id"] = v
				delete(data, "merged_into")
			}
			return data, nil
		}),
	)
}
