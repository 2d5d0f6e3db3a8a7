package customer

import (
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated       = "CustomerCreated"
	EventTypeCustomerUpdated       = "CustomerUpdated"
	EventTypeCustomerStatusChanged = "CustomerStatusChanged"
	EventTypeCustomerBlacklisted   = "CustomerBlacklisted"
	EventTypeCustomerMerged        = "CustomerMerged"
	EventTypeCustomerDeleted       = "CustomerDeleted"
)

// CustomerCreatedEvent is published when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID    `json:"customer_id"`
	Document   string       `json:"document"`
	Name       string       `json:"name"`
	Type       CustomerType `json:"type"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(c *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, c.ID, c.TenantID),
		CustomerID:      c.ID,
		Document:        c.Document.String(),
		Name:            c.FullName(),
		Type:            c.Type,
	}
}

// CustomerUpdatedEvent is published when a customer profile changes
type CustomerUpdatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Segment    string    `json:"segment,omitempty"`
}

// NewCustomerUpdatedEvent creates a new CustomerUpdatedEvent
func NewCustomerUpdatedEvent(c *Customer) *CustomerUpdatedEvent {
	event := &CustomerUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerUpdated, AggregateTypeCustomer, c.ID, c.TenantID),
		CustomerID:      c.ID,
		Name:            c.FullName(),
		Segment:         c.Segment,
	}
	if c.HasEmail() {
		event.Email = c.Email.String()
	}
	if c.HasPhone() {
		event.Phone = c.Phone.String()
	}
	return event
}

// CustomerStatusChangedEvent is published when a customer changes status
type CustomerStatusChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID      `json:"customer_id"`
	OldStatus  CustomerStatus `json:"old_status"`
	NewStatus  CustomerStatus `json:"new_status"`
	Reason     string         `json:"reason,omitempty"`
}

// NewCustomerStatusChangedEvent creates a new CustomerStatusChangedEvent
func NewCustomerStatusChangedEvent(c *Customer, oldStatus, newStatus CustomerStatus, reason string) *CustomerStatusChangedEvent {
	return &CustomerStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerStatusChanged, AggregateTypeCustomer, c.ID, c.TenantID),
		CustomerID:      c.ID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		Reason:          reason,
	}
}

// CustomerBlacklistedEvent is published when a customer is blacklisted
type CustomerBlacklistedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
}

// NewCustomerBlacklistedEvent creates a new CustomerBlacklistedEvent
func NewCustomerBlacklistedEvent(c *Customer, reason string) *CustomerBlacklistedEvent {
	return &CustomerBlacklistedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerBlacklisted, AggregateTypeCustomer, c.ID, c.TenantID),
		CustomerID:      c.ID,
		Reason:          reason,
	}
}

// CustomerMergedEventVersion is the current schema version. Version 1 named
// the parties merged_from/merged_into; version 2 renamed them to
// source_id/destination_id and added the acting user and reason.
const CustomerMergedEventVersion = 2

// CustomerMergedEvent is published on the destination when a merge completes
type CustomerMergedEvent struct {
	shared.BaseDomainEvent
	SourceID      uuid.UUID `json:"source_id"`
	DestinationID uuid.UUID `json:"destination_id"`
	ActorID       uuid.UUID `json:"actor_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// NewCustomerMergedEvent creates a new CustomerMergedEvent
func NewCustomerMergedEvent(source, destination *Customer, actorID uuid.UUID, reason string) *CustomerMergedEvent {
	return &CustomerMergedEvent{
		BaseDomainEvent: shared.NewVersionedBaseDomainEvent(EventTypeCustomerMerged, AggregateTypeCustomer, destination.ID, destination.TenantID, CustomerMergedEventVersion),
		SourceID:        source.ID,
		DestinationID:   destination.ID,
		ActorID:         actorID,
		Reason:          reason,
	}
}

// CustomerDeletedEvent is published when a customer is soft deleted
type CustomerDeletedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason,omitempty"`
}

// NewCustomerDeletedEvent creates a new CustomerDeletedEvent
func NewCustomerDeletedEvent(c *Customer, reason string) *CustomerDeletedEvent {
	return &CustomerDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerDeleted, AggregateTypeCustomer, c.ID, c.TenantID),
		CustomerID:      c.ID,
		Reason:          reason,
	}
}
