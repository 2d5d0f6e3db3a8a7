package event

import (
	"encoding/json"
	"testing"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegisterAllEvents_CoversEveryDomainEvent(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	for _, eventType := range []string{
		customer.EventTypeCustomerCreated,
		customer.EventTypeCustomerUpdated,
		customer.EventTypeCustomerStatusChanged,
		customer.EventTypeCustomerBlacklisted,
		customer.EventTypeCustomerMerged,
		customer.EventTypeCustomerDeleted,
	} {
		assert.True(t, serializer.IsRegistered(eventType), eventType)
	}
}

func TestRegisterVersionedEvents_MergedIsVersionTwo(t *testing.T) {
	serializer := NewVersionedSerializer(zaptest.NewLogger(t))
	require.NoError(t, RegisterVersionedEvents(serializer))

	version, ok := serializer.GetCurrentVersion(customer.EventTypeCustomerMerged)
	require.True(t, ok)
	assert.Equal(t, customer.CustomerMergedEventVersion, version)

	// Every other type stays at version 1.
	version, ok = serializer.GetCurrentVersion(customer.EventTypeCustomerCreated)
	require.True(t, ok)
	assert.Equal(t, 1, version)
}

func TestRegisterVersionedEvents_UpgradesLegacyMergedPayload(t *testing.T) {
	serializer := NewVersionedSerializer(zaptest.NewLogger(t))
	require.NoError(t, RegisterVersionedEvents(serializer))

	sourceID := uuid.New()
	destinationID := uuid.New()
	tenantID := uuid.New()

	// Payload as written before the rename of merged_from/merged_into.
	v1Payload := []byte(`{
		"id": "` + uuid.New().String() + `",
		"type": "CustomerMerged",
		"timestamp": "2025-11-03T09:15:00Z",
		"aggregate_id": "` + destinationID.String() + `",
		"aggregate_type": "Customer",
		"tenant_id": "` + tenantID.String() + `",
		"schema_version": 1,
		"merged_from": "` + sourceID.String() + `",
		"merged_into": "` + destinationID.String() + `"
	}`)

	deserialized, err := serializer.Deserialize(customer.EventTypeCustomerMerged, v1Payload)
	require.NoError(t, err)

	merged, ok := deserialized.(*customer.CustomerMergedEvent)
	require.True(t, ok)
	assert.Equal(t, sourceID, merged.SourceID)
	assert.Equal(t, destinationID, merged.DestinationID)
	assert.Equal(t, tenantID, merged.TenantID())
}

func TestRegisterVersionedEvents_CurrentMergedRoundTrip(t *testing.T) {
	serializer := NewVersionedSerializer(zaptest.NewLogger(t))
	require.NoError(t, RegisterVersionedEvents(serializer))

	tenantID := uuid.New()
	source := &customer.Customer{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	destination := &customer.Customer{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	actorID := uuid.New()

	evt := customer.NewCustomerMergedEvent(source, destination, actorID, "duplicate NIT")

	data, err := serializer.Serialize(evt)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, customer.CustomerMergedEventVersion, raw["schema_version"])
	assert.Equal(t, source.ID.String(), raw["source_id"])
	assert.Equal(t, destination.ID.String(), raw["destination_id"])

	deserialized, err := serializer.Deserialize(customer.EventTypeCustomerMerged, data)
	require.NoError(t, err)
	merged := deserialized.(*customer.CustomerMergedEvent)
	assert.Equal(t, source.ID, merged.SourceID)
	assert.Equal(t, destination.ID, merged.DestinationID)
	assert.Equal(t, actorID, merged.ActorID)
	assert.Equal(t, "duplicate NIT", merged.Reason)
}
