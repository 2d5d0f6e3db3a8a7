package integration

import (
	"context"
	"testing"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMergeFlow_Integration runs a full merge through the real repositories:
// field fill, contact and tax profile transfer, source tombstoning, outbox
// writes and idempotent replay, all against PostgreSQL.
func TestMergeFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer)

	customerRepo := persistence.NewGormCustomerRepository(testDB.DB, publisher)
	idempotencyRepo := persistence.NewGormIdempotencyRepository(testDB.DB)
	transactor := persistence.NewGormTransactor(testDB.DB)
	mergeService := customer.NewMergeService(customerRepo, idempotencyRepo, transactor)

	ctx := context.Background()
	tenantID := uuid.New()

	// Source carries the richer profile: email, a contact and a tax profile
	sourceEmail := ptrEmail(t, "ana.rojas@example.com")
	source, err := customer.NewCustomer(
		tenantID, customer.CustomerTypeNatural,
		valueobject.MustNewDocumentID(valueobject.DocumentTypeCC, "10203040"),
		"", "Ana", "Rojas", sourceEmail, nil,
	)
	require.NoError(t, err)

	contact, err := customer.NewContact("Contador", "accounting", ptrEmail(t, "contador@example.com"), nil)
	require.NoError(t, err)
	require.NoError(t, source.AddContact(contact))

	profile, err := customer.NewTaxProfile(customer.TaxRegimeCommon, "Calle 100 # 8-50, Bogotá")
	require.NoError(t, err)
	require.NoError(t, source.SetTaxProfile(profile))
	require.NoError(t, customerRepo.Save(ctx, source))

	// Destination has only a phone; same person registered twice under CE
	destination, err := customer.NewCustomer(
		tenantID, customer.CustomerTypeNatural,
		valueobject.MustNewDocumentID(valueobject.DocumentTypeCE, "445566"),
		"", "Ana", "Rojas", nil, ptrPhone(t, "+573001112233"),
	)
	require.NoError(t, err)
	require.NoError(t, customerRepo.Save(ctx, destination))

	t.Run("Preview reports the plan without persisting", func(t *testing.T) {
		preview, err := mergeService.Preview(ctx, source.ID, destination.ID)
		require.NoError(t, err)
		assert.Empty(t, preview.Violations)
		assert.Contains(t, preview.FieldsToFill, "email")

		reloaded, err := customerRepo.FindByID(ctx, source.ID)
		require.NoError(t, err)
		assert.False(t, reloaded.IsDeleted())
	})

	actorID := uuid.New()
	req := customer.MergeRequest{
		SourceID:       source.ID,
		DestinationID:  destination.ID,
		IdempotencyKey: "merge-test-" + uuid.NewString(),
		ActorID:        actorID,
		Reason:         "duplicate registration",
	}

	t.Run("Merge fills fields and tombstones the source", func(t *testing.T) {
		result, err := mergeService.Merge(ctx, req)
		require.NoError(t, err)
		assert.False(t, result.AlreadyProcessed)
		assert.Contains(t, result.FieldsFilled, "email")
		assert.Equal(t, 1, result.ContactsTransferred)
		assert.True(t, result.TaxProfileAdopted)

		dest, err := customerRepo.FindByID(ctx, destination.ID)
		require.NoError(t, err)
		require.NotNil(t, dest.Email)
		assert.Equal(t, "ana.rojas@example.com", dest.Email.String())
		require.Len(t, dest.Contacts, 1)
		require.NotNil(t, dest.TaxProfile)
		assert.Equal(t, customer.TaxRegimeCommon, dest.TaxProfile.Regime)

		src, err := customerRepo.FindByID(ctx, source.ID)
		require.NoError(t, err)
		assert.True(t, src.IsDeleted())
		require.NotNil(t, src.MergedIntoID)
		assert.Equal(t, destination.ID, *src.MergedIntoID)
	})

	t.Run("Merge writes events to the outbox", func(t *testing.T) {
		var count int64
		err := testDB.DB.Table("outbox_events").
			Where("aggregate_id = ? AND event_type = ?", destination.ID.String(), customer.EventTypeCustomerMerged).
			Count(&count).Error
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Replay with the same key is a no-op", func(t *testing.T) {
		result, err := mergeService.Merge(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.AlreadyProcessed)
		assert.Equal(t, destination.ID, result.Destination.ID)

		record, err := idempotencyRepo.Find(ctx, req.IdempotencyKey)
		require.NoError(t, err)
		require.NotNil(t, record)
	})

	t.Run("Merging an already merged source is rejected", func(t *testing.T) {
		_, err := mergeService.Merge(ctx, customer.MergeRequest{
			SourceID:      source.ID,
			DestinationID: destination.ID,
			ActorID:       actorID,
		})
		require.Error(t, err)
	})
}

func ptrEmail(t *testing.T, address string) *valueobject.Email {
	t.Helper()
	e := valueobject.MustNewEmail(address)
	return &e
}
