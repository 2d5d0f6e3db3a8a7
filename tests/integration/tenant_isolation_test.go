package integration

import (
	"context"
	"testing"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTenantIsolation_Customers verifies that customer data never crosses
// tenant boundaries: the same document may exist in two tenants, and every
// scoped query stays inside its tenant.
func TestTenantIsolation_Customers(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormCustomerRepository(testDB.DB, nil)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	doc := valueobject.MustNewDocumentID(valueobject.DocumentTypeCC, "12345678")

	inA := newNaturalCustomer(t, tenantA, "12345678", "Ana", "Rojas")
	require.NoError(t, repo.Save(ctx, inA))

	t.Run("Same document allowed in another tenant", func(t *testing.T) {
		inB := newNaturalCustomer(t, tenantB, "12345678", "Ana", "Rojas")
		require.NoError(t, repo.Save(ctx, inB))

		foundA, err := repo.FindByDocument(ctx, tenantA, doc)
		require.NoError(t, err)
		assert.Equal(t, inA.ID, foundA.ID)

		foundB, err := repo.FindByDocument(ctx, tenantB, doc)
		require.NoError(t, err)
		assert.Equal(t, inB.ID, foundB.ID)
		assert.NotEqual(t, foundA.ID, foundB.ID)
	})

	t.Run("Duplicate document within a tenant is rejected by the database", func(t *testing.T) {
		dup := newNaturalCustomer(t, tenantA, "12345678", "Otra", "Persona")
		err := repo.Save(ctx, dup)
		require.Error(t, err)
	})

	t.Run("Scoped queries do not leak", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, tenantB, inA.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		results, err := repo.Search(ctx, tenantB, "Rojas", 10)
		require.NoError(t, err)
		for _, c := range results {
			assert.Equal(t, tenantB, c.TenantID)
		}

		count, err := repo.CountForTenant(ctx, tenantB, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Cross-tenant merge is rejected", func(t *testing.T) {
		idempotencyRepo := persistence.NewGormIdempotencyRepository(testDB.DB)
		transactor := persistence.NewGormTransactor(testDB.DB)
		mergeService := customer.NewMergeService(repo, idempotencyRepo, transactor)

		foundB, err := repo.FindByDocument(ctx, tenantB, doc)
		require.NoError(t, err)

		_, err = mergeService.Merge(ctx, customer.MergeRequest{
			SourceID:      inA.ID,
			DestinationID: foundB.ID,
			ActorID:       uuid.New(),
			Reason:        "cross tenant attempt",
		})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Message, "different tenants")
	})
}
