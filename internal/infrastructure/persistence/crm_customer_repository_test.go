package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func newMockCustomerRepository(t *testing.T) (*GormCustomerRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockDB(t)
	return NewGormCustomerRepository(gormDB, nil), mock, mockDB
}

func mustDocument(t *testing.T) valueobject.DocumentID {
	t.Helper()
	document, err := valueobject.NewDocumentID(valueobject.DocumentTypeCC, "1234567890")
	require.NoError(t, err)
	return document
}

func TestNewGormCustomerRepository(t *testing.T) {
	t.Run("creates repository with valid DB", func(t *testing.T) {
		repo, _, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		assert.NotNil(t, repo)
		assert.NotNil(t, repo.db)
	})
}

func TestGormCustomerRepository_FindByID(t *testing.T) {
	t.Run("finds existing customer with associations", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()
		mock.MatchExpectationsInOrder(false)

		customerID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "type", "document", "first_name", "last_name", "email", "status"}).
			AddRow(customerID, tenantID, "natural", "CC:1234567890", "Maria", "Lopez", "maria@example.com", "active")

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnRows(rows)
		mock.ExpectQuery(`SELECT \* FROM "customer_contacts" WHERE .*customer_id.*`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "name"}))
		mock.ExpectQuery(`SELECT \* FROM "customer_addresses" WHERE .*customer_id.*`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "line1"}))
		mock.ExpectQuery(`SELECT \* FROM "customer_tax_profiles" WHERE .*customer_id.*`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "regime"}))

		c, err := repo.FindByID(context.Background(), customerID)

		assert.NoError(t, err)
		assert.NotNil(t, c)
		assert.Equal(t, customerID, c.ID)
		assert.Equal(t, "CC:1234567890", c.Document.String())
		assert.Equal(t, "Maria Lopez", c.FullName())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing customer", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		c, err := repo.FindByID(context.Background(), customerID)

		assert.Nil(t, c)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_ExistsByDocument(t *testing.T) {
	t.Run("reports existing document", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		document := mustDocument(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "customers" WHERE tenant_id = \$1 AND document = \$2`).
			WithArgs(tenantID, document.String()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsByDocument(context.Background(), tenantID, document)

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scopes untenanted lookups to NULL tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		document := mustDocument(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "customers" WHERE tenant_id IS NULL AND document = \$1`).
			WithArgs(document.String()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		exists, err := repo.ExistsByDocument(context.Background(), uuid.Nil, document)

		assert.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_Search(t *testing.T) {
	t.Run("empty query returns no rows without hitting the database", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		results, err := repo.Search(context.Background(), uuid.New(), "   ", 10)

		assert.NoError(t, err)
		assert.Empty(t, results)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matches across identity columns", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "tenant_id", "type", "document", "first_name", "status"}).
			AddRow(uuid.New(), tenantID, "natural", "CC:1234567890", "Maria", "active")

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE tenant_id = \$1 AND deleted_at IS NULL AND \(document ILIKE .*`).
			WillReturnRows(rows)

		results, err := repo.Search(context.Background(), tenantID, "maria", 10)

		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormIdempotencyRepository(t *testing.T) {
	t.Run("Find returns nil for unknown key", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormIdempotencyRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "idempotency_records" WHERE key = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("merge-1", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		record, err := repo.Find(context.Background(), "merge-1")

		assert.NoError(t, err)
		assert.Nil(t, record)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Find treats expired records as absent", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormIdempotencyRepository(gormDB)

		expired := time.Now().Add(-time.Hour)
		rows := sqlmock.NewRows([]string{"key", "payload", "result", "processed_at", "expires_at"}).
			AddRow("merge-1", []byte(`{}`), nil, expired.Add(-time.Hour), expired)

		mock.ExpectQuery(`SELECT \* FROM "idempotency_records" WHERE key = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("merge-1", 1).
			WillReturnRows(rows)

		record, err := repo.Find(context.Background(), "merge-1")

		assert.NoError(t, err)
		assert.Nil(t, record)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Store maps duplicate keys to ErrAlreadyExists", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormIdempotencyRepository(gormDB)

		mock.ExpectExec(`INSERT INTO "idempotency_records"`).
			WillReturnError(gorm.ErrDuplicatedKey)

		err := repo.Store(context.Background(), "merge-1", []byte(`{}`), nil, time.Hour)

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}
