package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// IdempotencyModel is the storage shape of an idempotency record
type IdempotencyModel struct {
	Key         string    `gorm:"primaryKey;type:varchar(100)"`
	Payload     []byte    `gorm:"type:jsonb"`
	Result      []byte    `gorm:"type:jsonb"`
	ProcessedAt time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (IdempotencyModel) TableName() string {
	return "idempotency_records"
}

func (m *IdempotencyModel) toDomain() *customer.IdempotencyRecord {
	return &customer.IdempotencyRecord{
		Key:         m.Key,
		Payload:     m.Payload,
		Result:      m.Result,
		ProcessedAt: m.ProcessedAt,
		ExpiresAt:   m.ExpiresAt,
	}
}

// GormIdempotencyRepository implements customer.IdempotencyRepository using GORM
type GormIdempotencyRepository struct {
	db *gorm.DB
}

// NewGormIdempotencyRepository creates a new GormIdempotencyRepository
func NewGormIdempotencyRepository(db *gorm.DB) *GormIdempotencyRepository {
	return &GormIdempotencyRepository{db: db}
}

func (r *GormIdempotencyRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// Find returns the record for a key, or nil when the key is unknown or the
// record has expired.
func (r *GormIdempotencyRepository) Find(ctx context.Context, key string) (*customer.IdempotencyRecord, error) {
	var model IdempotencyModel
	if err := r.conn(ctx).First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	record := model.toDomain()
	if record.IsExpired(time.Now()) {
		return nil, nil
	}
	return record, nil
}

// Store persists a record. A duplicate key yields shared.ErrAlreadyExists.
func (r *GormIdempotencyRepository) Store(ctx context.Context, key string, payload, result []byte, ttl time.Duration) error {
	now := time.Now()
	model := IdempotencyModel{
		Key:         key,
		Payload:     payload,
		Result:      result,
		ProcessedAt: now,
		ExpiresAt:   now.Add(ttl),
	}
	err := r.conn(ctx).Create(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// Delete removes a record by key
func (r *GormIdempotencyRepository) Delete(ctx context.Context, key string) error {
	return r.conn(ctx).Delete(&IdempotencyModel{}, "key = ?", key).Error
}

// DeleteExpired removes all records whose expiry has passed
func (r *GormIdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.conn(ctx).Delete(&IdempotencyModel{}, "expires_at < ?", time.Now())
	return result.RowsAffected, result.Error
}
