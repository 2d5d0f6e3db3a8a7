package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func deadEntry() *OutboxEntry {
	return &OutboxEntry{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		EventID:     uuid.New(),
		EventType:   "CustomerMerged",
		AggregateID: uuid.New(),
		Status:      OutboxStatusDead,
		RetryCount:  5,
		MaxRetries:  5,
		LastError:   "broker unavailable",
		CreatedAt:   time.Now().Add(-time.Hour),
		UpdatedAt:   time.Now().Add(-time.Minute),
	}
}

func TestOutboxEntry_NewOutboxEntry(t *testing.T) {
	tenantID := uuid.New()
	event := NewBaseDomainEvent("CustomerCreated", "Customer", uuid.New(), tenantID)
	payload := []byte(`{"status":"prospect"}`)

	entry := NewOutboxEntry(tenantID, &event, payload)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, tenantID, entry.TenantID)
	assert.Equal(t, event.EventID(), entry.EventID)
	assert.Equal(t, "CustomerCreated", entry.EventType)
	assert.Equal(t, event.AggregateID(), entry.AggregateID)
	assert.Equal(t, "Customer", entry.AggregateType)
	assert.Equal(t, payload, entry.Payload)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, 0, entry.RetryCount)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("puts dead entry back in pending queue", func(t *testing.T) {
		entry := deadEntry()

		err := entry.ResetForRetry()
		assert.NoError(t, err)
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
		assert.True(t, entry.UpdatedAt.After(time.Now().Add(-time.Second)))
	})

	t.Run("rejects entries that are not dead", func(t *testing.T) {
		for _, status := range []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		} {
			entry := &OutboxEntry{ID: uuid.New(), Status: status}
			err := entry.ResetForRetry()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "can only retry dead letter entries")
		}
	})
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	t.Run("claims pending and failed entries", func(t *testing.T) {
		for _, status := range []OutboxStatus{OutboxStatusPending, OutboxStatusFailed} {
			entry := &OutboxEntry{ID: uuid.New(), Status: status}
			assert.NoError(t, entry.MarkProcessing())
			assert.Equal(t, OutboxStatusProcessing, entry.Status)
		}
	})

	t.Run("rejects sent and dead entries", func(t *testing.T) {
		for _, status := range []OutboxStatus{OutboxStatusSent, OutboxStatusDead, OutboxStatusProcessing} {
			entry := &OutboxEntry{ID: uuid.New(), Status: status}
			assert.Error(t, entry.MarkProcessing())
		}
	})
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := &OutboxEntry{ID: uuid.New(), Status: OutboxStatusProcessing}

	entry.MarkSent()

	assert.Equal(t, OutboxStatusSent, entry.Status)
	if assert.NotNil(t, entry.ProcessedAt) {
		assert.WithinDuration(t, time.Now(), *entry.ProcessedAt, time.Second)
	}
}

func TestOutboxEntry_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		status     OutboxStatus
		retryCount int
		canRetry   bool
	}{
		{"pending cannot retry", OutboxStatusPending, 0, false},
		{"failed with budget left can retry", OutboxStatusFailed, 2, true},
		{"failed at max retries cannot retry", OutboxStatusFailed, 5, false},
		{"dead cannot retry", OutboxStatusDead, 5, false},
		{"sent cannot retry", OutboxStatusSent, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &OutboxEntry{
				Status:     tt.status,
				RetryCount: tt.retryCount,
				MaxRetries: 5,
			}
			assert.Equal(t, tt.canRetry, entry.CanRetry())
		})
	}
}

func TestOutboxEntry_IsDead(t *testing.T) {
	assert.True(t, (&OutboxEntry{Status: OutboxStatusDead}).IsDead())

	for _, status := range []OutboxStatus{
		OutboxStatusPending,
		OutboxStatusProcessing,
		OutboxStatusSent,
		OutboxStatusFailed,
	} {
		assert.False(t, (&OutboxEntry{Status: status}).IsDead())
	}
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("moves to dead after max retries", func(t *testing.T) {
		entry := &OutboxEntry{
			ID:         uuid.New(),
			Status:     OutboxStatusProcessing,
			RetryCount: 4,
			MaxRetries: 5,
		}

		entry.MarkFailed("final error")

		assert.Equal(t, OutboxStatusDead, entry.Status)
		assert.Equal(t, 5, entry.RetryCount)
		assert.Equal(t, "final error", entry.LastError)
		assert.False(t, entry.CanRetry())
	})

	t.Run("doubles the backoff on each failure", func(t *testing.T) {
		entry := &OutboxEntry{
			ID:         uuid.New(),
			Status:     OutboxStatusProcessing,
			MaxRetries: 5,
		}

		entry.MarkFailed("error 1")
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		assert.True(t, entry.CanRetry())
		if assert.NotNil(t, entry.NextRetryAt) {
			backoff := time.Until(*entry.NextRetryAt)
			assert.True(t, backoff > 0 && backoff <= 2*time.Second)
		}

		entry.Status = OutboxStatusProcessing
		entry.MarkFailed("error 2")
		assert.Equal(t, 2, entry.RetryCount)
		backoff := time.Until(*entry.NextRetryAt)
		assert.True(t, backoff > time.Second && backoff <= 3*time.Second)

		entry.Status = OutboxStatusProcessing
		entry.MarkFailed("error 3")
		assert.Equal(t, 3, entry.RetryCount)
		backoff = time.Until(*entry.NextRetryAt)
		assert.True(t, backoff > 3*time.Second && backoff <= 5*time.Second)
	})
}
