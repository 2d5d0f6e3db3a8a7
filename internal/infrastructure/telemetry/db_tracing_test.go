package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTracedGorm opens a GORM handle over sqlmock for callback tests.
func newTracedGorm(t *testing.T) *gorm.DB {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db
}

// newRecordedSpan starts a span against an in-memory recorder and returns
// the span-bearing context plus a collector for the finished span.
func newRecordedSpan(t *testing.T) (context.Context, func() sdktrace.ReadOnlySpan) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("db-tracing-test").Start(context.Background(), "customer lookup")
	return ctx, func() sdktrace.ReadOnlySpan {
		span.End()
		ended := recorder.Ended()
		require.Len(t, ended, 1)
		return ended[0]
	}
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.True(t, cfg.WithoutVariables)
}

func TestNewDBTracingPlugin(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	require.NotNil(t, plugin)
	assert.Equal(t, cfg, plugin.config)
}

func TestDBTracingPlugin_RegisterOtelGorm(t *testing.T) {
	t.Run("disabled config registers nothing", func(t *testing.T) {
		plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
		assert.NoError(t, plugin.RegisterOtelGorm(newTracedGorm(t)))
	})

	t.Run("enabled config registers the plugin and callbacks", func(t *testing.T) {
		plugin := NewDBTracingPlugin(DBTracingConfig{
			Enabled:          true,
			SlowQueryThresh:  200 * time.Millisecond,
			DBSystem:         "postgresql",
			WithoutVariables: true,
		}, zap.NewNop())

		assert.NoError(t, plugin.RegisterOtelGorm(newTracedGorm(t)))
	})

	t.Run("full SQL mode registers without variable stripping", func(t *testing.T) {
		plugin := NewDBTracingPlugin(DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      true,
			SlowQueryThresh: 200 * time.Millisecond,
			DBSystem:        "postgresql",
		}, zap.NewNop())

		assert.NoError(t, plugin.RegisterOtelGorm(newTracedGorm(t)))
	})

	t.Run("second registration on the same handle fails", func(t *testing.T) {
		db := newTracedGorm(t)
		plugin := NewDBTracingPlugin(DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: 200 * time.Millisecond,
			DBSystem:        "postgresql",
		}, zap.NewNop())

		require.NoError(t, plugin.RegisterOtelGorm(db))
		assert.Error(t, plugin.RegisterOtelGorm(db))
	})
}

func TestDBTracingPlugin_BeforeCallback(t *testing.T) {
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	tx := newTracedGorm(t).WithContext(context.Background())

	plugin.beforeCallback(tx)

	start, ok := tx.Statement.Context.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok, "start time should be stamped into the statement context")
	assert.WithinDuration(t, time.Now(), start, time.Second)
}

func TestDBTracingPlugin_AfterCallback(t *testing.T) {
	newPlugin := func(thresh time.Duration) *DBTracingPlugin {
		return NewDBTracingPlugin(DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: thresh,
		}, zap.NewNop())
	}

	t.Run("annotates rows affected and table", func(t *testing.T) {
		ctx, finish := newRecordedSpan(t)
		tx := newTracedGorm(t).WithContext(ctx)
		tx.Statement.RowsAffected = 3
		tx.Statement.Table = "customers"

		newPlugin(time.Second).afterCallback(tx)

		span := finish()
		rows, ok := spanAttr(span, "db.rows_affected")
		require.True(t, ok)
		assert.Equal(t, int64(3), rows.AsInt64())

		table, ok := spanAttr(span, "db.sql.table")
		require.True(t, ok)
		assert.Equal(t, "customers", table.AsString())
	})

	t.Run("adds a slow query event past the threshold", func(t *testing.T) {
		ctx, finish := newRecordedSpan(t)
		ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-50*time.Millisecond))
		tx := newTracedGorm(t).WithContext(ctx)
		tx.Statement.Table = "customer_merges"

		newPlugin(10 * time.Millisecond).afterCallback(tx)

		span := finish()
		slow, ok := spanAttr(span, "db.slow_query")
		require.True(t, ok)
		assert.True(t, slow.AsBool())

		var foundEvent bool
		for _, ev := range span.Events() {
			if ev.Name == "slow_query_warning" {
				foundEvent = true
			}
		}
		assert.True(t, foundEvent, "slow_query_warning event should be attached")
	})

	t.Run("fast queries carry no slow query marker", func(t *testing.T) {
		ctx, finish := newRecordedSpan(t)
		ctx = context.WithValue(ctx, queryStartTimeKey, time.Now())
		tx := newTracedGorm(t).WithContext(ctx)

		newPlugin(time.Second).afterCallback(tx)

		_, ok := spanAttr(finish(), "db.slow_query")
		assert.False(t, ok)
	})

	t.Run("marks the span on query errors", func(t *testing.T) {
		ctx, finish := newRecordedSpan(t)
		tx := newTracedGorm(t).WithContext(ctx)
		tx.Error = assert.AnError

		newPlugin(time.Second).afterCallback(tx)

		span := finish()
		assert.Equal(t, codes.Error, span.Status().Code)
		assert.NotEmpty(t, span.Events(), "error should be recorded as a span event")
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		ctx, finish := newRecordedSpan(t)
		tx := newTracedGorm(t).WithContext(ctx)
		tx.Error = gorm.ErrRecordNotFound

		newPlugin(time.Second).afterCallback(tx)

		assert.Equal(t, codes.Unset, finish().Status().Code)
	})

	t.Run("no-op without a recording span", func(t *testing.T) {
		tx := newTracedGorm(t).WithContext(context.Background())

		assert.NotPanics(t, func() {
			newPlugin(time.Second).afterCallback(tx)
		})
	})

	t.Run("no-op with a nil statement context", func(t *testing.T) {
		tx := newTracedGorm(t).Session(&gorm.Session{})
		tx.Statement.Context = nil

		assert.NotPanics(t, func() {
			newPlugin(time.Second).afterCallback(tx)
		})
	})
}

func TestDBTracingConfig_SecurityDefaults(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	// Bind parameters stay out of spans unless explicitly opted in.
	assert.True(t, cfg.WithoutVariables)
	assert.False(t, cfg.LogFullSQL)
}
