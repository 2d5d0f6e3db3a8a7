package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database span instrumentation.
type DBTracingConfig struct {
	Enabled          bool
	LogFullSQL       bool          // include SQL text with parameters in spans, dev only
	SlowQueryThresh  time.Duration // queries above this get a slow_query_warning event
	DBSystem         string        // default "postgresql"
	WithoutVariables bool          // strip bind parameters from recorded SQL
}

// DefaultDBTracingConfig returns tracing defaults: disabled, parameters
// stripped, 200ms slow query threshold.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin layers slow query detection and error marking on top of the
// otelgorm instrumentation.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm installs the otelgorm plugin plus the timing callbacks on
// the GORM instance. A no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// registerTimingCallbacks hooks every GORM operation with a before callback
// that stamps the start time and an after callback that inspects the span.
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	registrations := []struct {
		name string
		reg  func(string, func(*gorm.DB)) error
		fn   func(*gorm.DB)
	}{
		{"otel_timing:before_create", db.Callback().Create().Before("gorm:create").Register, p.beforeCallback},
		{"otel_timing:before_query", db.Callback().Query().Before("gorm:query").Register, p.beforeCallback},
		{"otel_timing:before_update", db.Callback().Update().Before("gorm:update").Register, p.beforeCallback},
		{"otel_timing:before_delete", db.Callback().Delete().Before("gorm:delete").Register, p.beforeCallback},
		{"otel_timing:before_row", db.Callback().Row().Before("gorm:row").Register, p.beforeCallback},
		{"otel_timing:before_raw", db.Callback().Raw().Before("gorm:raw").Register, p.beforeCallback},

		{"otel_timing:after_create", db.Callback().Create().After("gorm:create").Register, p.afterCallback},
		{"otel_timing:after_query", db.Callback().Query().After("gorm:query").Register, p.afterCallback},
		{"otel_timing:after_update", db.Callback().Update().After("gorm:update").Register, p.afterCallback},
		{"otel_timing:after_delete", db.Callback().Delete().After("gorm:delete").Register, p.afterCallback},
		{"otel_timing:after_row", db.Callback().Row().After("gorm:row").Register, p.afterCallback},
		{"otel_timing:after_raw", db.Callback().Raw().After("gorm:raw").Register, p.afterCallback},
	}

	for _, r := range registrations {
		if err := r.reg(r.name, r.fn); err != nil {
			return err
		}
	}

	return nil
}

// beforeCallback stamps the query start time into the statement context.
func (p *DBTracingPlugin) beforeCallback(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// afterCallback annotates the active span with rows affected, the table
// name, errors other than record-not-found, and a slow query event when the
// elapsed time crosses the threshold.
func (p *DBTracingPlugin) afterCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(startTime)
	if elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"
