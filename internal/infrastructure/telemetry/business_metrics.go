package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the CRM system.
// It tracks customer lifecycle activity, merge operations, and duplicate health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	customerCreatedTotal *Counter
	customerMergedTotal  *Counter
	duplicateCheckTotal  *Counter
	duplicateMatchTotal  *Counter

	// Gauge metrics (point-in-time values)
	customersByStatus *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	customerProvider CustomerMetricsProvider
}

// CustomerMetricsProvider provides customer data for periodic metrics collection.
// This interface allows the telemetry layer to query customer state without
// depending on the customer domain directly.
type CustomerMetricsProvider interface {
	// GetCustomerCountByStatus returns customer counts per status for a tenant
	GetCustomerCountByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter            metric.Meter
	Logger           *zap.Logger
	CollectInterval  time.Duration // Default: 5 minutes
	CustomerProvider CustomerMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:            cfg.Meter,
		logger:           logger,
		stopChan:         make(chan struct{}),
		customerProvider: cfg.CustomerProvider,
	}

	// Initialize counter metrics
	var err error

	bm.customerCreatedTotal, err = NewCounter(
		cfg.Meter,
		"crm_customer_created_total",
		"Total number of customers created",
		"{customers}",
	)
	if err != nil {
		return nil, err
	}

	bm.customerMergedTotal, err = NewCounter(
		cfg.Meter,
		"crm_customer_merged_total",
		"Total number of customer merge operations",
		"{merges}",
	)
	if err != nil {
		return nil, err
	}

	bm.duplicateCheckTotal, err = NewCounter(
		cfg.Meter,
		"crm_duplicate_check_total",
		"Total number of duplicate detection runs",
		"{checks}",
	)
	if err != nil {
		return nil, err
	}

	bm.duplicateMatchTotal, err = NewCounter(
		cfg.Meter,
		"crm_duplicate_match_total",
		"Total number of duplicate candidates found",
		"{matches}",
	)
	if err != nil {
		return nil, err
	}

	// Gauge metrics
	bm.customersByStatus, err = NewGauge(
		cfg.Meter,
		"crm_customers_total",
		"Current number of customers per status",
		"{customers}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// MergeOutcome labels the result of a merge attempt for metrics.
type MergeOutcome string

const (
	MergeOutcomeApplied  MergeOutcome = "applied"
	MergeOutcomeReplayed MergeOutcome = "replayed"
	MergeOutcomeRejected MergeOutcome = "rejected"
)

// RecordCustomerCreated records a customer creation event.
// This should be called from the application layer when a customer is created.
func (bm *BusinessMetrics) RecordCustomerCreated(ctx context.Context, tenantID uuid.UUID, customerType string) {
	bm.customerCreatedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrCustomerType.String(customerType),
	)
}

// RecordCustomerMerged records a merge attempt and its outcome.
func (bm *BusinessMetrics) RecordCustomerMerged(ctx context.Context, tenantID uuid.UUID, outcome MergeOutcome) {
	bm.customerMergedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrMergeOutcome.String(string(outcome)),
	)
}

// RecordDuplicateCheck records a duplicate detection run and the number of
// candidates it produced.
func (bm *BusinessMetrics) RecordDuplicateCheck(ctx context.Context, tenantID uuid.UUID, matches int64) {
	bm.duplicateCheckTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
	if matches > 0 {
		bm.duplicateMatchTotal.Add(ctx, matches,
			AttrTenantID.String(tenantID.String()),
		)
	}
}

// RecordCustomerCount records the current customer count for a status.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordCustomerCount(ctx context.Context, tenantID uuid.UUID, status string, count int64) {
	bm.customersByStatus.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
		AttrCustomerStatus.String(status),
	)
}

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects customer metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectCustomerMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectCustomerMetrics(ctx, tenantProvider)
		}
	}
}

// collectCustomerMetrics collects customer gauge metrics for all tenants.
func (bm *BusinessMetrics) collectCustomerMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.customerProvider == nil {
		bm.logger.Debug("No customer provider configured, skipping customer metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantCustomerMetrics(ctx, tenantID)
	}
}

// collectTenantCustomerMetrics collects customer metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantCustomerMetrics(ctx context.Context, tenantID uuid.UUID) {
	countByStatus, err := bm.customerProvider.GetCustomerCountByStatus(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get customer counts for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return
	}

	for status, count := range countByStatus {
		bm.RecordCustomerCount(ctx, tenantID, status, count)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
