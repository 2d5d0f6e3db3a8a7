package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	serviceVersion = "1.0.0"

	// pipelineShutdownTimeout bounds every provider teardown so a dead
	// collector cannot hang server shutdown.
	pipelineShutdownTimeout = 10 * time.Second
)

// serviceResource identifies the process in every exported signal. Traces,
// metrics, and logs share it so the collector correlates all three under one
// service.
func serviceResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdownPipeline flushes and stops one provider with the bounded timeout.
func shutdownPipeline(ctx context.Context, logger *zap.Logger, name string, stop func(context.Context) error) error {
	logger.Info("Shutting down " + name + "...")

	shutdownCtx, cancel := context.WithTimeout(ctx, pipelineShutdownTimeout)
	defer cancel()

	if err := stop(shutdownCtx); err != nil {
		logger.Error("Error shutting down "+name, zap.Error(err))
		return fmt.Errorf("failed to shutdown %s: %w", name, err)
	}

	logger.Info(name + " shutdown complete")
	return nil
}
