package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordedSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func singleSpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	spans := sr.Ended()
	require.Len(t, spans, 1)
	return spans[0]
}

func attrMap(span sdktrace.ReadOnlySpan) map[string]interface{} {
	m := make(map[string]interface{}, len(span.Attributes()))
	for _, attr := range span.Attributes() {
		m[string(attr.Key)] = attr.Value.AsInterface()
	}
	return m
}

func TestStartSpan(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.create")
	require.NotNil(t, span)
	span.End()

	recorded := singleSpan(t, sr)
	assert.Equal(t, "customer.create", recorded.Name())
	assert.Equal(t, trace.SpanKindInternal, recorded.SpanKind())
}

func TestStartSpan_WithOptions(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.lookup",
		telemetry.WithAttribute(telemetry.SpanAttrDocument, "CC 52998877"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	recorded := singleSpan(t, sr)
	assert.Equal(t, trace.SpanKindClient, recorded.SpanKind())
	assert.Equal(t, "CC 52998877", attrMap(recorded)[telemetry.SpanAttrDocument])
}

func TestStartServiceSpan(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "customer", "merge")
	span.End()

	assert.Equal(t, "customer.merge", singleSpan(t, sr).Name())
}

func TestSetAttributes(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.find_duplicates")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerName, "Ana García",
		telemetry.SpanAttrMatchCount, 3,
		"blacklisted", false,
	)
	span.End()

	attrs := attrMap(singleSpan(t, sr))
	assert.Equal(t, "Ana García", attrs[telemetry.SpanAttrCustomerName])
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrMatchCount])
	assert.Equal(t, false, attrs["blacklisted"])
}

func TestSetAttributes_OddPairs(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.update")
	// trailing key without a value is dropped
	telemetry.SetAttributes(span,
		"segment", "fleet",
		"city", "Bogotá",
		"orphan_key",
	)
	span.End()

	assert.Len(t, singleSpan(t, sr).Attributes(), 2)
}

func TestSetAttributes_NonStringKey(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.update")
	telemetry.SetAttributes(span,
		"segment", "fleet",
		123, "skipped",
	)
	span.End()

	assert.Len(t, singleSpan(t, sr).Attributes(), 1)
}

func TestSetAttribute_StringerUsesStringForm(t *testing.T) {
	sr := recordedSpans(t)

	customerID := uuid.New()
	_, span := telemetry.StartSpan(context.Background(), "customer.get")
	telemetry.SetAttribute(span, telemetry.SpanAttrCustomerID, customerID)
	span.End()

	attrs := attrMap(singleSpan(t, sr))
	assert.Equal(t, customerID.String(), attrs[telemetry.SpanAttrCustomerID])
}

func TestAttributeTypeCoverage(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.report")
	telemetry.SetAttributes(span,
		"string", "value",
		"int", 42,
		"int64", int64(100),
		"float64", 0.95,
		"bool", true,
		"string_slice", []string{"CC", "NIT"},
		"int_slice", []int{1, 2, 3},
		"int64_slice", []int64{10, 20},
		"float64_slice", []float64{0.7, 0.9},
		"bool_slice", []bool{true, false},
	)
	span.End()

	assert.GreaterOrEqual(t, len(singleSpan(t, sr).Attributes()), 10)
}

func TestRecordError(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.merge")
	telemetry.RecordError(span, errors.New("source and destination are the same customer"))
	span.End()

	recorded := singleSpan(t, sr)
	assert.Equal(t, codes.Error, recorded.Status().Code)
	assert.Equal(t, "source and destination are the same customer", recorded.Status().Description)

	events := recorded.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "exception", events[0].Name)
}

func TestRecordError_NilError(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.merge")
	telemetry.RecordError(span, nil)
	span.End()

	assert.NotEqual(t, codes.Error, singleSpan(t, sr).Status().Code)
}

func TestSetOK(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.merge")
	telemetry.SetOK(span)
	span.End()

	assert.Equal(t, codes.Ok, singleSpan(t, sr).Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := recordedSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "customer.find_duplicates")
	telemetry.AddEvent(span, "duplicates_scored",
		telemetry.SpanAttrMatchCount, 2,
		telemetry.SpanAttrMatchScore, 0.85,
	)
	span.End()

	events := singleSpan(t, sr).Events()
	require.Len(t, events, 1)
	assert.Equal(t, "duplicates_scored", events[0].Name)

	eventAttrs := make(map[string]interface{}, len(events[0].Attributes))
	for _, attr := range events[0].Attributes {
		eventAttrs[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, int64(2), eventAttrs[telemetry.SpanAttrMatchCount])
	assert.Equal(t, 0.85, eventAttrs[telemetry.SpanAttrMatchScore])
}

func TestNilSpanHelpersDoNotPanic(t *testing.T) {
	telemetry.RecordError(nil, errors.New("boom"))
	telemetry.SetAttributes(nil, "key", "value")
	telemetry.SetAttribute(nil, "key", "value")
	telemetry.SetOK(nil)
	telemetry.AddEvent(nil, "ignored", "key", "value")
}

func TestNestedSpans_ShareTrace(t *testing.T) {
	sr := recordedSpans(t)

	ctx, parent := telemetry.StartSpan(context.Background(), "customer.merge")
	_, child := telemetry.StartSpan(ctx, "customer.merge.transfer_contacts")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	var parentSpan, childSpan sdktrace.ReadOnlySpan
	for _, span := range spans {
		switch span.Name() {
		case "customer.merge":
			parentSpan = span
		case "customer.merge.transfer_contacts":
			childSpan = span
		}
	}
	require.NotNil(t, parentSpan)
	require.NotNil(t, childSpan)

	assert.Equal(t, parentSpan.SpanContext().TraceID(), childSpan.SpanContext().TraceID())
	assert.Equal(t, parentSpan.SpanContext().SpanID(), childSpan.Parent().SpanID())
}
