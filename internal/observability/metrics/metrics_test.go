package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("charge_model", "graduated"),
		attribute.String("charge_id", "1234"),
		attribute.String("group_key", "region=EU"),
		attribute.String("currency", "USD"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "charge_model" && attrs[1].Key != "charge_model" {
		t.Fatalf("expected charge_model to be retained")
	}
	if attrs[0].Key != "currency" && attrs[1].Key != "currency" {
		t.Fatalf("expected currency to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordFee(context.Background(), "standard", "USD", 100)
	m.RecordFeeError(context.Background(), "standard", "negative_usage")
	m.RecordGroups(context.Background(), "standard", 3)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordFee(context.Background(), "package", "EUR", 10000)
	m.RecordGroups(context.Background(), "package", 2)
}
