package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "persisted"),
		attribute.String("client_id", "456"),
		attribute.String("payment_type", "invoice"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("outcome"), attrs[0].Key)
	assert.Equal(t, attribute.Key("payment_type"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), "persisted", time.Second)
		m.RecordTransactions(context.Background(), "invoice", 1, 1)
		m.RecordRowsWritten(context.Background(), "order_charges", 3)
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "signbilling"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), "rejected", 10*time.Millisecond)
		m.RecordRowsWritten(context.Background(), "invoices", 1)
	})
}
