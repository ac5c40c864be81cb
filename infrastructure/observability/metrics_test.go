package observability

import (
	"context"
	"testing"

	"mneebet/config"
	"mneebet/events"
	"mneebet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

func newTestProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(config.NewTestConfig())
	require.NoError(t, mp.InitializeWithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

// sumOf adds up every data point of an int64 sum instrument
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestMetricsProvider_RecordsLifecycle(t *testing.T) {
	mp, reader := newTestProvider(t)

	mp.RecordEvent(events.BetCreatedEvent{BetID: 0})
	mp.RecordEvent(events.BetCreatedEvent{BetID: 1})
	mp.RecordEvent(events.BetAcceptedEvent{BetID: 0})
	mp.RecordEvent(events.BetCancelledEvent{BetID: 1})
	mp.RecordEvent(events.BetResolvedEvent{BetID: 0, Winner: models.WinnerCreator})
	mp.RecordEvent(events.UsernameRegisteredEvent{Username: "alice"})
	mp.RecordEvent(events.BalanceChangeEvent{TransactionType: models.TransactionTypeMint})

	assert.Equal(t, int64(2), sumOf(t, reader, BetsCreatedTotal))
	assert.Equal(t, int64(3), sumOf(t, reader, BetTransitionsTotal))
	assert.Equal(t, int64(0), sumOf(t, reader, BetsLive))
	assert.Equal(t, int64(1), sumOf(t, reader, UsernamesRegistered))
	assert.Equal(t, int64(1), sumOf(t, reader, BalanceTransactionsTotal))
}

func TestMetricsProvider_NATSOutcomes(t *testing.T) {
	mp, reader := newTestProvider(t)

	mp.RecordNATSMessagePublished("bet_created", nil)
	mp.RecordNATSMessagePublished("bet_created", assert.AnError)

	assert.Equal(t, int64(1), sumOf(t, reader, NATSMessagesPublishedTotal))
	assert.Equal(t, int64(1), sumOf(t, reader, NATSPublishFailuresTotal))
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	var nilProvider *MetricsProvider
	assert.NotPanics(t, func() {
		nilProvider.RecordEvent(events.BetCreatedEvent{})
		nilProvider.RecordNATSMessagePublished("bet_created", nil)
	})

	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.NotPanics(t, func() { mp.RecordEvent(events.BetCreatedEvent{}) })
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_ResourceCarriesServiceName(t *testing.T) {
	mp, reader := newTestProvider(t)
	mp.RecordEvent(events.BetCreatedEvent{BetID: 0})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	require.NotNil(t, rm.Resource)
	assert.Equal(t, semconv.SchemaURL, rm.Resource.SchemaURL())
	name, ok := rm.Resource.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "mneebet-test", name.AsString())
}

func TestMetricsProvider_InitializeWithConsoleExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelEndpoint = ""

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.NotPanics(t, func() { mp.RecordEvent(events.BetCreatedEvent{}) })
	assert.NoError(t, mp.Shutdown(context.Background()))
}
