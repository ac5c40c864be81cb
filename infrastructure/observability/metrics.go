package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mneebet/config"
	"mneebet/events"
	"mneebet/models"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

const exportInterval = 30 * time.Second

// MetricsProvider manages OpenTelemetry metrics for the ledger
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	betsCreatedCounter           metric.Int64Counter
	betTransitionsCounter        metric.Int64Counter
	betsLiveGauge                metric.Int64UpDownCounter
	usernamesRegisteredCounter   metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	natsPublishFailuresCounter   metric.Int64Counter
	balanceTransactionsCounter   metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter: OTLP gRPC when an endpoint is configured, stdout otherwise
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	if mp.config.OTelEndpoint == "" {
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")
	} else {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelEndpoint).Info("Using OTLP metric exporter")
	}

	return mp.initWithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval)), true)
}

// InitializeWithReader wires an explicit reader, e.g. a manual reader in tests
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.initWithReader(reader, false)
}

func (mp *MetricsProvider) initWithReader(reader sdkmetric.Reader, global bool) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	if global {
		otel.SetMeterProvider(mp.meterProvider)
	}
	mp.meter = mp.meterProvider.Meter("mneebet")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.betsCreatedCounter, err = mp.meter.Int64Counter(
		BetsCreatedTotal,
		metric.WithDescription("Total number of bets created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bets created counter: %w", err)
	}

	mp.betTransitionsCounter, err = mp.meter.Int64Counter(
		BetTransitionsTotal,
		metric.WithDescription("Total number of bet status transitions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bet transitions counter: %w", err)
	}

	// UpDownCounter for gauge-like behavior
	mp.betsLiveGauge, err = mp.meter.Int64UpDownCounter(
		BetsLive,
		metric.WithDescription("Current number of open and active bets"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create live bets gauge: %w", err)
	}

	mp.usernamesRegisteredCounter, err = mp.meter.Int64Counter(
		UsernamesRegistered,
		metric.WithDescription("Total number of usernames registered"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create usernames counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.natsPublishFailuresCounter, err = mp.meter.Int64Counter(
		NATSPublishFailuresTotal,
		metric.WithDescription("Total number of NATS publish failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS publish failures counter: %w", err)
	}

	mp.balanceTransactionsCounter, err = mp.meter.Int64Counter(
		BalanceTransactionsTotal,
		metric.WithDescription("Total number of balance transactions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance transactions counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Subscribe records metrics for every committed ledger event
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		mp.RecordEvent(event)
	})
}

// RecordEvent updates the instruments an event affects
func (mp *MetricsProvider) RecordEvent(event events.Event) {
	if !mp.isEnabled() {
		return
	}

	ctx := context.Background()
	switch e := event.(type) {
	case events.BetCreatedEvent:
		mp.betsCreatedCounter.Add(ctx, 1)
		mp.betsLiveGauge.Add(ctx, 1, statusAttr(models.BetStatusOpen))
	case events.BetAcceptedEvent:
		mp.betTransitionsCounter.Add(ctx, 1, statusAttr(models.BetStatusActive))
		mp.betsLiveGauge.Add(ctx, -1, statusAttr(models.BetStatusOpen))
		mp.betsLiveGauge.Add(ctx, 1, statusAttr(models.BetStatusActive))
	case events.BetCancelledEvent:
		mp.betTransitionsCounter.Add(ctx, 1, statusAttr(models.BetStatusCancelled))
		mp.betsLiveGauge.Add(ctx, -1, statusAttr(models.BetStatusOpen))
	case events.BetResolvedEvent:
		mp.betTransitionsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelStatus, string(models.BetStatusResolved)),
			attribute.String(LabelWinner, string(e.Winner)),
		))
		mp.betsLiveGauge.Add(ctx, -1, statusAttr(models.BetStatusActive))
	case events.UsernameRegisteredEvent:
		mp.usernamesRegisteredCounter.Add(ctx, 1)
	case events.BalanceChangeEvent:
		mp.balanceTransactionsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelType, string(e.TransactionType)),
		))
	}
}

// RecordNATSMessagePublished records a NATS publish outcome
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string, err error) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelEventType, eventType))
	if err != nil {
		mp.natsPublishFailuresCounter.Add(context.Background(), 1, attrs)
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1, attrs)
}

func statusAttr(status models.BetStatus) metric.AddOption {
	return metric.WithAttributes(attribute.String(LabelStatus, string(status)))
}

// isEnabled reports whether instruments exist; safe on a nil provider
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}
