package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// InitTelemetry initializes the OpenTelemetry metric provider and returns a
// shutdown function.
func (app *Application) InitTelemetry() (func(context.Context), error) {
	if app.config.OtelCollectorUrl == "" {
		app.logger.Info("OpenTelemetry collector URL not set, skipping initialization")

		return func(context.Context) {}, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("cinema-booking-engine"),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(app.config.Env),
		),
	)
	if err != nil {
		return nil, errors.New("failed to create otel resource")
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(app.config.OtelCollectorUrl),
	)
	if err != nil {
		return nil, errors.New("failed to create otel metric exporter")
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(15*time.Second))),
	)

	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) {
		err := meterProvider.Shutdown(ctx)
		if err != nil {
			app.logger.Error("failed to shut down otel meter provider", "error", err)
		}
	}

	return shutdown, nil
}

// metrics bundles the engine's instruments. Instruments are no-ops until the
// global meter provider is configured.
type metrics struct {
	bookingsConfirmed otelmetric.Int64Counter
	seatConflicts     otelmetric.Int64Counter
	lockTimeouts      otelmetric.Int64Counter
	bookingDuration   otelmetric.Float64Histogram
}

func newMetrics() *metrics {
	meter := otel.Meter("cinema-booking-engine")

	bookingsConfirmed, _ := meter.Int64Counter("bookings_confirmed_total")
	seatConflicts, _ := meter.Int64Counter("booking_seat_conflicts_total")
	lockTimeouts, _ := meter.Int64Counter("booking_lock_timeouts_total")
	bookingDuration, _ := meter.Float64Histogram("booking_duration_seconds")

	return &metrics{
		bookingsConfirmed: bookingsConfirmed,
		seatConflicts:     seatConflicts,
		lockTimeouts:      lockTimeouts,
		bookingDuration:   bookingDuration,
	}
}

func (m *metrics) addBookingConfirmed(ctx context.Context) {
	m.bookingsConfirmed.Add(ctx, 1)
}

func (m *metrics) addSeatConflict(ctx context.Context) {
	m.seatConflicts.Add(ctx, 1)
}

func (m *metrics) addLockTimeout(ctx context.Context) {
	m.lockTimeouts.Add(ctx, 1)
}

func (m *metrics) observeBookingDuration(ctx context.Context, d time.Duration) {
	m.bookingDuration.Record(ctx, d.Seconds())
}
