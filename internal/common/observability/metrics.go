package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records job-level metrics through OpenTelemetry, exported on the Prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	productCount  otelmetric.Int64Histogram
}

// New never fails: without an exporter every Record call is a no-op.
func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"catalog.jobs.processed",
		otelmetric.WithDescription("Number of spreadsheet jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"catalog.jobs.duration",
		otelmetric.WithDescription("Spreadsheet job duration"),
		otelmetric.WithUnit("ms"),
	)
	productCount, _ := meter.Int64Histogram(
		"catalog.jobs.products",
		otelmetric.WithDescription("Products per spreadsheet job"),
	)

	return &Observability{
		meterProvider: provider,
		jobCounter:    jobCounter,
		jobDuration:   jobDuration,
		productCount:  productCount,
	}
}

// RecordJob records one finished job.
func (o *Observability) RecordJob(ctx context.Context, state string, duration time.Duration, products int) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("state", state))
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, attrs)
	}
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if o.productCount != nil {
		o.productCount.Record(ctx, int64(products), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
