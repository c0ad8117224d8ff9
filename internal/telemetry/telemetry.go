// Package telemetry wires OpenTelemetry metrics and tracing for the server.
//
// Metrics are exported through the OpenTelemetry Prometheus exporter into a private
// registry served at /metrics. Spans are created for every request so trace ids can be
// attached to logs; no span exporter is configured.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName scopes every meter and tracer created here.
const InstrumentationName = "github.com/studytrackapp/studytrack-server"

// Config controls telemetry behavior.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// Provider owns the meter and tracer providers and the scrape handler.
type Provider struct {
	Metrics *Metrics

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	handler        http.Handler
}

// New builds a Provider. A disabled config yields no-op instruments and no scrape handler.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		metrics, err := NewMetrics(noop.NewMeterProvider().Meter(InstrumentationName))
		if err != nil {
			return nil, err
		}
		return &Provider{
			Metrics: metrics,
			tracer:  tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		}, nil
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	metrics, err := NewMetrics(mp.Meter(InstrumentationName))
	if err != nil {
		return nil, err
	}

	return &Provider{
		Metrics:        metrics,
		meterProvider:  mp,
		tracerProvider: tp,
		tracer:         tp.Tracer(InstrumentationName),
		handler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, nil
}

// MetricsHandler returns the /metrics handler, or nil when telemetry is disabled.
func (p *Provider) MetricsHandler() http.Handler {
	return p.handler
}

// Tracer returns the request tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Meter returns a meter from the active provider.
func (p *Provider) Meter() metric.Meter {
	if p.meterProvider == nil {
		return noop.NewMeterProvider().Meter(InstrumentationName)
	}
	return p.meterProvider.Meter(InstrumentationName)
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown() error {
	ctx := context.Background()
	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
