package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xavl/lib/infra"
)

type MetricsExporter string

const (
	NoneExporter       MetricsExporter = "none"
	ConsoleExporter    MetricsExporter = "console"
	PrometheusExporter MetricsExporter = "prometheus"
)

// ShutdownFunc flushes and stops the installed meter provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Serves for test/dev environment.
func NewConsoleMetricsExporter(w io.Writer, interval time.Duration) (ShutdownFunc, error) {
	opts := make([]stdoutmetric.Option, 0, 2)
	if w != nil {
		opts = append(opts, stdoutmetric.WithWriter(w))
	}
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(interval),
	)))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
// The exporter registers into the default prometheus registry, scrape it
// through promhttp.Handler.
func NewPrometheusMetricsExporter() (ShutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// InitMetricsExporter installs the global meter provider by name.
func InitMetricsExporter(typ MetricsExporter, w io.Writer, interval time.Duration) (ShutdownFunc, error) {
	switch typ {
	case ConsoleExporter:
		if interval <= 0 {
			interval = 10 * time.Second
		}
		return NewConsoleMetricsExporter(w, interval)
	case PrometheusExporter:
		return NewPrometheusMetricsExporter()
	case NoneExporter, "":
		return noopShutdown, nil
	default:
	}
	return nil, infra.NewErrorStack("[observability] unknown metrics exporter " + string(typ))
}
