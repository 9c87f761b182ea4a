package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	AppStatsName = "xavl/app"
)

var (
	once    sync.Once
	appStat *appStats
)

type appStats struct {
	goroutines metric.Int64ObservableUpDownCounter
	processes  metric.Int64ObservableUpDownCounter
}

func appStatsMeterName(name string) string {
	builder := strings.Builder{}
	builder.WriteString(AppStatsName)
	builder.WriteString("/")
	if name = strings.TrimSpace(name); len(name) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitAppStats registers the go runtime metrics and the goroutine and
// GOMAXPROCS gauges once per process, on the current global meter provider.
func InitAppStats(name string) (err error) {
	once.Do(func() {
		meter := otel.Meter(
			appStatsMeterName(name),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		appStat = &appStats{
			goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"app.core.goroutines",
				metric.WithDescription(`The application goroutines' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.NumGoroutine()))
					return nil
				}),
			)),
			processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"app.core.processes",
				metric.WithDescription(`The application processes' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.GOMAXPROCS(0)))
					return nil
				}),
			)),
		}
		err = otelruntime.Start()
	})
	return err
}
