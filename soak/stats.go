package soak

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	SoakStatsName = "xavl/soak"
)

type soakStats struct {
	opsCount      metric.Int64Counter
	failureCount  metric.Int64Counter
	duration      metric.Float64Histogram
	workloadCount metric.Int64UpDownCounter
}

func kindAttr(kind Kind) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", string(kind)))
}

func (stats *soakStats) WorkloadStarted(ctx context.Context, kind Kind) {
	if stats == nil {
		return
	}
	stats.workloadCount.Add(ctx, 1, kindAttr(kind))
}

func (stats *soakStats) WorkloadDone(ctx context.Context, kind Kind, ops int64, elapsed time.Duration, failed bool) {
	if stats == nil {
		return
	}
	stats.workloadCount.Add(ctx, -1, kindAttr(kind))
	stats.opsCount.Add(ctx, ops, kindAttr(kind))
	stats.duration.Record(ctx, elapsed.Seconds(), kindAttr(kind))
	if failed {
		stats.failureCount.Add(ctx, 1, kindAttr(kind))
	}
}

func newSoakStats() *soakStats {
	meter := otel.Meter(SoakStatsName)
	return &soakStats{
		opsCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xavl.soak.ops.count",
			metric.WithDescription("The number of tree mutations run by the soak workloads."),
		)),
		failureCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xavl.soak.failure.count",
			metric.WithDescription("The number of failed soak workloads."),
		)),
		duration: lo.Must[metric.Float64Histogram](meter.Float64Histogram(
			"xavl.soak.workload.duration",
			metric.WithDescription("The wall time of a soak workload."),
			metric.WithUnit("s"),
		)),
		workloadCount: lo.Must[metric.Int64UpDownCounter](meter.Int64UpDownCounter(
			"xavl.soak.workload.running",
			metric.WithDescription("The number of soak workloads in flight."),
		)),
	}
}
