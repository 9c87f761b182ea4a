package tree

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	IndexStatsName = "xavl/index"
)

// indexStats mirrors the shape of an index into otel instruments.
// The index itself is single threaded, the observable callbacks run on the
// reader's goroutine, so the shape is published through atomics.
type indexStats struct {
	nodes        atomic.Int64
	height       atomic.Int64
	nodeCount    metric.Int64ObservableUpDownCounter
	treeHeight   metric.Int64ObservableGauge
	insertCount  metric.Int64Counter
	replaceCount metric.Int64Counter
	removeCount  metric.Int64Counter
}

func (stats *indexStats) IncreaseInsertCount() {
	if stats == nil {
		return
	}
	stats.insertCount.Add(context.Background(), 1)
}

func (stats *indexStats) IncreaseReplaceCount() {
	if stats == nil {
		return
	}
	stats.replaceCount.Add(context.Background(), 1)
}

func (stats *indexStats) IncreaseRemoveCount() {
	if stats == nil {
		return
	}
	stats.removeCount.Add(context.Background(), 1)
}

func (stats *indexStats) RecordShape(nodes int64, height int) {
	if stats == nil {
		return
	}
	stats.nodes.Store(nodes)
	stats.height.Store(int64(height))
}

func newIndexStats(name string) *indexStats {
	if name == "" {
		name = "default"
	}
	meterName := fmt.Sprintf("%s/%s", IndexStatsName, name)
	stats := &indexStats{
		insertCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"xavl.index.insert.count",
				metric.WithDescription("The number of records linked into the avl index."),
			),
		),
		replaceCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"xavl.index.replace.count",
				metric.WithDescription("The number of records replaced in place by key."),
			),
		),
		removeCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"xavl.index.remove.count",
				metric.WithDescription("The number of records unlinked from the avl index."),
			),
		),
	}
	stats.nodeCount = lo.Must[metric.Int64ObservableUpDownCounter](otel.Meter(meterName).
		Int64ObservableUpDownCounter(
			"xavl.index.node.count",
			metric.WithDescription("The number of nodes in the avl index."),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(stats.nodes.Load())
				return nil
			}),
		),
	)
	stats.treeHeight = lo.Must[metric.Int64ObservableGauge](otel.Meter(meterName).
		Int64ObservableGauge(
			"xavl.index.height",
			metric.WithDescription("The height of the avl index, bounded by 1.44*log2(n+2)."),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(stats.height.Load())
				return nil
			}),
		),
	)
	return stats
}
