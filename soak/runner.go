package soak

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xavl/lib/id"
	"github.com/benz9527/xavl/lib/infra"
	"github.com/benz9527/xavl/lib/xlog"
)

const runIDLength = 21

// Runner drives Workers copies of every configured workload on an ants pool.
// Each copy owns its tree, so workers never share a node.
type Runner struct {
	cfg    *Config
	logger xlog.XLogger
	pool   *ants.Pool
	stats  *soakStats
	runID  id.NanoIDGen
}

func NewRunner(cfg *Config, logger xlog.XLogger) (*Runner, error) {
	if cfg == nil {
		return nil, infra.NewErrorStack("[soak] nil config")
	}
	if logger == nil {
		return nil, infra.NewErrorStack("[soak] nil logger")
	}
	runID, err := id.ClassicNanoID(runIDLength)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(cfg.Workers, ants.WithLogger(xlog.NewAntsXLogger(logger)))
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[soak] create worker pool")
	}
	return &Runner{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		stats:  newSoakStats(),
		runID:  runID,
	}, nil
}

// Run blocks until every workload returns. The error merges every failed
// workload, the report is returned either way.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     r.runID(),
		StartedAt: time.Now(),
		Config:    *r.cfg,
		Results:   make([]Result, len(r.cfg.Kinds)*r.cfg.Workers),
	}
	ctx = context.WithValue(ctx, xlog.ContextKey("runId"), report.RunID)
	r.logger.InfoContext(ctx, "soak started",
		zap.Int("keys", r.cfg.Keys),
		zap.Int("workers", r.cfg.Workers),
		zap.Uint64("seed", r.cfg.Seed),
		zap.Any("kinds", r.cfg.Kinds),
	)

	var wg sync.WaitGroup
	for i, kind := range r.cfg.Kinds {
		for w := 0; w < r.cfg.Workers; w++ {
			slot := i*r.cfg.Workers + w
			wl := &workload{
				kind:          kind,
				worker:        w,
				seed:          r.cfg.Seed,
				stream:        uint64(slot),
				keys:          r.cfg.Keys,
				validateEvery: r.cfg.ValidateEvery,
				indexStats:    r.cfg.IndexStats,
			}
			wg.Add(1)
			err := r.pool.Submit(func() {
				defer wg.Done()
				report.Results[slot] = r.runWorkload(ctx, wl)
			})
			if err != nil {
				wg.Done()
				report.Results[slot] = wl.result(0, err)
			}
		}
	}
	wg.Wait()

	var merr error
	for _, res := range report.Results {
		if res.Failed() {
			merr = multierr.Append(merr, fmt.Errorf("[soak] %s worker %d: %s", res.Kind, res.Worker, res.Error))
		}
	}
	report.Elapsed = time.Since(report.StartedAt)
	report.summarize()
	report.Process = snapshotProcess()

	fields := []zap.Field{
		zap.String("status", report.Status),
		zap.Int64("ops", report.TotalOps),
		zap.Duration("elapsed", report.Elapsed),
		zap.Uint64("rss", report.Process.RSS),
	}
	if merr != nil {
		r.logger.ErrorContext(ctx, merr, "soak finished", fields...)
		return report, merr
	}
	r.logger.InfoContext(ctx, "soak finished", fields...)
	return report, nil
}

func (wl *workload) result(elapsed time.Duration, err error) Result {
	res := Result{
		Kind:      wl.kind,
		Worker:    wl.worker,
		Seed:      wl.seed,
		Stream:    wl.stream,
		Ops:       wl.ops,
		MaxHeight: wl.maxHeight,
		Elapsed:   elapsed,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (r *Runner) runWorkload(ctx context.Context, wl *workload) (res Result) {
	ctx = context.WithValue(ctx, xlog.ContextKey("workload"), fmt.Sprintf("%s/%d", wl.kind, wl.worker))
	start := time.Now()
	r.stats.WorkloadStarted(ctx, wl.kind)
	defer func() {
		if p := recover(); p != nil {
			res = wl.result(time.Since(start), infra.NewErrorStack(fmt.Sprintf("[soak] workload panic: %v", p)))
		}
		r.stats.WorkloadDone(ctx, wl.kind, res.Ops, res.Elapsed, res.Failed())
		if res.Failed() {
			r.logger.WarnContext(ctx, "workload failed",
				zap.String("error", res.Error),
				zap.Uint64("stream", wl.stream),
				zap.Int64("ops", res.Ops),
			)
			return
		}
		r.logger.DebugContext(ctx, "workload done",
			zap.Int64("ops", res.Ops),
			zap.Int("maxHeight", res.MaxHeight),
			zap.Duration("elapsed", res.Elapsed),
		)
	}()

	run, ok := workloads[wl.kind]
	if !ok {
		return wl.result(0, fmt.Errorf("%w: %q", ErrSoakUnknownKind, wl.kind))
	}
	err := run(ctx, wl)
	if err != nil {
		r.logger.ErrorStackContext(ctx, err, "workload broken", zap.Uint64("seed", wl.seed), zap.Uint64("stream", wl.stream))
	}
	return wl.result(time.Since(start), err)
}

func (r *Runner) Close() {
	r.pool.Release()
}
