package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/benz9527/xavl/lib/xlog"
	"github.com/benz9527/xavl/observability"
	"github.com/benz9527/xavl/soak"
)

type cliFlags struct {
	keys            int
	workers         int
	seed            uint64
	kinds           []string
	validateEvery   int
	indexStats      bool
	reportDir       string
	metrics         string
	metricsAddr     string
	metricsInterval time.Duration
	logLevel        string
	logEncoder      string
}

func parseFlags(args []string) (*cliFlags, error) {
	defaults, err := soak.NewConfig()
	if err != nil {
		return nil, err
	}

	f := &cliFlags{}
	fs := pflag.NewFlagSet("avlsoak", pflag.ContinueOnError)
	fs.IntVarP(&f.keys, "keys", "n", defaults.Keys, "keys per workload")
	fs.IntVarP(&f.workers, "workers", "w", defaults.Workers, "concurrent copies of every workload")
	fs.Uint64Var(&f.seed, "seed", defaults.Seed, "PCG seed shared by the workloads")
	fs.StringSliceVarP(&f.kinds, "kinds", "k", []string{"all"}, "workloads: insert-find-remove, foreach, churn, sequential or all")
	fs.IntVar(&f.validateEvery, "validate-every", defaults.ValidateEvery, "mutations between two full tree validations")
	fs.BoolVar(&f.indexStats, "index-stats", false, "export per index otel metrics")
	fs.StringVar(&f.reportDir, "report-dir", "", "directory of the JSON report, empty to skip it")
	fs.StringVar(&f.metrics, "metrics", string(observability.NoneExporter), "metrics exporter: none, console or prometheus")
	fs.StringVar(&f.metricsAddr, "metrics-addr", ":9464", "listen address of the prometheus scrape endpoint")
	fs.DurationVar(&f.metricsInterval, "metrics-interval", 10*time.Second, "console exporter interval")
	fs.StringVar(&f.logLevel, "log-level", string(xlog.LogLevelInfo), "debug, info, warn or error")
	fs.StringVar(&f.logEncoder, "log-encoder", "json", "json or text")
	if err = fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *cliFlags) soakConfig() (*soak.Config, error) {
	kinds, err := soak.ParseKinds(f.kinds)
	if err != nil {
		return nil, err
	}
	opts := []soak.Option{
		soak.WithKeys(f.keys),
		soak.WithWorkers(f.workers),
		soak.WithSeed(f.seed),
		soak.WithKinds(kinds...),
		soak.WithValidateEvery(f.validateEvery),
	}
	if f.indexStats {
		opts = append(opts, soak.WithIndexStats())
	}
	return soak.NewConfig(opts...)
}

func (f *cliFlags) loggerOptions() ([]xlog.XLoggerOption, error) {
	lvl, err := xlog.ParseLogLevel(f.logLevel)
	if err != nil {
		return nil, err
	}
	enc := xlog.JSON
	if f.logEncoder == "text" {
		enc = xlog.PlainText
	}
	return []xlog.XLoggerOption{
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerLevel(lvl),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerContextFieldExtract("runId"),
		xlog.WithXLoggerContextFieldExtract("workload"),
	}, nil
}
