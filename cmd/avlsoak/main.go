package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xavl/lib/xlog"
	"github.com/benz9527/xavl/observability"
	"github.com/benz9527/xavl/soak"
)

const exitSoakFailed = 1

type soakBanner struct{}

func (soakBanner) JSON() string {
	return `{"app":"avlsoak","about":"arena backed avl tree soak runner"}`
}

func (soakBanner) PlainText() string {
	return "avlsoak - arena backed avl tree soak runner"
}

func provideLogger(f *cliFlags) (xlog.XLogger, error) {
	opts, err := f.loggerOptions()
	if err != nil {
		return nil, err
	}
	logger := xlog.NewXLogger(opts...)
	logger.Banner(soakBanner{})
	return logger, nil
}

func setMaxProcs(lc fx.Lifecycle, logger xlog.XLogger) error {
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Logf(zapcore.InfoLevel, format, args...)
	}))
	if err != nil {
		return err
	}
	lc.Append(fx.StopHook(undo))
	return nil
}

// provideMetrics installs the global meter provider before any soak meter
// is created. The prometheus exporter is served on --metrics-addr.
func provideMetrics(lc fx.Lifecycle, f *cliFlags, logger xlog.XLogger) (observability.ShutdownFunc, error) {
	typ := observability.MetricsExporter(f.metrics)
	shutdown, err := observability.InitMetricsExporter(typ, os.Stdout, f.metricsInterval)
	if err != nil {
		return nil, err
	}
	if typ != observability.NoneExporter {
		if err = observability.InitAppStats("avlsoak"); err != nil {
			return nil, err
		}
	}

	var srv *http.Server
	if typ == observability.PrometheusExporter {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{
			Addr:              f.metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if srv == nil {
				return nil
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error(err, "metrics endpoint stopped", zap.String("addr", srv.Addr))
				}
			}()
			logger.Info("metrics endpoint listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var err error
			if srv != nil {
				err = srv.Shutdown(ctx)
			}
			return multierr.Append(err, shutdown(ctx))
		},
	})
	return shutdown, nil
}

func provideRunner(lc fx.Lifecycle, f *cliFlags, logger xlog.XLogger, _ observability.ShutdownFunc) (*soak.Runner, error) {
	cfg, err := f.soakConfig()
	if err != nil {
		return nil, err
	}
	runner, err := soak.NewRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(runner.Close))
	return runner, nil
}

// runSoak starts the run in the background and shuts the app down with a
// non-zero exit code once it fails. Stopping the app early cancels it.
func runSoak(lc fx.Lifecycle, sd fx.Shutdowner, f *cliFlags, runner *soak.Runner, logger xlog.XLogger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				code := 0
				report, err := runner.Run(ctx)
				if err != nil {
					code = exitSoakFailed
				}
				if report != nil && f.reportDir != "" {
					name, werr := soak.WriteReport(f.reportDir, report)
					if werr != nil {
						logger.ErrorStack(werr, "write soak report failed", zap.String("dir", f.reportDir))
						code = exitSoakFailed
					} else {
						logger.Info("soak report written", zap.String("dir", f.reportDir), zap.String("file", name))
					}
				}
				if err := sd.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Error(err, "shutdown failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func appOptions(f *cliFlags) fx.Option {
	return fx.Options(
		fx.Supply(f),
		fx.Provide(
			provideLogger,
			provideMetrics,
			provideRunner,
		),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Invoke(setMaxProcs, runSoak),
	)
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fx.New(appOptions(f)).Run()
}
