package xlog

import (
	"time"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxXLogger routes the fx lifecycle events into an XLogger child named "Fx".
// Hook runs and failures are logged at info/error, the dependency graph
// wiring at debug.
type FxXLogger struct {
	logger XLogger
}

func hookFields(function, caller string, runtime time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("function", function),
		zap.String("caller", caller),
	}
	if runtime > 0 {
		fields = append(fields, zap.Duration("in", runtime))
	}
	return fields
}

func moduleField(module string) zap.Field {
	if module == "" {
		return zap.Skip()
	}
	return zap.String("module", module)
}

func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.logger.Debug("HOOK OnStart", hookFields(e.FunctionName, e.CallerName, 0)...)
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.logger.Error(e.Err, "HOOK OnStart failed", hookFields(e.FunctionName, e.CallerName, e.Runtime)...)
			return
		}
		l.logger.Info("HOOK OnStart done", hookFields(e.FunctionName, e.CallerName, e.Runtime)...)
	case *fxevent.OnStopExecuting:
		l.logger.Debug("HOOK OnStop", hookFields(e.FunctionName, e.CallerName, 0)...)
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.logger.Error(e.Err, "HOOK OnStop failed", hookFields(e.FunctionName, e.CallerName, e.Runtime)...)
			return
		}
		l.logger.Info("HOOK OnStop done", hookFields(e.FunctionName, e.CallerName, e.Runtime)...)
	case *fxevent.Supplied:
		if e.Err != nil {
			l.logger.Error(e.Err, "SUPPLY failed", zap.String("type", e.TypeName), zap.Strings("stacktrace", e.StackTrace))
			return
		}
		l.logger.Debug("SUPPLY", zap.String("type", e.TypeName), moduleField(e.ModuleName))
	case *fxevent.Provided:
		for _, rtype := range e.OutputTypeNames {
			l.logger.Debug("PROVIDE",
				zap.Bool("private", e.Private),
				zap.String("type", rtype),
				zap.String("constructor", e.ConstructorName),
				moduleField(e.ModuleName),
			)
		}
		if e.Err != nil {
			l.logger.Error(e.Err, "PROVIDE failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Replaced:
		for _, rtype := range e.OutputTypeNames {
			l.logger.Debug("REPLACE", zap.String("type", rtype), moduleField(e.ModuleName))
		}
		if e.Err != nil {
			l.logger.Error(e.Err, "REPLACE failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Decorated:
		for _, rtype := range e.OutputTypeNames {
			l.logger.Debug("DECORATE",
				zap.String("type", rtype),
				zap.String("decorator", e.DecoratorName),
				moduleField(e.ModuleName),
			)
		}
		if e.Err != nil {
			l.logger.Error(e.Err, "DECORATE failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Invoking:
		l.logger.Debug("INVOKE", zap.String("function", e.FunctionName), moduleField(e.ModuleName))
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error(e.Err, "INVOKE failed",
				zap.String("function", e.FunctionName),
				zap.String("trace", e.Trace),
				moduleField(e.ModuleName),
			)
		}
	case *fxevent.Stopping:
		l.logger.Info("STOPPING", zap.String("signal", e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error(e.Err, "STOP failed")
		}
	case *fxevent.RollingBack:
		l.logger.Error(e.StartErr, "START failed, rolling back")
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.logger.Error(e.Err, "ROLLBACK failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error(e.Err, "START failed")
			return
		}
		l.logger.Info("RUNNING")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.logger.Error(e.Err, "LOGGER init failed")
			return
		}
		l.logger.Debug("LOGGER initialized", zap.String("constructor", e.ConstructorName))
	default:
	}
}

func NewFxXLogger(logger XLogger) *FxXLogger {
	return &FxXLogger{logger: newChildXLogger(logger, "Fx")}
}
