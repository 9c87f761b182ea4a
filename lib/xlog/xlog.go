package xlog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xavl/lib/infra"
)

var printBanner = sync.Once{}

// xLogger is wrapper logger of Uber zap logger.
type xLogger struct {
	logger              atomic.Pointer[zap.Logger]
	ctxFields           map[string]string // read only after construction
	ctxKeys             []string
	dynamicLevelEnabler zap.AtomicLevel
	bannerWS            zapcore.WriteSyncer
	encoder             LogEncoderType
}

func (l *xLogger) zap() *zap.Logger {
	return l.logger.Load()
}

// IncreaseLogLevel we can increase or decrease the log level concurrently.
func (l *xLogger) IncreaseLogLevel(level zapcore.Level) {
	l.dynamicLevelEnabler.SetLevel(level)
}

func (l *xLogger) Sync() error {
	return l.logger.Load().Sync()
}

func (l *xLogger) Level() string {
	return l.dynamicLevelEnabler.Level().String()
}

func (l *xLogger) Banner(banner Banner) {
	if banner == nil {
		return
	}
	printBanner.Do(func() {
		var enc zapcore.Encoder
		core := zapcore.EncoderConfig{
			MessageKey:    "banner", // Required, but the plain text will be ignored.
			LevelKey:      coreKeyIgnored,
			TimeKey:       coreKeyIgnored,
			CallerKey:     coreKeyIgnored,
			StacktraceKey: coreKeyIgnored,
		}
		switch l.encoder {
		case PlainText:
			enc = zapcore.NewConsoleEncoder(core)
		default:
			enc = zapcore.NewJSONEncoder(core)
		}
		ws := l.bannerWS
		if ws == nil {
			ws = getOutWriter(nil)
		}
		_l := l.logger.Load().WithOptions(
			zap.WrapCore(func(zapcore.Core) zapcore.Core {
				return zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(zapcore.InfoLevel))
			}),
		)
		switch l.encoder {
		case PlainText:
			_l.Info(banner.PlainText())
		default:
			_l.Info(banner.JSON())
		}
	})
}

func (l *xLogger) Debug(msg string, fields ...zap.Field) {
	l.logger.Load().Debug(msg, fields...)
}

func (l *xLogger) Info(msg string, fields ...zap.Field) {
	l.logger.Load().Info(msg, fields...)
}

func (l *xLogger) Warn(msg string, fields ...zap.Field) {
	l.logger.Load().Warn(msg, fields...)
}

func (l *xLogger) Error(err error, msg string, fields ...zap.Field) {
	newFields := make([]zap.Field, 0, len(fields)+1)
	if err != nil {
		newFields = append(newFields, zap.String("error", err.Error()))
	}
	newFields = append(newFields, fields...)
	l.logger.Load().Error(msg, newFields...)
}

func errorStackFields(err error, fields []zap.Field) []zap.Field {
	newFields := make([]zap.Field, 0, len(fields)+1)
	if es, ok := err.(infra.ErrorStack); ok && es != nil {
		newFields = append(newFields, zap.Inline(es))
	} else if err != nil {
		newFields = append(newFields, zap.String("error", err.Error()))
	}
	return append(newFields, fields...)
}

func (l *xLogger) ErrorStack(err error, msg string, fields ...zap.Field) {
	l.logger.Load().Error(msg, errorStackFields(err, fields)...)
}

func (l *xLogger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	newFields := l.extractFieldsFromContext(ctx)
	newFields = append(newFields, fields...)
	l.logger.Load().Debug(msg, newFields...)
}

func (l *xLogger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	newFields := l.extractFieldsFromContext(ctx)
	newFields = append(newFields, fields...)
	l.logger.Load().Info(msg, newFields...)
}

func (l *xLogger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	newFields := l.extractFieldsFromContext(ctx)
	newFields = append(newFields, fields...)
	l.logger.Load().Warn(msg, newFields...)
}

func (l *xLogger) ErrorContext(ctx context.Context, err error, msg string, fields ...zap.Field) {
	newFields := l.extractFieldsFromContext(ctx)
	if err != nil {
		newFields = append(newFields, zap.String("error", err.Error()))
	}
	newFields = append(newFields, fields...)
	l.logger.Load().Error(msg, newFields...)
}

func (l *xLogger) ErrorStackContext(ctx context.Context, err error, msg string, fields ...zap.Field) {
	newFields := l.extractFieldsFromContext(ctx)
	newFields = append(newFields, errorStackFields(err, fields)...)
	l.logger.Load().Error(msg, newFields...)
}

func (l *xLogger) Logf(lvl zapcore.Level, format string, args ...any) {
	l.logger.Load().Log(lvl, fmt.Sprintf(format, args...))
}

func (l *xLogger) ErrorStackf(err error, format string, args ...any) {
	l.logger.Load().Log(zap.ErrorLevel, fmt.Sprintf(format, args...), errorStackFields(err, nil)...)
}

func (l *xLogger) extractFieldsFromContext(ctx context.Context) []zap.Field {
	if ctx == nil || len(l.ctxKeys) == 0 {
		return []zap.Field{}
	}

	newFields := make([]zap.Field, 0, len(l.ctxKeys))
	for _, key := range l.ctxKeys {
		v := ctx.Value(ContextKey(key))
		mapTo := l.ctxFields[key]
		if v == nil && mapTo != ContextKeyMapToOmitempty {
			newFields = append(newFields, zap.String(mapTo, "nil"))
		} else if v != nil && mapTo != ContextKeyMapToOmitempty {
			newFields = append(newFields, zap.Any(mapTo, v))
		}
	}
	return newFields
}

// ContextKey is the key type of the context values the logger extracts.
type ContextKey string

type loggerCfg struct {
	ctxFields        map[string]string
	encoderType      *LogEncoderType
	lvlEncoder       zapcore.LevelEncoder
	tsEncoder        zapcore.TimeEncoder
	level            *zapcore.Level
	writers          []io.Writer
	coreConstructors []XLogCoreConstructor
	cores            []XLogCore
}

func (cfg *loggerCfg) apply(l *xLogger) {
	if cfg.encoderType != nil {
		l.encoder = *cfg.encoderType
	} else {
		l.encoder = JSON
	}

	if cfg.level != nil {
		l.dynamicLevelEnabler = zap.NewAtomicLevelAt(*cfg.level)
	} else {
		l.dynamicLevelEnabler = zap.NewAtomicLevelAt(getLogLevelOrDefault(os.Getenv("XLOG_LVL")))
	}

	l.ctxFields = cfg.ctxFields
	l.ctxKeys = make([]string, 0, len(cfg.ctxFields))
	for key := range cfg.ctxFields {
		l.ctxKeys = append(l.ctxKeys, key)
	}
	sort.Strings(l.ctxKeys)

	if cfg.lvlEncoder == nil {
		cfg.lvlEncoder = zapcore.CapitalLevelEncoder
	}

	if cfg.tsEncoder == nil {
		cfg.tsEncoder = zapcore.ISO8601TimeEncoder
	}

	if len(cfg.coreConstructors) == 0 {
		cfg.coreConstructors = []XLogCoreConstructor{
			newConsoleCore(nil),
		}
	}

	cfg.cores = make([]XLogCore, 0, len(cfg.coreConstructors))
	for _, cc := range cfg.coreConstructors {
		cfg.cores = append(cfg.cores, cc(
			l.dynamicLevelEnabler,
			l.encoder,
			cfg.lvlEncoder,
			cfg.tsEncoder,
		))
	}
	l.bannerWS = cfg.cores[0].writeSyncer()
}

type XLoggerOption func(*loggerCfg) error

func NewXLogger(opts ...XLoggerOption) XLogger {
	cfg := &loggerCfg{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			panic(err)
		}
	}
	xl := &xLogger{}
	cfg.apply(xl)

	// Disable zap logger error stack.
	l := zap.New(
		XLogTeeCore(cfg.cores...),
		zap.AddCallerSkip(1), // Use caller filename as service
		zap.AddCaller(),
	)
	xl.logger.Store(l)
	return xl
}

// newChildXLogger names a child logger whose core is rebuilt for the
// component layout. The level is still driven by the parent.
func newChildXLogger(parent XLogger, name string) *xLogger {
	l := &xLogger{}
	if p, ok := parent.(*xLogger); ok {
		l.encoder = p.encoder
		l.bannerWS = p.bannerWS
		l.dynamicLevelEnabler = p.dynamicLevelEnabler
	}
	l.logger.Store(parent.zap().
		Named(name).
		WithOptions(zap.WrapCore(wrapComponentCore)),
	)
	return l
}

func WithXLoggerStdOutWriter() XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.coreConstructors = append(cfg.coreConstructors, newConsoleCore(nil))
		return nil
	}
}

// WithXLoggerWriter adds a core writing to w, a report file or a test
// buffer for instance.
func WithXLoggerWriter(w io.Writer) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if w == nil {
			return infra.NewErrorStack("[XLogger] nil writer")
		}
		cfg.coreConstructors = append(cfg.coreConstructors, newConsoleCore(w))
		return nil
	}
}

func WithXLoggerEncoder(logEnc LogEncoderType) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if logEnc >= _encMax {
			return infra.NewErrorStack("unknown xlogger encoder")
		}
		cfg.encoderType = &logEnc
		return nil
	}
}

func WithXLoggerLevel(lvl LogLevel) XLoggerOption {
	return func(cfg *loggerCfg) error {
		_lvl := lvl.zapLevel()
		cfg.level = &_lvl
		return nil
	}
}

func WithXLoggerLevelEncoder(lvlEnc zapcore.LevelEncoder) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if lvlEnc == nil {
			lvlEnc = zapcore.CapitalColorLevelEncoder
		}
		cfg.lvlEncoder = lvlEnc
		return nil
	}
}

func WithXLoggerTimeEncoder(tsEnc zapcore.TimeEncoder) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if tsEnc == nil {
			tsEnc = zapcore.ISO8601TimeEncoder
		}
		cfg.tsEncoder = tsEnc
		return nil
	}
}

// WithXLoggerContextFieldExtract logs the context value under ContextKey(field)
// as mapTo, or as field itself. ContextKeyMapToOmitempty drops it.
func WithXLoggerContextFieldExtract(field string, mapTo ...string) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if len(field) == 0 {
			return nil
		}
		if cfg.ctxFields == nil {
			cfg.ctxFields = make(map[string]string, 8)
		}
		if len(mapTo) == 0 || mapTo[0] == ContextKeyMapToItself {
			mapTo = []string{field}
		}
		cfg.ctxFields[field] = mapTo[0]
		return nil
	}
}

func getLogLevelOrDefault(level string) zapcore.Level {
	if len(strings.TrimSpace(level)) == 0 {
		return zapcore.DebugLevel
	}
	return LogLevel(strings.ToUpper(level)).zapLevel()
}

// ParseLogLevel accepts the level names case insensitively.
func ParseLogLevel(level string) (LogLevel, error) {
	switch lvl := LogLevel(strings.ToUpper(strings.TrimSpace(level))); lvl {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return lvl, nil
	default:
	}
	return LogLevelDebug, infra.NewErrorStack("[XLogger] unknown log level " + level)
}
