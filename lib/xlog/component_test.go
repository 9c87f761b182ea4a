package xlog

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"
)

type lockedBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func TestAntsXLogger_ParentLogLevelChanged(t *testing.T) {
	var nilLogger *AntsXLogger
	nilLogger.Printf("test %d", 123)

	buf := &lockedBuffer{}
	parent := NewXLogger(WithXLoggerWriter(buf), WithXLoggerLevel(LogLevelDebug))
	logger := NewAntsXLogger(parent)

	parent.IncreaseLogLevel(zapcore.FatalLevel)
	logger.Printf("hidden %d", 1)
	require.Empty(t, buf.String())

	parent.IncreaseLogLevel(zapcore.DebugLevel)
	logger.Printf("shown %d", 2)
	lines := decodeLines(t, &buf.buf)
	require.Len(t, lines, 1)
	require.Equal(t, "shown 2", lines[0]["msg"])
	require.Equal(t, "Ants", lines[0]["component"])
	require.NotContains(t, lines[0], "callAt")
}

func TestAntsXLogger_AntsPool(t *testing.T) {
	buf := &lockedBuffer{}
	parent := NewXLogger(WithXLoggerWriter(buf), WithXLoggerWriter(&lockedBuffer{}))
	logger := NewAntsXLogger(parent)

	p, err := antsv2.NewPool(2, antsv2.WithLogger(logger))
	require.NoError(t, err)
	defer p.Release()

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		defer close(done)
		panic("worker panic in ants pool")
	}))
	<-done
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte("worker panic in ants pool"))
	}, time.Second, 10*time.Millisecond)
}

func TestFxXLogger(t *testing.T) {
	var nilLogger *FxXLogger
	nilLogger.LogEvent(&fxevent.Started{})

	buf := &lockedBuffer{}
	parent := NewXLogger(WithXLoggerWriter(buf), WithXLoggerLevel(LogLevelDebug))
	fxLogger := NewFxXLogger(parent)

	events := []fxevent.Event{
		&fxevent.OnStartExecuting{FunctionName: "start", CallerName: "main"},
		&fxevent.OnStartExecuted{FunctionName: "start", CallerName: "main", Runtime: time.Millisecond},
		&fxevent.OnStartExecuted{FunctionName: "start", CallerName: "main", Err: errors.New("start")},
		&fxevent.OnStopExecuting{FunctionName: "stop", CallerName: "main"},
		&fxevent.OnStopExecuted{FunctionName: "stop", CallerName: "main"},
		&fxevent.OnStopExecuted{FunctionName: "stop", CallerName: "main", Err: errors.New("stop")},
		&fxevent.Supplied{TypeName: "int"},
		&fxevent.Supplied{TypeName: "int", ModuleName: "soak"},
		&fxevent.Supplied{TypeName: "int", Err: errors.New("supply")},
		&fxevent.Provided{OutputTypeNames: []string{"*soak.Runner"}, ConstructorName: "NewRunner"},
		&fxevent.Provided{Err: errors.New("provide")},
		&fxevent.Replaced{OutputTypeNames: []string{"int"}},
		&fxevent.Replaced{Err: errors.New("replace")},
		&fxevent.Decorated{OutputTypeNames: []string{"int"}, DecoratorName: "dec"},
		&fxevent.Decorated{Err: errors.New("decorate")},
		&fxevent.Invoking{FunctionName: "run"},
		&fxevent.Invoked{FunctionName: "run"},
		&fxevent.Invoked{FunctionName: "run", Err: errors.New("invoke")},
		&fxevent.Stopped{},
		&fxevent.Stopped{Err: errors.New("stopped")},
		&fxevent.RollingBack{StartErr: errors.New("rollback")},
		&fxevent.RolledBack{},
		&fxevent.RolledBack{Err: errors.New("rolled back")},
		&fxevent.Started{},
		&fxevent.Started{Err: errors.New("started")},
		&fxevent.LoggerInitialized{ConstructorName: "NewFxXLogger"},
		&fxevent.LoggerInitialized{Err: errors.New("logger")},
	}
	for _, e := range events {
		fxLogger.LogEvent(e)
	}
	lines := decodeLines(t, &buf.buf)
	require.Len(t, lines, 24)
	for _, line := range lines {
		require.Equal(t, "Fx", line["component"])
	}

	buf = &lockedBuffer{}
	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return NewFxXLogger(NewXLogger(WithXLoggerWriter(buf), WithXLoggerLevel(LogLevelDebug)))
		}),
		fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.StartStopHook(func() {}, func() {}))
		}),
	)
	require.NoError(t, app.Start(context.Background()))
	require.NoError(t, app.Stop(context.Background()))
	require.Contains(t, buf.String(), "RUNNING")
}
