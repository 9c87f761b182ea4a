package xlog

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ XLogCore = (xLogMultiCore)(nil)

// xLogMultiCore fans out to several cores. It has no encoders of its own,
// WrapCores rebuilds each member instead.
type xLogMultiCore []XLogCore

func (mc xLogMultiCore) levelEncoder() zapcore.LevelEncoder {
	return nil
}

func (mc xLogMultiCore) outEncoder() func(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return nil
}

func (mc xLogMultiCore) timeEncoder() zapcore.TimeEncoder {
	return nil
}

func (mc xLogMultiCore) writeSyncer() zapcore.WriteSyncer {
	return nil
}

func (mc xLogMultiCore) With(fields []zap.Field) zapcore.Core {
	clone := make([]zapcore.Core, len(mc))
	for i := range mc {
		clone[i] = mc[i].With(fields)
	}
	return zapcore.NewTee(clone...)
}

func (mc xLogMultiCore) Enabled(lvl zapcore.Level) bool {
	for i := range mc {
		if mc[i].Enabled(lvl) {
			return true
		}
	}
	return false
}

func (mc xLogMultiCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	for i := range mc {
		ce = mc[i].Check(ent, ce)
	}
	return ce
}

func (mc xLogMultiCore) Write(ent zapcore.Entry, fields []zap.Field) error {
	var err error
	for i := range mc {
		err = multierr.Append(err, mc[i].Write(ent, fields))
	}
	return err
}

func (mc xLogMultiCore) Sync() error {
	var err error
	for i := range mc {
		err = multierr.Append(err, mc[i].Sync())
	}
	return err
}

// XLogTeeCore keeps a single core as is.
func XLogTeeCore(cores ...XLogCore) XLogCore {
	if len(cores) == 1 {
		return cores[0]
	}
	return xLogMultiCore(cores)
}

func WrapCores(cores []XLogCore, cfg zapcore.EncoderConfig) (XLogCore, error) {
	newCores := make([]XLogCore, 0, len(cores))
	for i := range cores {
		newCore, err := WrapCore(cores[i], cfg)
		if err != nil {
			return nil, err
		}
		newCores = append(newCores, newCore)
	}
	return xLogMultiCore(newCores), nil
}

// wrapComponentCore is the zap.WrapCore hook of the component loggers.
func wrapComponentCore(core zapcore.Core) zapcore.Core {
	if core == nil {
		panic("[XLogger] core is nil")
	}
	cc, ok := core.(XLogCore)
	if !ok {
		panic("[XLogger] core is not XLogCore")
	}
	var err error
	if mc, ok := cc.(xLogMultiCore); ok {
		cc, err = WrapCores(mc, componentCoreEncoderCfg())
	} else {
		cc, err = WrapCore(cc, componentCoreEncoderCfg())
	}
	if err != nil {
		panic(err)
	}
	return cc
}
