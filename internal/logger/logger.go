package logger

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ModeRelease 生产模式，输出 JSON
const ModeRelease = "release"

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// Init builds the process logger. Any mode other than "release" uses the
// development config with coloured levels.
func Init(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	if mode == ModeRelease {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stdout"}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	current.Store(log)
	zap.ReplaceGlobals(log)
	return log, nil
}

// L returns the process logger, a no-op logger before Init.
func L() *zap.Logger {
	return current.Load()
}

// Sync flushes buffered entries; stdout sync errors are ignored.
func Sync() {
	_ = L().Sync()
}
