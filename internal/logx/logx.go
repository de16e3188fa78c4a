package logx

import (
	"os"
	"path/filepath"
	"strings"

	"leadscout/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON lines with ISO8601 timestamps, written
// to cfg.File and optionally mirrored to stderr.
func New(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = nil
	zc.ErrorOutputPaths = []string{"stderr"}

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}
	if cfg.Stderr || len(zc.OutputPaths) == 0 {
		zc.OutputPaths = append(zc.OutputPaths, "stderr")
	}

	return zc.Build()
}

// Install builds the logger and makes it the zap global.
func Install(cfg config.Log) (*zap.Logger, func(), error) {
	l, err := New(cfg)
	if err != nil {
		return nil, nil, err
	}
	undo := zap.ReplaceGlobals(l)
	return l, func() {
		_ = l.Sync()
		undo()
	}, nil
}
