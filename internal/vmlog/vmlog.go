// Package vmlog sets up the structured logger shared by every subsystem.
//
// The teacher VM prints diagnostics straight to stdout with fmt.Println;
// this module routes the same kind of one-line-per-event diagnostics
// through zap instead, the way github.com/wippyai-wasm-runtime wires
// logging for its own bytecode runtime.
package vmlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.SugaredLogger

func init() {
	global = New(false).Sugar()
}

// New builds a logger. Verbose enables debug-level output; otherwise
// info-level messages and above print.
func New(verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = ""
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		// Logging setup failing is not itself fatal to the VM; fall back
		// to a no-op logger rather than refuse to run.
		return zap.NewNop()
	}

	return logger
}

// SetGlobal replaces the package-level logger used by L().
func SetGlobal(l *zap.Logger) {
	global = l.Sugar()
}

// L returns the current package-level logger.
func L() *zap.SugaredLogger {
	return global
}
