// Package xlog is a small structured-logging facade over zap, shared by
// every package in this module. It exists so the engine's internal
// diagnostics (insert traces, invariant-violation traces, merge
// summaries) go through one configurable sink instead of fmt.Printf.
package xlog

import (
	"go.uber.org/zap"
)

// Logger is the package-level sugared logger. It defaults to a no-op
// production logger so importing this module never prints anything
// unless a host binary calls Configure.
var Logger = zap.NewNop().Sugar()

// Configure replaces Logger with one at the given level ("debug", "info",
// "warn", "error"). Unknown levels fall back to "info". Intended to be
// called once, early, by a host binary such as cmd/cgctl — library code
// itself never calls Configure.
func Configure(level string) error {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.SetLevel(zap.InfoLevel)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	Logger = logger.Sugar()
	return nil
}
