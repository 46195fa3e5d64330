// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package logging constructs the zap.Logger used throughout the module:
// human-readable console output by default, or JSON output when the caller
// asks for it, with a single flag lowering the level to Debug.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger. json selects structured JSON encoding over
// zap's default console encoding (the Production config, tee'd to stderr
// so progress output on stdout stays clean for piping). debug lowers the
// minimum level from Info to Debug.
func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	if !json {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// Nop returns a logger that discards everything, for callers outside of
// cmd/anime (tests, library callers) that don't want clustering progress
// logged.
func Nop() *zap.Logger {
	return zap.NewNop()
}
