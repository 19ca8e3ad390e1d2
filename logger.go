/*
Copyright © 2026 GyroArena contributors
*/

package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is shared by every component; initLogger must run before ServePage.
var logger *zap.SugaredLogger = zap.NewNop().Sugar()

// initLogger writes structured logs to a rolling file, and additionally to
// stderr when --verbose is set.
func initLogger(cfg *Config) error {
	lj := &lumberjack.Logger{
		Filename:   cfg.logFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewCore(encoder, zapcore.AddSync(lj), zapcore.InfoLevel)
	if cfg.verbose {
		core = zapcore.NewTee(
			core,
			zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapcore.DebugLevel),
		)
	}

	logger = zap.New(core, zap.AddCaller()).Sugar()
	return nil
}

func syncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
