// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/refbundle/refbundle/internal/config"
)

// New builds a zap logger per the logging configuration. With a file
// configured, output goes to both stderr and a size-rotated log file.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	if cfg.File == "" {
		logger, err := zcfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		return logger, nil
	}

	encoder := zapcore.NewJSONEncoder(zcfg.EncoderConfig)
	if cfg.Development {
		encoder = zapcore.NewConsoleEncoder(zcfg.EncoderConfig)
	}
	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	stderrSink, _, err := zap.Open("stderr")
	if err != nil {
		return nil, fmt.Errorf("open stderr sink: %w", err)
	}
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(stderrSink, fileSink), zcfg.Level)
	return zap.New(core), nil
}
