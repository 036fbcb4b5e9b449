package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const loggerName = "storefront"

var logger *zap.Logger

// InitLogger initializes the global logger for the given environment
func InitLogger(env string) error {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := config.Build()
	if err != nil {
		return err
	}

	logger = built.Named(loggerName)
	zap.ReplaceGlobals(logger)
	return nil
}

// GetLogger returns the global logger
func GetLogger() *zap.Logger {
	if logger == nil {
		dev, _ := zap.NewDevelopment()
		logger = dev.Named(loggerName)
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
