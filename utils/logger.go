// Package utils provides some basic utils shared by the commands
package utils

import (
	"factoriotech/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Production settings (JSON) are used
// unless Development is set; an empty level means info.
func NewLogger(conf config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if conf.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	if conf.Level != "" {
		level, err := zapcore.ParseLevel(conf.Level)
		if err != nil {
			return nil, err
		}

		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}

	return zapConfig.Build()
}
