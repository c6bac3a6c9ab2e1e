package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewApplicationLogger constructs a zap logger configured for human-readable console output
// at the requested level. An empty level means info.
func NewApplicationLogger(level string) (*zap.Logger, error) {
	atomicLevel := zap.NewAtomicLevel()
	if trimmed := strings.TrimSpace(level); trimmed != "" {
		if parseErr := atomicLevel.UnmarshalText([]byte(strings.ToLower(trimmed))); parseErr != nil {
			return nil, fmt.Errorf(invalidLogLevelFormat, level, parseErr)
		}
	}
	config := zap.NewProductionConfig()
	config.Level = atomicLevel
	config.Encoding = "console"
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.NameKey = "logger"
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.StacktraceKey = ""
	return config.Build()
}
