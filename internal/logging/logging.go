// Package logging builds the zap logger used outside the pure core.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"academic_advisor/internal/models"
)

// New builds a logger at the named level. Development mode switches to the
// console encoder with stack traces on warnings.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Diagnostics logs each diagnostic at warn (data quality) or info (notices).
func Diagnostics(logger *zap.Logger, diags []models.Diagnostic, fields ...zap.Field) {
	if logger == nil {
		return
	}
	for _, d := range diags {
		fs := append([]zap.Field{
			zap.String("code", d.Code),
			zap.String("kind", string(d.Kind)),
		}, fields...)
		if d.CourseCode != "" {
			fs = append(fs, zap.String("course_code", d.CourseCode))
		}
		if d.Index >= 0 {
			fs = append(fs, zap.Int("index", d.Index))
		}
		if d.Kind == models.DataQualityWarning {
			logger.Warn(d.Message, fs...)
			continue
		}
		logger.Info(d.Message, fs...)
	}
}
