package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"academic_advisor/internal/models"
)

func TestNewLevels(t *testing.T) {
	logger, err := New("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	dev, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	_, err = New("chatty", false)
	assert.Error(t, err)
}

func TestDiagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	Diagnostics(logger, []models.Diagnostic{
		models.Warning(models.DiagScoreOutOfRange, "MT1003", 2, "score %v out of range", 12),
		models.Notice(models.DiagEmptyBatch, "empty batch"),
	}, zap.String("student_id", "s1"))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "score 12 out of range", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "MT1003", fields["course_code"])
	assert.Equal(t, int64(2), fields["index"])
	assert.Equal(t, "s1", fields["student_id"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	_, hasIndex := entries[1].ContextMap()["index"]
	assert.False(t, hasIndex)

	assert.NotPanics(t, func() { Diagnostics(nil, nil) })
}
