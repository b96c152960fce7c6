package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic_advisor/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "advisor.db", cfg.DBPath)
	assert.Equal(t, "catalogs", cfg.CatalogDir)
	assert.True(t, cfg.WatchCatalogs)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.APIToken)
	assert.Equal(t, 6.0, cfg.LowScoreThreshold)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, 3.6, cfg.TargetGPA)
	assert.Equal(t, 18, cfg.TermCreditLoad)
	assert.Equal(t, 2.0, cfg.LowGPAThreshold)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.TranscriptTimeout)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout)

	assert.Equal(t, 18, cfg.ProgressOptions().TermCreditLoad)
	assert.Equal(t, 5, cfg.RecommendOptions().TopN)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ADVISOR_PORT":                "9090",
		"ADVISOR_LOW_SCORE_THRESHOLD": "5.5",
		"ADVISOR_TOP_N":               "3",
		"ADVISOR_API_TOKEN":           "t0k",
		"ADVISOR_TRANSCRIPT_URL":      "https://records.example.edu/api",
		"ADVISOR_TRANSCRIPT_TIMEOUT":  "3s",
		"PORT":                        "1111",
	})
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5.5, cfg.LowScoreThreshold)
	assert.Equal(t, 3, cfg.TopN)
	assert.Equal(t, "t0k", cfg.APIToken)
	assert.Equal(t, 3*time.Second, cfg.TranscriptTimeout)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		vars  map[string]string
		field string
	}{
		{"threshold above scale", map[string]string{"ADVISOR_LOW_SCORE_THRESHOLD": "11"}, "LowScoreThreshold"},
		{"zero threshold", map[string]string{"ADVISOR_LOW_SCORE_THRESHOLD": "0"}, "LowScoreThreshold"},
		{"zero top n", map[string]string{"ADVISOR_TOP_N": "0"}, "TopN"},
		{"target gpa above scale", map[string]string{"ADVISOR_TARGET_GPA": "4.5"}, "TargetGPA"},
		{"zero term load", map[string]string{"ADVISOR_TERM_CREDIT_LOAD": "0"}, "TermCreditLoad"},
		{"bad log level", map[string]string{"ADVISOR_LOG_LEVEL": "loud"}, "LogLevel"},
		{"bad transcript url", map[string]string{"ADVISOR_TRANSCRIPT_URL": "not a url"}, "TranscriptURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrConfiguration))

			var cfgErr *models.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoadRejectsUnparseable(t *testing.T) {
	_, err := LoadFrom(map[string]string{"ADVISOR_TOP_N": "five"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}
