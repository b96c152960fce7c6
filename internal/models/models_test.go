package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandingFromHistory(t *testing.T) {
	assert.Equal(t, Standing{}, StandingFromHistory(nil))

	history := []GPARecord{
		{TermCredits: 18, TermGPA: 2.4, CumulativeGPA: 2.4, EarnedCredits: 18},
		{TermCredits: 16, TermGPA: 3.1, CumulativeGPA: 2.73, EarnedCredits: 34},
	}
	assert.Equal(t, Standing{CumulativeGPA: 2.73, EarnedCredits: 34}, StandingFromHistory(history))
}

func TestConfigurationErrorMatchesSentinel(t *testing.T) {
	err := Configf("total_required_credits", "must be positive, got %d", 0)
	wrapped := fmt.Errorf("analyze: %w", err)

	assert.True(t, errors.Is(wrapped, ErrConfiguration))
	assert.EqualError(t, err, "configuration error: total_required_credits: must be positive, got 0")

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(wrapped, &cfgErr))
	assert.Equal(t, "total_required_credits", cfgErr.Field)
}

func TestDiagnosticBuilders(t *testing.T) {
	w := Warning(DiagZeroCreditOnPass, "MT1003", 2, "credits %d", -1)
	assert.Equal(t, DataQualityWarning, w.Kind)
	assert.Equal(t, "credits -1", w.Message)
	assert.Equal(t, 2, w.Index)

	n := Notice(DiagEmptyBatch, "empty")
	assert.Equal(t, EmptyResultNotice, n.Kind)
	assert.Equal(t, -1, n.Index)
}
