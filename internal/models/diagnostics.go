package models

import (
	"errors"
	"fmt"
)

// DiagnosticKind classifies a non-fatal finding returned next to a result.
type DiagnosticKind string

const (
	// DataQualityWarning marks a malformed or suspicious input record.
	DataQualityWarning DiagnosticKind = "data_quality_warning"
	// EmptyResultNotice marks a valid but empty result.
	EmptyResultNotice DiagnosticKind = "empty_result_notice"
)

// Diagnostic codes.
const (
	DiagEmptyCourseCode     = "empty_course_code"
	DiagScoreOutOfRange     = "score_out_of_range"
	DiagZeroCreditOnPass    = "zero_credit_on_pass"
	DiagUngraded            = "ungraded"
	DiagUnmappedCourse      = "unmapped_course"
	DiagUnknownPrerequisite = "unknown_prerequisite"
	DiagSelfPrerequisite    = "self_prerequisite"
	DiagEmptyBatch          = "empty_batch"
	DiagEmptyCandidatePool  = "empty_candidate_pool"
)

// Diagnostic is informational detail appended to a successful result.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	Code       string         `json:"code"`
	CourseCode string         `json:"course_code,omitempty"`
	// Index is the position of the offending observation in its batch, or -1.
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// Warning builds a DataQualityWarning.
func Warning(code, courseCode string, index int, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:       DataQualityWarning,
		Code:       code,
		CourseCode: courseCode,
		Index:      index,
		Message:    fmt.Sprintf(format, args...),
	}
}

// Notice builds an EmptyResultNotice.
func Notice(code, message string) Diagnostic {
	return Diagnostic{Kind: EmptyResultNotice, Code: code, Index: -1, Message: message}
}

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError aborts a single analysis call. Callers should ask for
// corrected input rather than retry.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Configf returns a *ConfigurationError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
