package transcript

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"academic_advisor/internal/models"
)

// Columns recognised in a CSV export. Only course_code is mandatory.
const (
	colCourseCode      = "course_code"
	colName            = "name"
	colCredits         = "credits"
	colComponentScores = "component_scores"
	colNumericScore    = "numeric_score"
	colLetterGrade     = "letter_grade"
	colPassFlag        = "pass_flag"
	colRecordedAt      = "recorded_at"
)

// DecodeCSV reads observations from a CSV export with a header row.
// Unknown columns are ignored.
func DecodeCSV(r io.Reader) ([]models.GradeObservation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv transcript: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv transcript header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[key] = i
	}
	if _, ok := cols[colCourseCode]; !ok {
		return nil, fmt.Errorf("csv transcript: header has no %s column", colCourseCode)
	}

	out := []models.GradeObservation{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv transcript line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		out = append(out, models.GradeObservation{
			CourseCode:      cleanText(field(colCourseCode)),
			Name:            cleanText(field(colName)),
			CreditsClaimed:  parseInt(field(colCredits)),
			ComponentScores: field(colComponentScores),
			NumericScore:    parseFloat(field(colNumericScore)),
			LetterGrade:     field(colLetterGrade),
			PassFlag:        field(colPassFlag),
			RecordedAt:      parseTime(field(colRecordedAt)),
		})
	}
	return out, nil
}
