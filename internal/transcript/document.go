// Package transcript decodes exported transcripts into grade observations.
//
// Exports are messy: credits arrive as strings, scores use a comma decimal
// separator and timestamps come in several layouts. Decoding tolerates all
// of it and leaves judgement about the values to reconciliation.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"academic_advisor/internal/models"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Document is one student's exported transcript.
type Document struct {
	StudentID    string        `json:"student_id"`
	Name         string        `json:"name,omitempty"`
	ProgramCode  string        `json:"program_code,omitempty"`
	Observations []Observation `json:"observations"`
	GPAHistory   []GPARow      `json:"gpa_history"`
}

// Observation is the wire form of a grade row.
type Observation struct {
	CourseCode      string    `json:"course_code"`
	Name            string    `json:"name"`
	Credits         flexInt   `json:"credits"`
	ComponentScores flexText  `json:"component_scores"`
	NumericScore    flexFloat `json:"numeric_score"`
	LetterGrade     string    `json:"letter_grade"`
	PassFlag        flexText  `json:"pass_flag"`
	RecordedAt      flexTime  `json:"recorded_at"`
}

// GPARow is the wire form of a GPA footer row.
type GPARow struct {
	TermCredits   flexInt   `json:"term_credits"`
	TermGPA       flexFloat `json:"term_gpa"`
	CumulativeGPA flexFloat `json:"cumulative_gpa"`
	EarnedCredits flexInt   `json:"earned_credits"`
}

// Decode reads a JSON transcript document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	doc.StudentID = strings.TrimSpace(doc.StudentID)
	doc.ProgramCode = strings.TrimSpace(doc.ProgramCode)
	return &doc, nil
}

// Batch converts the observations in document order.
func (d *Document) Batch() []models.GradeObservation {
	return BatchOf(d.Observations)
}

// History converts the GPA rows in document order.
func (d *Document) History() []models.GPARecord {
	return HistoryOf(d.GPAHistory)
}

// BatchOf converts wire observations to grade observations, keeping order.
func BatchOf(rows []Observation) []models.GradeObservation {
	out := make([]models.GradeObservation, 0, len(rows))
	for _, o := range rows {
		out = append(out, models.GradeObservation{
			CourseCode:      cleanText(o.CourseCode),
			Name:            cleanText(o.Name),
			CreditsClaimed:  int(o.Credits),
			ComponentScores: string(o.ComponentScores),
			NumericScore:    float64(o.NumericScore),
			LetterGrade:     strings.TrimSpace(o.LetterGrade),
			PassFlag:        string(o.PassFlag),
			RecordedAt:      time.Time(o.RecordedAt),
		})
	}
	return out
}

// HistoryOf converts wire GPA rows, keeping order.
func HistoryOf(rows []GPARow) []models.GPARecord {
	out := make([]models.GPARecord, 0, len(rows))
	for _, h := range rows {
		out = append(out, models.GPARecord{
			TermCredits:   int(h.TermCredits),
			TermGPA:       float64(h.TermGPA),
			CumulativeGPA: float64(h.CumulativeGPA),
			EarnedCredits: int(h.EarnedCredits),
		})
	}
	return out
}

// Standing is the last GPA row, or zero when there is none.
func (d *Document) Standing() models.Standing {
	return models.StandingFromHistory(d.History())
}

func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// flexInt decodes numbers or numeric strings. Anything that is not a whole
// number becomes 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	*f = flexInt(parseInt(rawScalar(b)))
	return nil
}

// flexFloat decodes numbers or numeric strings with either decimal separator.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat(parseFloat(rawScalar(b)))
	return nil
}

// flexText accepts strings, numbers or null.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	*f = flexText(rawScalar(b))
	return nil
}

// flexTime accepts any layout in timeLayouts. Blank or unparseable values
// leave the time unset.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(b []byte) error {
	*f = flexTime(parseTime(rawScalar(b)))
	return nil
}

func (f flexTime) MarshalJSON() ([]byte, error) {
	t := time.Time(f)
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t)
}

func rawScalar(b []byte) string {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return ""
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return string(b)
}

func parseInt(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// "3.0" is still a whole number
	v := parseFloat(s)
	if v == math.Trunc(v) && math.Abs(v) < math.MaxInt32 {
		return int(v)
	}
	return 0
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
