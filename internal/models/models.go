package models

import "time"

// MaxNumericScore is the top of the grading scale used by transcripts.
const MaxNumericScore = 10.0

// MaxGPA is the top of the cumulative GPA scale.
const MaxGPA = 4.0

// GradeObservation is one raw attempt at a course as it appears in a transcript.
// A retaken course produces several observations sharing CourseCode.
type GradeObservation struct {
	CourseCode      string    `json:"course_code"`
	Name            string    `json:"name,omitempty"`
	CreditsClaimed  int       `json:"credits"`
	ComponentScores string    `json:"component_scores,omitempty"`
	NumericScore    float64   `json:"numeric_score"`
	LetterGrade     string    `json:"letter_grade,omitempty"`
	PassFlag        string    `json:"pass_flag,omitempty"`
	RecordedAt      time.Time `json:"recorded_at,omitempty"`
}

// AuthoritativeGrade is the single reconciled record for a course code.
type AuthoritativeGrade struct {
	CourseCode       string  `json:"course_code"`
	Name             string  `json:"name,omitempty"`
	Credits          int     `json:"credits"`
	BestNumericScore float64 `json:"best_numeric_score"`
	BestLetterGrade  string  `json:"best_letter_grade,omitempty"`
	IsCompleted      bool    `json:"is_completed"`
	Attempts         int     `json:"attempts"`
}

// GPARecord is one term row of a transcript's GPA history.
type GPARecord struct {
	TermCredits   int     `json:"term_credits"`
	TermGPA       float64 `json:"term_gpa"`
	CumulativeGPA float64 `json:"cumulative_gpa"`
	EarnedCredits int     `json:"earned_credits"`
}

// Standing is the student's most recent cumulative position.
type Standing struct {
	CumulativeGPA float64 `json:"cumulative_gpa"`
	EarnedCredits int     `json:"earned_credits"`
}

// StandingFromHistory returns the last entry of the history. An empty
// history yields a zero standing.
func StandingFromHistory(history []GPARecord) Standing {
	if len(history) == 0 {
		return Standing{}
	}
	last := history[len(history)-1]
	return Standing{
		CumulativeGPA: last.CumulativeGPA,
		EarnedCredits: last.EarnedCredits,
	}
}
