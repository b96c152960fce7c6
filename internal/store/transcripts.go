package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"academic_advisor/internal/models"
)

// ReplaceObservations swaps the student's stored batch for obs. The student
// must already exist.
func (s *Store) ReplaceObservations(ctx context.Context, studentID string, obs []models.GradeObservation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM grade_observations WHERE student_id = ?`, studentID); err != nil {
			return fmt.Errorf("clear observations for %s: %w", studentID, err)
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO grade_observations (
	student_id, position, course_code, name, credits, component_scores,
	numeric_score, letter_grade, pass_flag, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare observation insert: %w", err)
		}
		defer stmt.Close()

		for i, o := range obs {
			var recorded sql.NullInt64
			if !o.RecordedAt.IsZero() {
				recorded = sql.NullInt64{Int64: o.RecordedAt.UnixMilli(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, studentID, i, o.CourseCode, o.Name, o.CreditsClaimed,
				o.ComponentScores, o.NumericScore, o.LetterGrade, o.PassFlag, recorded); err != nil {
				return fmt.Errorf("insert observation %d for %s: %w", i, studentID, err)
			}
		}
		return nil
	})
}

// LoadObservations returns the stored batch in import order. A student with
// no rows yields an empty batch, not an error.
func (s *Store) LoadObservations(ctx context.Context, studentID string) ([]models.GradeObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT course_code, name, credits, component_scores, numeric_score, letter_grade, pass_flag, recorded_at
FROM grade_observations
WHERE student_id = ?
ORDER BY position`, studentID)
	if err != nil {
		return nil, fmt.Errorf("load observations for %s: %w", studentID, err)
	}
	defer rows.Close()

	out := []models.GradeObservation{}
	for rows.Next() {
		var (
			code                              string
			name, components, letter, passing sql.NullString
			credits, recorded                 sql.NullInt64
			score                             sql.NullFloat64
		)
		if err := rows.Scan(&code, &name, &credits, &components, &score, &letter, &passing, &recorded); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o := models.GradeObservation{
			CourseCode:      code,
			Name:            name.String,
			CreditsClaimed:  int(credits.Int64),
			ComponentScores: components.String,
			NumericScore:    score.Float64,
			LetterGrade:     letter.String,
			PassFlag:        passing.String,
		}
		if recorded.Valid {
			o.RecordedAt = time.UnixMilli(recorded.Int64).UTC()
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveGPAHistory replaces the student's GPA history.
func (s *Store) SaveGPAHistory(ctx context.Context, studentID string, history []models.GPARecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM gpa_history WHERE student_id = ?`, studentID); err != nil {
			return fmt.Errorf("clear gpa history for %s: %w", studentID, err)
		}
		for i, h := range history {
			_, err := tx.ExecContext(ctx, `
INSERT INTO gpa_history (student_id, position, term_credits, term_gpa, cumulative_gpa, earned_credits)
VALUES (?, ?, ?, ?, ?, ?)`, studentID, i, h.TermCredits, h.TermGPA, h.CumulativeGPA, h.EarnedCredits)
			if err != nil {
				return fmt.Errorf("insert gpa row %d for %s: %w", i, studentID, err)
			}
		}
		return nil
	})
}

// LoadGPAHistory returns the GPA history oldest first.
func (s *Store) LoadGPAHistory(ctx context.Context, studentID string) ([]models.GPARecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT term_credits, term_gpa, cumulative_gpa, earned_credits
FROM gpa_history
WHERE student_id = ?
ORDER BY position`, studentID)
	if err != nil {
		return nil, fmt.Errorf("load gpa history for %s: %w", studentID, err)
	}
	defer rows.Close()

	out := []models.GPARecord{}
	for rows.Next() {
		var termCredits, earned sql.NullInt64
		var termGPA, cumulative sql.NullFloat64
		if err := rows.Scan(&termCredits, &termGPA, &cumulative, &earned); err != nil {
			return nil, fmt.Errorf("scan gpa row: %w", err)
		}
		out = append(out, models.GPARecord{
			TermCredits:   int(termCredits.Int64),
			TermGPA:       termGPA.Float64,
			CumulativeGPA: cumulative.Float64,
			EarnedCredits: int(earned.Int64),
		})
	}
	return out, rows.Err()
}

// LoadStanding returns the standing implied by the stored GPA history.
func (s *Store) LoadStanding(ctx context.Context, studentID string) (models.Standing, error) {
	history, err := s.LoadGPAHistory(ctx, studentID)
	if err != nil {
		return models.Standing{}, err
	}
	return models.StandingFromHistory(history), nil
}
