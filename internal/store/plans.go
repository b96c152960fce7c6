package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PlanRecord is a persisted plan. Body holds the plan document as JSON.
type PlanRecord struct {
	ID          string          `json:"plan_id"`
	StudentID   string          `json:"student_id"`
	ProgramCode string          `json:"program_code"`
	CreatedAt   time.Time       `json:"created_at"`
	Body        json.RawMessage `json:"body"`
}

// SavePlan appends a plan for a student.
func (s *Store) SavePlan(ctx context.Context, rec PlanRecord) error {
	if rec.ID == "" || rec.StudentID == "" {
		return fmt.Errorf("plan id and student id are required")
	}
	if len(rec.Body) == 0 {
		return fmt.Errorf("plan %s has no body", rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO plans (plan_id, student_id, program_code, created_at, body)
VALUES (?, ?, ?, ?, ?)`, rec.ID, rec.StudentID, rec.ProgramCode, rec.CreatedAt.UnixMilli(), string(rec.Body))
	if err != nil {
		return fmt.Errorf("save plan %s: %w", rec.ID, err)
	}
	return nil
}

// LatestPlan returns the most recently saved plan for a student.
func (s *Store) LatestPlan(ctx context.Context, studentID string) (PlanRecord, error) {
	var (
		rec     PlanRecord
		created int64
		body    string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT plan_id, student_id, program_code, created_at, body
FROM plans
WHERE student_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT 1`, studentID).Scan(&rec.ID, &rec.StudentID, &rec.ProgramCode, &created, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRecord{}, fmt.Errorf("plan for %s: %w", studentID, ErrNotFound)
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("latest plan for %s: %w", studentID, err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	rec.Body = json.RawMessage(body)
	return rec, nil
}
