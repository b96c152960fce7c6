package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"academic_advisor/internal/models"
	"academic_advisor/internal/store"
)

// BatchSummary reports a batch evaluation run.
type BatchSummary struct {
	Students          int     `json:"students"`
	Evaluated         int     `json:"evaluated"`
	Skipped           int     `json:"skipped"`
	AverageCompletion float64 `json:"average_completion"`
}

var batchHeader = []string{"student_id", "completion_rate", "gpa", "gpa_gap", "top_candidate", "candidates"}

// EvaluateAll analyzes every stored student of programCode (all students
// when empty) with at most workers concurrent analyses, persists each plan
// and writes one CSV row per evaluated student in student-id order.
//
// Configuration errors abort the run. Students whose data cannot be
// resolved are logged and skipped.
func (a *Advisor) EvaluateAll(ctx context.Context, programCode string, workers int, w io.Writer) (BatchSummary, error) {
	if a.records == nil {
		return BatchSummary{}, fmt.Errorf("%w: no records store configured", ErrInvalidRequest)
	}
	if workers < 1 {
		return BatchSummary{}, models.Configf("workers", "must be at least 1, got %d", workers)
	}

	students, err := a.records.ListStudents(ctx, programCode)
	if err != nil {
		return BatchSummary{}, err
	}
	summary := BatchSummary{Students: len(students)}
	if len(students) == 0 {
		a.logger.Warn("no students to evaluate", zap.String("program_code", programCode))
		return summary, writeBatchCSV(w, nil)
	}

	results := make([]*Analysis, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, st := range students {
		g.Go(func() error {
			result, err := a.AnalyzeStudent(gctx, st.ID, true)
			switch {
			case err == nil:
				results[i] = result
				return nil
			case errors.Is(err, models.ErrConfiguration):
				return fmt.Errorf("student %s: %w", st.ID, err)
			case errors.Is(err, ErrUnknownProgram), errors.Is(err, store.ErrNotFound), errors.Is(err, ErrInvalidRequest):
				a.logger.Warn("skipping student", zap.String("student_id", st.ID), zap.Error(err))
				return nil
			default:
				return fmt.Errorf("student %s: %w", st.ID, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	evaluated := make([]*Analysis, 0, len(results))
	total := 0.0
	for _, r := range results {
		if r == nil {
			summary.Skipped++
			continue
		}
		evaluated = append(evaluated, r)
		total += r.Progress.CompletionRate
	}
	summary.Evaluated = len(evaluated)
	if summary.Evaluated > 0 {
		summary.AverageCompletion = total / float64(summary.Evaluated)
	}

	if err := writeBatchCSV(w, evaluated); err != nil {
		return summary, err
	}
	a.logger.Info("batch evaluation complete",
		zap.String("program_code", programCode),
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("skipped", summary.Skipped),
		zap.Float64("average_completion", summary.AverageCompletion))
	return summary, nil
}

func writeBatchCSV(out io.Writer, results []*Analysis) error {
	w := csv.NewWriter(out)
	if err := w.Write(batchHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		top := ""
		codes := make([]string, 0, len(r.Plan.Candidates))
		for _, c := range r.Plan.Candidates {
			codes = append(codes, c.CourseCode)
		}
		if len(codes) > 0 {
			top = codes[0]
		}
		row := []string{
			r.StudentID,
			fmt.Sprintf("%.2f", r.Progress.CompletionRate),
			fmt.Sprintf("%.2f", r.Plan.CurrentGPA),
			fmt.Sprintf("%.2f", r.Plan.GPAGap),
			top,
			strings.Join(codes, ";"),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", r.StudentID, err)
		}
	}
	w.Flush()
	return w.Error()
}
