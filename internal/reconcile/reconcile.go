// Package reconcile collapses a batch of raw grade observations into one
// authoritative grade per course code.
//
// Reconciliation always works over the complete batch: observations are
// grouped by course code first and each group is reduced once, so the result
// never depends on partial filtering applied while the batch is still being
// collected. The same batch always yields the same result.
package reconcile

import (
	"math"
	"sort"
	"strings"

	"academic_advisor/internal/models"
)

// Result is the authoritative grade set plus what was learned building it.
type Result struct {
	Grades map[string]models.AuthoritativeGrade `json:"grades"`
	// Skipped counts observations rejected as malformed.
	Skipped     int                 `json:"skipped"`
	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
}

// Codes returns the reconciled course codes in ascending order.
func (r Result) Codes() []string {
	codes := make([]string, 0, len(r.Grades))
	for code := range r.Grades {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Sorted returns the authoritative grades ordered by course code.
func (r Result) Sorted() []models.AuthoritativeGrade {
	out := make([]models.AuthoritativeGrade, 0, len(r.Grades))
	for _, code := range r.Codes() {
		out = append(out, r.Grades[code])
	}
	return out
}

type attempt struct {
	obs   models.GradeObservation
	index int
}

// newer orders attempts by (RecordedAt, input position). A missing timestamp
// sorts before any recorded one, so position only decides between attempts
// with equal or missing timestamps.
func (a attempt) newer(b attempt) bool {
	at, bt := a.obs.RecordedAt, b.obs.RecordedAt
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.index > b.index
}

// Reconcile reduces observations to one AuthoritativeGrade per course code.
//
// Within a course the observation with the strictly greatest positive score
// wins; ties on that score go to the most recently recorded observation.
// A course with no positive score is kept as not completed with zero credits.
// Observations with an empty course code or a score outside [0, 10] are
// skipped and counted.
func Reconcile(observations []models.GradeObservation) Result {
	res := Result{Grades: make(map[string]models.AuthoritativeGrade)}
	if len(observations) == 0 {
		res.Diagnostics = append(res.Diagnostics,
			models.Notice(models.DiagEmptyBatch, "observation batch is empty"))
		return res
	}

	groups := make(map[string][]attempt)
	var order []string
	for i, obs := range observations {
		code := strings.TrimSpace(obs.CourseCode)
		if code == "" {
			res.Skipped++
			res.Diagnostics = append(res.Diagnostics, models.Warning(models.DiagEmptyCourseCode, "", i,
				"observation %d has no course code", i))
			continue
		}
		if math.IsNaN(obs.NumericScore) || obs.NumericScore < 0 || obs.NumericScore > models.MaxNumericScore {
			res.Skipped++
			res.Diagnostics = append(res.Diagnostics, models.Warning(models.DiagScoreOutOfRange, code, i,
				"score %v for %s is outside 0-%.0f", obs.NumericScore, code, models.MaxNumericScore))
			continue
		}
		obs.CourseCode = code
		if _, ok := groups[code]; !ok {
			order = append(order, code)
		}
		groups[code] = append(groups[code], attempt{obs: obs, index: i})
	}

	for _, code := range order {
		grade, diag := reduce(code, groups[code])
		res.Grades[code] = grade
		if diag != nil {
			res.Diagnostics = append(res.Diagnostics, *diag)
		}
	}
	return res
}

func reduce(code string, attempts []attempt) (models.AuthoritativeGrade, *models.Diagnostic) {
	var best, latest *attempt
	for i := range attempts {
		a := &attempts[i]
		if latest == nil || a.newer(*latest) {
			latest = a
		}
		if a.obs.NumericScore <= 0 {
			continue
		}
		if best == nil || a.obs.NumericScore > best.obs.NumericScore ||
			(a.obs.NumericScore == best.obs.NumericScore && a.newer(*best)) {
			best = a
		}
	}

	if best == nil {
		diag := models.Warning(models.DiagUngraded, code, latest.index,
			"%s has no positive score in %d attempt(s); treated as registered but not passed", code, len(attempts))
		return models.AuthoritativeGrade{
			CourseCode:      code,
			Name:            nameOf(latest, attempts),
			BestLetterGrade: latest.obs.LetterGrade,
			Attempts:        len(attempts),
		}, &diag
	}

	grade := models.AuthoritativeGrade{
		CourseCode:       code,
		Name:             nameOf(best, attempts),
		Credits:          best.obs.CreditsClaimed,
		BestNumericScore: best.obs.NumericScore,
		BestLetterGrade:  best.obs.LetterGrade,
		IsCompleted:      true,
		Attempts:         len(attempts),
	}
	if grade.Credits <= 0 {
		grade.Credits = 0
		diag := models.Warning(models.DiagZeroCreditOnPass, code, best.index,
			"%s passed with score %.2f but claims %d credits; counted as 0", code, best.obs.NumericScore, best.obs.CreditsClaimed)
		return grade, &diag
	}
	return grade, nil
}

// nameOf prefers the chosen attempt's course name and falls back to any
// other attempt that carries one.
func nameOf(chosen *attempt, attempts []attempt) string {
	if name := strings.TrimSpace(chosen.obs.Name); name != "" {
		return name
	}
	for i := len(attempts) - 1; i >= 0; i-- {
		if name := strings.TrimSpace(attempts[i].obs.Name); name != "" {
			return name
		}
	}
	return ""
}
