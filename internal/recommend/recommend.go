// Package recommend ranks remediation actions toward a target GPA.
//
// Retake candidates are completed courses scored below a threshold, ranked by
// credits * (threshold - score). Outstanding catalog courses are not ranked
// against each other; they are packed into a next-term plan when their
// prerequisites are met and reported as blocked otherwise.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"academic_advisor/internal/catalog"
	"academic_advisor/internal/models"
	"academic_advisor/internal/progress"
)

const (
	DefaultThreshold = 6.0
	DefaultTopN      = 5
)

// Rationale tags why a course was suggested.
type Rationale string

const (
	LowScoreHighCredit  Rationale = "LowScoreHighCredit"
	MissingPrerequisite Rationale = "MissingPrerequisite"
	RequiredUncompleted Rationale = "RequiredUncompleted"
	Elective            Rationale = "Elective"
)

const (
	noCandidatesNote = "no courses below threshold"
	impactNoteFmt    = "approximate: bringing these %d course(s) up to %.1f recovers %.1f credit-weighted points on the 10-point scale; " +
		"no projected GPA is computed because letter and point conversions are not guaranteed consistent"
)

// Options tunes ranking.
type Options struct {
	// Threshold is the low-score cut on the 0-10 scale.
	Threshold float64
	// TopN caps the retake list.
	TopN int
	// TermCreditLoad caps the next-term plan. Zero disables the plan.
	TermCreditLoad int
}

// DefaultOptions returns threshold 6.0, top 5 and an 18-credit term.
func DefaultOptions() Options {
	return Options{
		Threshold:      DefaultThreshold,
		TopN:           DefaultTopN,
		TermCreditLoad: progress.DefaultTermCreditLoad,
	}
}

func (o Options) validate() error {
	if o.Threshold <= 0 || o.Threshold > models.MaxNumericScore {
		return models.Configf("low_score_threshold", "must be in (0, %.0f], got %v", models.MaxNumericScore, o.Threshold)
	}
	if o.TopN < 1 {
		return models.Configf("top_n", "must be at least 1, got %d", o.TopN)
	}
	if o.TermCreditLoad < 0 {
		return models.Configf("term_credit_load", "must not be negative, got %d", o.TermCreditLoad)
	}
	return nil
}

// Candidate is one suggested action.
type Candidate struct {
	CourseCode           string           `json:"course_code"`
	Name                 string           `json:"name,omitempty"`
	CurrentScore         float64          `json:"current_score,omitempty"`
	Credits              int              `json:"credits"`
	PriorityScore        float64          `json:"priority_score"`
	Rationale            Rationale        `json:"rationale"`
	Category             catalog.Category `json:"category,omitempty"`
	RecommendedTerm      int              `json:"recommended_term,omitempty"`
	MissingPrerequisites []string         `json:"missing_prerequisites,omitempty"`
}

// CategorySummary is remaining volume for one category.
type CategorySummary struct {
	Category         catalog.Category `json:"category"`
	RemainingCourses int              `json:"remaining_courses"`
	RemainingCredits int              `json:"remaining_credits"`
}

// Plan is the ordered remediation plan.
type Plan struct {
	CurrentGPA float64 `json:"current_gpa"`
	TargetGPA  float64 `json:"target_gpa"`
	GPAGap     float64 `json:"gpa_gap"`
	Threshold  float64 `json:"threshold"`

	// Candidates holds the top-N retakes, highest priority first.
	Candidates []Candidate `json:"candidates"`
	// PoolSize counts every course below threshold before truncation.
	PoolSize   int    `json:"pool_size"`
	ImpactNote string `json:"impact_note,omitempty"`

	NextTerm        []Candidate `json:"next_term,omitempty"`
	NextTermCredits int         `json:"next_term_credits"`
	Blocked         []Candidate `json:"blocked,omitempty"`

	RemainingByCategory []CategorySummary   `json:"remaining_by_category"`
	KeyRecommendations  []string            `json:"key_recommendations"`
	Notes               []string            `json:"notes,omitempty"`
	Diagnostics         []models.Diagnostic `json:"diagnostics,omitempty"`
}

// Recommend builds a Plan from a progress report and the authoritative
// grades it was derived from. An empty retake pool is a valid outcome.
func Recommend(report *progress.Report, grades map[string]models.AuthoritativeGrade, targetGPA float64, opts Options) (*Plan, error) {
	if report == nil {
		return nil, models.Configf("report", "no progress report supplied")
	}
	if targetGPA < 0 || targetGPA > models.MaxGPA {
		return nil, models.Configf("target_gpa", "must be in [0, %.0f], got %v", models.MaxGPA, targetGPA)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	current := report.Standing.CumulativeGPA
	plan := &Plan{
		CurrentGPA: current,
		TargetGPA:  targetGPA,
		GPAGap:     targetGPA - current,
		Threshold:  opts.Threshold,
	}

	// Step 1: rank retakes
	pool := RankRetakes(grades, opts.Threshold)
	plan.PoolSize = len(pool)
	if len(pool) > opts.TopN {
		pool = pool[:opts.TopN]
	}
	plan.Candidates = pool
	if len(pool) == 0 {
		plan.Candidates = []Candidate{}
		plan.Notes = append(plan.Notes, noCandidatesNote)
		plan.Diagnostics = append(plan.Diagnostics, models.Notice(models.DiagEmptyCandidatePool, noCandidatesNote))
	} else {
		recovered := 0.0
		for _, c := range pool {
			recovered += c.PriorityScore
		}
		plan.ImpactNote = fmt.Sprintf(impactNoteFmt, len(pool), opts.Threshold, recovered)
	}

	// Step 2: outstanding catalog courses
	plan.NextTerm, plan.NextTermCredits = PlanNextTerm(report, opts.TermCreditLoad)
	plan.Blocked = blockedCourses(report)
	plan.RemainingByCategory = remainingByCategory(report)

	plan.KeyRecommendations = keyRecommendations(plan)
	return plan, nil
}

// RankRetakes returns every completed, credit-bearing course scored below
// threshold, ordered by priority desc, credits desc, then code asc.
func RankRetakes(grades map[string]models.AuthoritativeGrade, threshold float64) []Candidate {
	var pool []Candidate
	for _, g := range grades {
		if !g.IsCompleted || g.Credits <= 0 || g.BestNumericScore >= threshold {
			continue
		}
		pool = append(pool, Candidate{
			CourseCode:    g.CourseCode,
			Name:          g.Name,
			CurrentScore:  g.BestNumericScore,
			Credits:       g.Credits,
			PriorityScore: PriorityScore(g.Credits, g.BestNumericScore, threshold),
			Rationale:     LowScoreHighCredit,
		})
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].PriorityScore != pool[j].PriorityScore {
			return pool[i].PriorityScore > pool[j].PriorityScore
		}
		if pool[i].Credits != pool[j].Credits {
			return pool[i].Credits > pool[j].Credits
		}
		return pool[i].CourseCode < pool[j].CourseCode
	})
	return pool
}

// PriorityScore is the credit-weighted shortfall below threshold.
func PriorityScore(credits int, score, threshold float64) float64 {
	shortfall := threshold - score
	if credits <= 0 || shortfall <= 0 {
		return 0
	}
	return float64(credits) * shortfall
}

func remainingByCategory(report *progress.Report) []CategorySummary {
	out := make([]CategorySummary, 0, len(report.Categories))
	for _, cp := range report.Categories {
		out = append(out, CategorySummary{
			Category:         cp.Category,
			RemainingCourses: cp.RemainingCourses,
			RemainingCredits: cp.RemainingCredits,
		})
	}
	return out
}

func keyRecommendations(plan *Plan) []string {
	var recs []string
	if len(plan.Candidates) > 0 {
		codes := make([]string, 0, len(plan.Candidates))
		for _, c := range plan.Candidates {
			codes = append(codes, c.CourseCode)
		}
		recs = append(recs, "Retake high-credit, low-score courses first: "+strings.Join(codes, ", "))
	}
	if len(plan.Blocked) > 0 {
		recs = append(recs, "Follow prerequisite order; finish missing prerequisites before the blocked courses")
	}
	if len(plan.NextTerm) > 0 {
		recs = append(recs, fmt.Sprintf("Register the %d eligible course(s) planned for next term (%d credits)",
			len(plan.NextTerm), plan.NextTermCredits))
	}
	if plan.GPAGap > 0 {
		recs = append(recs, fmt.Sprintf("Raise cumulative GPA by %.2f to reach the %.2f target", plan.GPAGap, plan.TargetGPA))
	} else {
		recs = append(recs, fmt.Sprintf("Current GPA %.2f already meets the %.2f target", plan.CurrentGPA, plan.TargetGPA))
	}
	return recs
}
