// Package progress joins a reconciled grade set with a program catalog to
// measure how far a student is from graduation.
package progress

import (
	"math"
	"sort"

	"academic_advisor/internal/catalog"
	"academic_advisor/internal/models"
)

const (
	// DefaultTermCreditLoad is the assumed average credits taken per term.
	DefaultTermCreditLoad = 18
	// DefaultLowGPAThreshold is the cumulative GPA below which an extra term
	// is added to the graduation estimate.
	DefaultLowGPAThreshold = 2.0
)

// Options tunes the analysis.
type Options struct {
	TermCreditLoad  int
	LowGPAThreshold float64
}

// DefaultOptions returns the reference values.
func DefaultOptions() Options {
	return Options{
		TermCreditLoad:  DefaultTermCreditLoad,
		LowGPAThreshold: DefaultLowGPAThreshold,
	}
}

// CategoryProgress is the per-category credit picture.
type CategoryProgress struct {
	Category         catalog.Category `json:"category"`
	RequiredCredits  int              `json:"required_credits"`
	CompletedCredits int              `json:"completed_credits"`
	RemainingCourses int              `json:"remaining_courses"`
	RemainingCredits int              `json:"remaining_credits"`
}

// PrerequisiteGap lists the uncompleted prerequisites of a remaining course.
type PrerequisiteGap struct {
	CourseCode string   `json:"course_code"`
	Missing    []string `json:"missing"`
}

// Report is the derived progress view for one student and one catalog.
type Report struct {
	ProgramCode          string `json:"program_code"`
	ProgramName          string `json:"program_name"`
	TotalRequiredCredits int    `json:"total_required_credits"`

	// CompletedCodes holds completed courses that belong to the catalog, in
	// catalog order.
	CompletedCodes   []string         `json:"completed_codes"`
	RemainingCourses []catalog.Course `json:"remaining_courses"`
	CompletedCredits int              `json:"completed_credits"`
	RemainingCredits int              `json:"remaining_credits"`
	CompletionRate   float64          `json:"completion_rate"`

	// Completed courses outside the catalog. They never count toward the
	// completion rate.
	UnmappedCodes   []string `json:"unmapped_codes,omitempty"`
	UnmappedCredits int      `json:"unmapped_credits"`

	Categories    []CategoryProgress `json:"categories"`
	Prerequisites []PrerequisiteGap  `json:"prerequisite_gaps,omitempty"`

	Standing           models.Standing     `json:"standing"`
	BelowGraduationGPA bool                `json:"below_graduation_gpa"`
	Graduation         GraduationEstimate  `json:"graduation"`
	Diagnostics        []models.Diagnostic `json:"diagnostics,omitempty"`
}

// CompletedSet returns CompletedCodes as a set.
func (r *Report) CompletedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.CompletedCodes))
	for _, code := range r.CompletedCodes {
		set[code] = struct{}{}
	}
	return set
}

// MissingPrerequisites returns the missing prerequisites of a remaining
// course, or nil when it is eligible.
func (r *Report) MissingPrerequisites(code string) []string {
	for _, gap := range r.Prerequisites {
		if gap.CourseCode == code {
			return gap.Missing
		}
	}
	return nil
}

// Analyze builds a Report. It fails only on catalog-level structural
// problems; per-course anomalies become diagnostics.
func Analyze(cat *catalog.Catalog, grades map[string]models.AuthoritativeGrade, standing models.Standing, opts Options) (*Report, error) {
	if cat == nil {
		return nil, models.Configf("catalog", "no catalog supplied")
	}
	if cat.TotalRequiredCredits <= 0 {
		return nil, models.Configf("total_required_credits", "must be positive, got %d", cat.TotalRequiredCredits)
	}
	if len(cat.Courses) == 0 {
		return nil, models.Configf("courses", "catalog %s declares no courses", cat.ProgramCode)
	}
	if opts.TermCreditLoad <= 0 {
		return nil, models.Configf("term_credit_load", "must be positive, got %d", opts.TermCreditLoad)
	}

	report := &Report{
		ProgramCode:          cat.ProgramCode,
		ProgramName:          cat.ProgramName,
		TotalRequiredCredits: cat.TotalRequiredCredits,
		CompletedCodes:       []string{},
		RemainingCourses:     []catalog.Course{},
		Standing:             standing,
	}

	// Step 1: set aside completed courses the program does not know about
	index := cat.Index()
	codes := make([]string, 0, len(grades))
	for code := range grades {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		grade := grades[code]
		if !grade.IsCompleted {
			continue
		}
		if _, ok := index[code]; ok {
			continue
		}
		report.UnmappedCodes = append(report.UnmappedCodes, code)
		report.UnmappedCredits += grade.Credits
		report.Diagnostics = append(report.Diagnostics, models.Warning(models.DiagUnmappedCourse, code, -1,
			"%s is completed but not part of program %s; excluded from completion rate", code, cat.ProgramCode))
	}

	// Step 2: split the catalog into completed and remaining
	completed := make(map[string]bool)
	byCategory := make(map[catalog.Category]*CategoryProgress)
	for _, c := range catalog.Categories {
		byCategory[c] = &CategoryProgress{Category: c}
	}
	for _, course := range cat.Courses {
		cp, ok := byCategory[course.Category]
		if !ok {
			cp = &CategoryProgress{Category: course.Category}
			byCategory[course.Category] = cp
		}
		cp.RequiredCredits += course.Credits

		if grade, ok := grades[course.Code]; ok && grade.IsCompleted {
			completed[course.Code] = true
			report.CompletedCodes = append(report.CompletedCodes, course.Code)
			report.CompletedCredits += grade.Credits
			cp.CompletedCredits += grade.Credits
			continue
		}
		report.RemainingCourses = append(report.RemainingCourses, course)
		report.RemainingCredits += course.Credits
		cp.RemainingCourses++
		cp.RemainingCredits += course.Credits
	}
	for _, c := range catalog.Categories {
		if cp := byCategory[c]; cp.RequiredCredits > 0 {
			report.Categories = append(report.Categories, *cp)
		}
	}

	// Step 3: prerequisites still blocking remaining courses
	for _, course := range report.RemainingCourses {
		var missing []string
		for _, pre := range course.Prerequisites {
			if !completed[pre] {
				missing = append(missing, pre)
			}
		}
		if len(missing) > 0 {
			report.Prerequisites = append(report.Prerequisites, PrerequisiteGap{CourseCode: course.Code, Missing: missing})
		}
	}

	report.CompletionRate = CompletionRate(report.CompletedCredits, cat.TotalRequiredCredits)
	report.BelowGraduationGPA = cat.GraduationGPA > 0 && standing.CumulativeGPA < cat.GraduationGPA
	report.Graduation = EstimateGraduation(report.RemainingCredits, standing.CumulativeGPA, opts)
	return report, nil
}

// CompletionRate returns completed/total as a percentage clamped to [0, 100].
func CompletionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	rate := float64(completed) / float64(total) * 100
	return math.Max(0, math.Min(100, rate))
}
