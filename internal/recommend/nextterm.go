package recommend

import (
	"math"
	"sort"

	"academic_advisor/internal/catalog"
	"academic_advisor/internal/progress"
)

const electiveWeight = 0.5

// PlanNextTerm packs eligible remaining courses into one term without
// exceeding load credits. Courses are taken in order of recommended term
// (unset last), required before elective, credits desc, then code; a course
// that does not fit is skipped and smaller ones are still considered.
func PlanNextTerm(report *progress.Report, load int) ([]Candidate, int) {
	if report == nil || load <= 0 {
		return nil, 0
	}

	var eligible []catalog.Course
	for _, course := range report.RemainingCourses {
		if len(report.MissingPrerequisites(course.Code)) > 0 {
			continue
		}
		eligible = append(eligible, course)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if ta, tb := termKey(a), termKey(b); ta != tb {
			return ta < tb
		}
		if ea, eb := a.Category.IsElective(), b.Category.IsElective(); ea != eb {
			return !ea
		}
		if a.Credits != b.Credits {
			return a.Credits > b.Credits
		}
		return a.Code < b.Code
	})

	var selected []Candidate
	total := 0
	for _, course := range eligible {
		// Credit limit
		if total+course.Credits > load {
			continue
		}
		selected = append(selected, outstanding(course, nil))
		total += course.Credits
		if total == load {
			break
		}
	}
	return selected, total
}

func blockedCourses(report *progress.Report) []Candidate {
	if len(report.Prerequisites) == 0 {
		return nil
	}
	index := make(map[string]catalog.Course, len(report.RemainingCourses))
	for _, c := range report.RemainingCourses {
		index[c.Code] = c
	}
	blocked := make([]Candidate, 0, len(report.Prerequisites))
	for _, gap := range report.Prerequisites {
		course, ok := index[gap.CourseCode]
		if !ok {
			continue
		}
		blocked = append(blocked, outstanding(course, gap.Missing))
	}
	return blocked
}

func outstanding(course catalog.Course, missing []string) Candidate {
	c := Candidate{
		CourseCode:      course.Code,
		Name:            course.Name,
		Credits:         course.Credits,
		Category:        course.Category,
		RecommendedTerm: course.RecommendedTerm,
		PriorityScore:   float64(course.Credits),
		Rationale:       RequiredUncompleted,
	}
	if course.Category.IsElective() {
		c.Rationale = Elective
		c.PriorityScore *= electiveWeight
	}
	if len(missing) > 0 {
		c.Rationale = MissingPrerequisite
		c.MissingPrerequisites = append([]string(nil), missing...)
	}
	return c
}

func termKey(c catalog.Course) int {
	if c.RecommendedTerm <= 0 {
		return math.MaxInt
	}
	return c.RecommendedTerm
}
