package progress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic_advisor/internal/catalog"
	"academic_advisor/internal/models"
)

func sampleCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	catalogs, err := catalog.Builtin()
	require.NoError(t, err)
	return catalogs[0]
}

func passed(code string, credits int, score float64) models.AuthoritativeGrade {
	return models.AuthoritativeGrade{CourseCode: code, Credits: credits, BestNumericScore: score, IsCompleted: true, Attempts: 1}
}

func TestAnalyzeExampleScenario(t *testing.T) {
	cat := sampleCatalog(t)
	grades := map[string]models.AuthoritativeGrade{
		"MT1003": passed("MT1003", 4, 5.0),
	}

	report, err := Analyze(cat, grades, models.Standing{CumulativeGPA: 2.5}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"MT1003"}, report.CompletedCodes)
	assert.Equal(t, 4, report.CompletedCredits)
	assert.InDelta(t, 2.78, report.CompletionRate, 0.01)
	assert.Len(t, report.RemainingCourses, 7)
	assert.Equal(t, 23, report.RemainingCredits)
	assert.Equal(t, "MT1005", report.RemainingCourses[0].Code)
}

func TestAnalyzeUnmappedAndUncompleted(t *testing.T) {
	cat := sampleCatalog(t)
	grades := map[string]models.AuthoritativeGrade{
		"MT1003": passed("MT1003", 4, 7.0),
		"PH1003": passed("PH1003", 4, 8.0),
		"EE1001": {CourseCode: "EE1001", Attempts: 1},
		"ZZ1000": passed("ZZ1000", 3, 9.0),
		"YY2000": passed("YY2000", 2, 6.0),
		"XX0001": {CourseCode: "XX0001", Attempts: 2},
	}

	report, err := Analyze(cat, grades, models.Standing{CumulativeGPA: 3.0}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"MT1003", "PH1003"}, report.CompletedCodes)
	assert.Equal(t, 8, report.CompletedCredits)
	assert.Equal(t, []string{"YY2000", "ZZ1000"}, report.UnmappedCodes)
	assert.Equal(t, 5, report.UnmappedCredits)
	assert.InDelta(t, 8.0/144*100, report.CompletionRate, 1e-9)

	require.Len(t, report.Diagnostics, 2)
	for _, d := range report.Diagnostics {
		assert.Equal(t, models.DiagUnmappedCourse, d.Code)
	}

	remaining := make([]string, 0, len(report.RemainingCourses))
	for _, c := range report.RemainingCourses {
		remaining = append(remaining, c.Code)
	}
	assert.Equal(t, []string{"MT1005", "MT1007", "EE1001", "EE2009", "EE2033", "EE3003"}, remaining)
}

func TestAnalyzeCategoriesAndPrerequisites(t *testing.T) {
	cat := sampleCatalog(t)
	grades := map[string]models.AuthoritativeGrade{
		"MT1003": passed("MT1003", 4, 7.0),
		"EE1001": passed("EE1001", 3, 6.0),
	}

	report, err := Analyze(cat, grades, models.Standing{CumulativeGPA: 3.0}, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, report.Categories, 3)
	general := report.Categories[0]
	assert.Equal(t, catalog.CategoryGeneral, general.Category)
	assert.Equal(t, 15, general.RequiredCredits)
	assert.Equal(t, 4, general.CompletedCredits)
	assert.Equal(t, 3, general.RemainingCourses)
	assert.Equal(t, 11, general.RemainingCredits)

	major := report.Categories[2]
	assert.Equal(t, catalog.CategoryMajor, major.Category)
	assert.Equal(t, 1, major.RemainingCourses)

	// EE2033 needs PH1003, EE3003 needs EE2009; MT1005 and EE2009 are eligible.
	assert.Equal(t, []PrerequisiteGap{
		{CourseCode: "EE2033", Missing: []string{"PH1003"}},
		{CourseCode: "EE3003", Missing: []string{"EE2009"}},
	}, report.Prerequisites)
	assert.Nil(t, report.MissingPrerequisites("MT1005"))
	assert.Equal(t, []string{"EE2009"}, report.MissingPrerequisites("EE3003"))

	_, ok := report.CompletedSet()["EE1001"]
	assert.True(t, ok)
}

func TestAnalyzeConfigurationErrors(t *testing.T) {
	good := sampleCatalog(t)

	tests := []struct {
		name string
		cat  *catalog.Catalog
		opts Options
	}{
		{"nil catalog", nil, DefaultOptions()},
		{"zero total", &catalog.Catalog{ProgramCode: "P", Courses: good.Courses}, DefaultOptions()},
		{"negative total", &catalog.Catalog{ProgramCode: "P", TotalRequiredCredits: -1, Courses: good.Courses}, DefaultOptions()},
		{"no courses", &catalog.Catalog{ProgramCode: "P", TotalRequiredCredits: 10}, DefaultOptions()},
		{"zero term load", good, Options{TermCreditLoad: 0, LowGPAThreshold: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(tt.cat, nil, models.Standing{}, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrConfiguration))
		})
	}
}

func TestCompletionRateBounds(t *testing.T) {
	tests := []struct {
		completed, total int
		want             float64
	}{
		{0, 144, 0},
		{72, 144, 50},
		{144, 144, 100},
		{200, 144, 100},
		{-10, 144, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		got := CompletionRate(tt.completed, tt.total)
		assert.InDelta(t, tt.want, got, 1e-9, "%d/%d", tt.completed, tt.total)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}

func TestAnalyzeOverCompletedClamps(t *testing.T) {
	cat := &catalog.Catalog{
		ProgramName: "Short", ProgramCode: "S1", TotalRequiredCredits: 4,
		Courses: []catalog.Course{
			{Code: "A", Credits: 4, Category: catalog.CategoryMajor},
			{Code: "B", Credits: 4, Category: catalog.CategoryMajor},
		},
	}
	grades := map[string]models.AuthoritativeGrade{"A": passed("A", 4, 8), "B": passed("B", 4, 8)}

	report, err := Analyze(cat, grades, models.Standing{CumulativeGPA: 3.2}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.CompletionRate)
	assert.Equal(t, TierRequirementsMet, report.Graduation.Tier)
}

func TestEstimateGraduation(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		name      string
		remaining int
		gpa       float64
		wantTier  GraduationTier
		wantTerms int
		summary   string
	}{
		{"nothing left", 0, 1.0, TierRequirementsMet, 0, "requirements already met"},
		{"negative remaining", -3, 3.0, TierRequirementsMet, 0, "requirements already met"},
		{"less than one term", 5, 3.0, TierOnTrack, 1, "1 terms"},
		{"exact terms", 36, 2.5, TierOnTrack, 2, "2 terms"},
		{"rounds up", 37, 2.5, TierOnTrack, 3, "3 terms"},
		{"low gpa adds a term", 37, 1.8, TierNeedsImprovement, 4, "4 terms, GPA improvement needed"},
		{"boundary gpa is not low", 18, 2.0, TierOnTrack, 1, "1 terms"},
		{"empty history counts as zero gpa", 18, 0, TierNeedsImprovement, 2, "2 terms, GPA improvement needed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := EstimateGraduation(tt.remaining, tt.gpa, opts)
			assert.Equal(t, tt.wantTier, est.Tier)
			assert.Equal(t, tt.wantTerms, est.Terms)
			assert.Equal(t, tt.summary, est.String())
			assert.Contains(t, est.Note, "not a scheduling guarantee")
		})
	}
}

func TestBelowGraduationGPA(t *testing.T) {
	cat := sampleCatalog(t)

	report, err := Analyze(cat, nil, models.Standing{CumulativeGPA: 1.9}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, report.BelowGraduationGPA)
	assert.Empty(t, report.CompletedCodes)
	assert.Equal(t, cat.DeclaredCredits(), report.RemainingCredits)
}
