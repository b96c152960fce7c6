package progress

import "fmt"

// GraduationTier is the coarse outcome of the graduation heuristic.
type GraduationTier string

const (
	TierRequirementsMet  GraduationTier = "meets requirements"
	TierOnTrack          GraduationTier = "terms"
	TierNeedsImprovement GraduationTier = "terms, GPA improvement needed"
)

const graduationNote = "heuristic: assumes %d credits per term and adds one term below GPA %.1f; not a scheduling guarantee"

// GraduationEstimate is a rough term count to graduation.
type GraduationEstimate struct {
	Tier    GraduationTier `json:"tier"`
	Terms   int            `json:"terms"`
	Summary string         `json:"summary"`
	Note    string         `json:"note"`
}

func (g GraduationEstimate) String() string {
	return g.Summary
}

// EstimateGraduation turns remaining credits and cumulative GPA (0-4 scale)
// into a term estimate. It is an explicit heuristic.
func EstimateGraduation(remainingCredits int, gpa float64, opts Options) GraduationEstimate {
	load := opts.TermCreditLoad
	if load <= 0 {
		load = DefaultTermCreditLoad
	}
	est := GraduationEstimate{Note: fmt.Sprintf(graduationNote, load, opts.LowGPAThreshold)}

	if remainingCredits <= 0 {
		est.Tier = TierRequirementsMet
		est.Summary = "requirements already met"
		return est
	}

	terms := (remainingCredits + load - 1) / load
	if terms < 1 {
		terms = 1
	}
	est.Tier = TierOnTrack
	if gpa < opts.LowGPAThreshold {
		terms++
		est.Tier = TierNeedsImprovement
	}
	est.Terms = terms
	est.Summary = fmt.Sprintf("%d %s", terms, est.Tier)
	return est
}
