package catalog

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"academic_advisor/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims whitespace around course and prerequisite codes.
func (c *Catalog) Normalize() {
	c.ProgramCode = strings.TrimSpace(c.ProgramCode)
	for i := range c.Courses {
		course := &c.Courses[i]
		course.Code = strings.TrimSpace(course.Code)
		for j, pre := range course.Prerequisites {
			course.Prerequisites[j] = strings.TrimSpace(pre)
		}
	}
}

// Validate checks the structural rules of a catalog. Structural problems
// (missing aggregate fields, non-positive credits, duplicate codes) return a
// ConfigurationError. Dangling prerequisite edges are returned as warnings.
func (c *Catalog) Validate() ([]models.Diagnostic, error) {
	if c == nil {
		return nil, models.Configf("catalog", "no catalog supplied")
	}
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, models.Configf(fe.Namespace(), "failed %q rule (value %v)", fe.Tag(), fe.Value())
		}
		return nil, models.Configf("catalog", "%v", err)
	}

	seen := make(map[string]bool, len(c.Courses))
	for _, course := range c.Courses {
		if seen[course.Code] {
			return nil, models.Configf("courses", "duplicate course code %s", course.Code)
		}
		seen[course.Code] = true
	}

	var diags []models.Diagnostic
	for _, course := range c.Courses {
		for _, pre := range course.Prerequisites {
			switch {
			case pre == course.Code:
				diags = append(diags, models.Warning(models.DiagSelfPrerequisite, course.Code, -1,
					"%s lists itself as a prerequisite", course.Code))
			case !seen[pre]:
				diags = append(diags, models.Warning(models.DiagUnknownPrerequisite, course.Code, -1,
					"prerequisite %s of %s is not in program %s", pre, course.Code, c.ProgramCode))
			}
		}
	}
	return diags, nil
}
