// Package catalog describes a training program's curriculum: its courses,
// their credits and categories, prerequisite edges and the total credit
// requirement. A Catalog is loaded once per analysis session and treated as
// read-only afterwards.
package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is the curriculum bucket a course belongs to.
type Category string

const (
	CategoryGeneral    Category = "General"
	CategoryFoundation Category = "Foundation"
	CategoryMajor      Category = "Major"
	CategoryElective   Category = "Elective"
	CategoryThesis     Category = "Thesis"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryGeneral,
	CategoryFoundation,
	CategoryMajor,
	CategoryElective,
	CategoryThesis,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	name := strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(name, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown course category %q", s)
}

// UnmarshalText lets JSON and YAML catalogs spell categories in any case.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalYAML decodes a scalar category name.
func (c *Category) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	return c.UnmarshalText([]byte(name))
}

// IsElective reports whether courses in c are optional picks.
func (c Category) IsElective() bool {
	return c == CategoryElective
}

// Course is one catalog entry.
type Course struct {
	Code            string   `json:"code" yaml:"code" validate:"required"`
	Name            string   `json:"name" yaml:"name"`
	Credits         int      `json:"credits" yaml:"credits" validate:"gt=0"`
	Category        Category `json:"category" yaml:"category" validate:"required,oneof=General Foundation Major Elective Thesis"`
	Prerequisites   []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty" validate:"dive,required"`
	RecommendedTerm int      `json:"recommended_term,omitempty" yaml:"recommended_term,omitempty" validate:"gte=0"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Catalog is the declared set of courses and credit requirements for a program.
type Catalog struct {
	ProgramName          string   `json:"program_name" yaml:"program_name" validate:"required"`
	ProgramCode          string   `json:"program_code" yaml:"program_code" validate:"required"`
	DegreeLevel          string   `json:"degree_level,omitempty" yaml:"degree_level,omitempty"`
	TotalRequiredCredits int      `json:"total_required_credits" yaml:"total_required_credits" validate:"gt=0"`
	GraduationGPA        float64  `json:"graduation_gpa,omitempty" yaml:"graduation_gpa,omitempty" validate:"gte=0,lte=4"`
	Courses              []Course `json:"courses" yaml:"courses" validate:"required,min=1,dive"`
}

// Lookup finds a course by code.
func (c *Catalog) Lookup(code string) (Course, bool) {
	for _, course := range c.Courses {
		if course.Code == code {
			return course, true
		}
	}
	return Course{}, false
}

// Index returns a fresh code -> course map.
func (c *Catalog) Index() map[string]Course {
	index := make(map[string]Course, len(c.Courses))
	for _, course := range c.Courses {
		index[course.Code] = course
	}
	return index
}

// Codes returns course codes in catalog order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.Courses))
	for _, course := range c.Courses {
		codes = append(codes, course.Code)
	}
	return codes
}

// CoursesByCategory returns the courses of one category in catalog order.
func (c *Catalog) CoursesByCategory(category Category) []Course {
	var courses []Course
	for _, course := range c.Courses {
		if course.Category == category {
			courses = append(courses, course)
		}
	}
	return courses
}

// CreditsByCategory sums the credits declared for one category.
func (c *Catalog) CreditsByCategory(category Category) int {
	total := 0
	for _, course := range c.CoursesByCategory(category) {
		total += course.Credits
	}
	return total
}

// DeclaredCredits sums the credits of every listed course. It can differ from
// TotalRequiredCredits when a catalog lists only part of a program.
func (c *Catalog) DeclaredCredits() int {
	total := 0
	for _, course := range c.Courses {
		total += course.Credits
	}
	return total
}
