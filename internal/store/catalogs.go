package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"academic_advisor/internal/catalog"
)

// SaveCatalog replaces a program and its courses.
func (s *Store) SaveCatalog(ctx context.Context, cat *catalog.Catalog) error {
	if cat == nil || cat.ProgramCode == "" {
		return fmt.Errorf("catalog with a program code is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		code := cat.ProgramCode
		if _, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE program_code = ?`, code); err != nil {
			return fmt.Errorf("clear program %s: %w", code, err)
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO programs (program_code, program_name, degree_level, total_required_credits, graduation_gpa)
VALUES (?, ?, ?, ?, ?)`, code, cat.ProgramName, cat.DegreeLevel, cat.TotalRequiredCredits, cat.GraduationGPA)
		if err != nil {
			return fmt.Errorf("insert program %s: %w", code, err)
		}

		for i, c := range cat.Courses {
			_, err := tx.ExecContext(ctx, `
INSERT INTO program_courses (program_code, position, course_code, name, credits, category, recommended_term, description)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, code, i, c.Code, c.Name, c.Credits, string(c.Category), c.RecommendedTerm, c.Description)
			if err != nil {
				return fmt.Errorf("insert course %s/%s: %w", code, c.Code, err)
			}
			for j, pre := range c.Prerequisites {
				_, err := tx.ExecContext(ctx, `
INSERT INTO course_prerequisites (program_code, course_code, position, prerequisite_code)
VALUES (?, ?, ?, ?)`, code, c.Code, j, pre)
				if err != nil {
					return fmt.Errorf("insert prerequisite %s for %s: %w", pre, c.Code, err)
				}
			}
		}
		return nil
	})
}

// LoadCatalog loads a program by code.
func (s *Store) LoadCatalog(ctx context.Context, programCode string) (*catalog.Catalog, error) {
	cat := &catalog.Catalog{ProgramCode: programCode}
	var degree sql.NullString
	var gradGPA sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
SELECT program_name, degree_level, total_required_credits, graduation_gpa
FROM programs WHERE program_code = ?`, programCode,
	).Scan(&cat.ProgramName, &degree, &cat.TotalRequiredCredits, &gradGPA)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("program %s: %w", programCode, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load program %s: %w", programCode, err)
	}
	cat.DegreeLevel = degree.String
	cat.GraduationGPA = gradGPA.Float64

	prereqs, err := s.loadPrerequisites(ctx, programCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT course_code, name, credits, category, recommended_term, description
FROM program_courses
WHERE program_code = ?
ORDER BY position`, programCode)
	if err != nil {
		return nil, fmt.Errorf("load courses for %s: %w", programCode, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                 catalog.Course
			name, description sql.NullString
			category          string
			term              sql.NullInt64
		)
		if err := rows.Scan(&c.Code, &name, &c.Credits, &category, &term, &description); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		c.Name = name.String
		c.Description = description.String
		c.RecommendedTerm = int(term.Int64)
		c.Category, err = catalog.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("course %s/%s: %w", programCode, c.Code, err)
		}
		c.Prerequisites = prereqs[c.Code]
		cat.Courses = append(cat.Courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Store) loadPrerequisites(ctx context.Context, programCode string) (map[string][]string, error) {
	out := make(map[string][]string)
	rows, err := s.db.QueryContext(ctx, `
SELECT course_code, prerequisite_code
FROM course_prerequisites
WHERE program_code = ?
ORDER BY course_code, position`, programCode)
	if err != nil {
		return nil, fmt.Errorf("load prerequisites for %s: %w", programCode, err)
	}
	defer rows.Close()

	for rows.Next() {
		var code, pre string
		if err := rows.Scan(&code, &pre); err != nil {
			return nil, fmt.Errorf("scan prerequisite: %w", err)
		}
		out[code] = append(out[code], pre)
	}
	return out, rows.Err()
}

// ListCatalogs returns stored program codes in order.
func (s *Store) ListCatalogs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT program_code FROM programs ORDER BY program_code`)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan program code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
