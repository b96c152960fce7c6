// Package store persists students, transcripts, program catalogs and
// generated plans in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Student is the stored identity of a transcript owner.
type Student struct {
	ID          string    `json:"student_id"`
	Name        string    `json:"name,omitempty"`
	ProgramCode string    `json:"program_code"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is a SQLite-backed record store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveStudent inserts or updates a student.
func (s *Store) SaveStudent(ctx context.Context, st Student) error {
	st.ID = strings.TrimSpace(st.ID)
	if st.ID == "" {
		return fmt.Errorf("student id is required")
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO students (student_id, name, program_code, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(student_id) DO UPDATE SET
	name = excluded.name,
	program_code = excluded.program_code,
	updated_at = excluded.updated_at
`, st.ID, st.Name, st.ProgramCode, st.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save student %s: %w", st.ID, err)
	}
	return nil
}

// GetStudent loads one student.
func (s *Store) GetStudent(ctx context.Context, id string) (Student, error) {
	var (
		st      Student
		name    sql.NullString
		program sql.NullString
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT student_id, name, program_code, updated_at FROM students WHERE student_id = ?`, id,
	).Scan(&st.ID, &name, &program, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Student{}, fmt.Errorf("get student %s: %w", id, err)
	}
	st.Name = name.String
	st.ProgramCode = program.String
	st.UpdatedAt = time.UnixMilli(updated).UTC()
	return st, nil
}

// ListStudents returns students ordered by id. An empty programCode lists
// every student.
func (s *Store) ListStudents(ctx context.Context, programCode string) ([]Student, error) {
	query := `SELECT student_id, name, program_code, updated_at FROM students`
	var args []any
	if programCode != "" {
		query += ` WHERE program_code = ?`
		args = append(args, programCode)
	}
	query += ` ORDER BY student_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	out := []Student{}
	for rows.Next() {
		var (
			st            Student
			name, program sql.NullString
			updated       int64
		)
		if err := rows.Scan(&st.ID, &name, &program, &updated); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		st.Name = name.String
		st.ProgramCode = program.String
		st.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
