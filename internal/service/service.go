// Package service wires reconciliation, progress analysis and the
// recommendation engine to catalogs, persistence, metrics and logging.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"academic_advisor/internal/catalog"
	"academic_advisor/internal/logging"
	"academic_advisor/internal/metrics"
	"academic_advisor/internal/models"
	"academic_advisor/internal/progress"
	"academic_advisor/internal/recommend"
	"academic_advisor/internal/reconcile"
	"academic_advisor/internal/store"
	"academic_advisor/internal/transcript"
)

// EngineVersion is stamped on every analysis.
const EngineVersion = "1.0"

var (
	// ErrUnknownProgram means no catalog is registered or stored for a code.
	ErrUnknownProgram = errors.New("unknown program")
	// ErrInvalidRequest means the request itself is unusable.
	ErrInvalidRequest = errors.New("invalid request")
)

// Records is the persistence the advisor needs. *store.Store implements it.
type Records interface {
	SaveStudent(ctx context.Context, st store.Student) error
	GetStudent(ctx context.Context, id string) (store.Student, error)
	ListStudents(ctx context.Context, programCode string) ([]store.Student, error)
	ReplaceObservations(ctx context.Context, studentID string, obs []models.GradeObservation) error
	LoadObservations(ctx context.Context, studentID string) ([]models.GradeObservation, error)
	SaveGPAHistory(ctx context.Context, studentID string, history []models.GPARecord) error
	LoadStanding(ctx context.Context, studentID string) (models.Standing, error)
	SaveCatalog(ctx context.Context, cat *catalog.Catalog) error
	LoadCatalog(ctx context.Context, programCode string) (*catalog.Catalog, error)
	ListCatalogs(ctx context.Context) ([]string, error)
	SavePlan(ctx context.Context, rec store.PlanRecord) error
	LatestPlan(ctx context.Context, studentID string) (store.PlanRecord, error)
}

// Advisor runs analyses.
type Advisor struct {
	catalogs *catalog.Registry
	records  Records
	metrics  *metrics.Metrics
	logger   *zap.Logger

	progressOpts  progress.Options
	recommendOpts recommend.Options
	targetGPA     float64

	now func() time.Time
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithRecords enables persistence and stored-catalog lookup.
func WithRecords(r Records) Option { return func(a *Advisor) { a.records = r } }

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(a *Advisor) { a.metrics = m } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option { return func(a *Advisor) { a.logger = l } }

// WithProgressOptions overrides analyzer options.
func WithProgressOptions(o progress.Options) Option { return func(a *Advisor) { a.progressOpts = o } }

// WithRecommendOptions overrides engine options.
func WithRecommendOptions(o recommend.Options) Option {
	return func(a *Advisor) { a.recommendOpts = o }
}

// WithTargetGPA sets the default target GPA.
func WithTargetGPA(gpa float64) Option { return func(a *Advisor) { a.targetGPA = gpa } }

// New creates an Advisor resolving programs from catalogs first, then from
// the records store when one is configured.
func New(catalogs *catalog.Registry, opts ...Option) *Advisor {
	if catalogs == nil {
		catalogs = catalog.NewRegistry()
	}
	a := &Advisor{
		catalogs:      catalogs,
		logger:        zap.NewNop(),
		progressOpts:  progress.DefaultOptions(),
		recommendOpts: recommend.DefaultOptions(),
		targetGPA:     3.6,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeRequest is one analysis input.
type AnalyzeRequest struct {
	StudentID    string                    `json:"student_id"`
	ProgramCode  string                    `json:"program_code" binding:"required"`
	Observations []models.GradeObservation `json:"observations"`
	GPAHistory   []models.GPARecord        `json:"gpa_history"`
	// Standing overrides the standing derived from GPAHistory.
	Standing *models.Standing `json:"standing,omitempty"`
	// TargetGPA overrides the configured target.
	TargetGPA *float64 `json:"target_gpa,omitempty" binding:"omitempty,gte=0,lte=4"`
	// Persist saves the resulting plan for StudentID.
	Persist bool `json:"persist,omitempty"`
}

// Reconciliation is the JSON view of a reconcile.Result.
type Reconciliation struct {
	Grades      []models.AuthoritativeGrade `json:"grades"`
	Skipped     int                         `json:"skipped"`
	Diagnostics []models.Diagnostic         `json:"diagnostics,omitempty"`
}

// Metadata describes how an analysis was produced.
type Metadata struct {
	GeneratedAt      time.Time `json:"generated_at"`
	EngineVersion    string    `json:"engine_version"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

// Analysis is the full output for one student.
type Analysis struct {
	ID             string           `json:"analysis_id"`
	StudentID      string           `json:"student_id,omitempty"`
	ProgramCode    string           `json:"program_code"`
	Status         string           `json:"status"`
	Reconciliation Reconciliation   `json:"reconciliation"`
	Progress       *progress.Report `json:"progress"`
	Plan           *recommend.Plan  `json:"plan"`
	Metadata       Metadata         `json:"metadata"`
}

// Diagnostics gathers every diagnostic produced along the pipeline.
func (a *Analysis) Diagnostics() []models.Diagnostic {
	var out []models.Diagnostic
	out = append(out, a.Reconciliation.Diagnostics...)
	if a.Progress != nil {
		out = append(out, a.Progress.Diagnostics...)
	}
	if a.Plan != nil {
		out = append(out, a.Plan.Diagnostics...)
	}
	return out
}

// Analyze runs the full pipeline for one request.
func (a *Advisor) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	startTime := a.now()
	result, err := a.analyze(ctx, req, startTime)
	a.metrics.ObserveAnalysis(outcome(err), a.now().Sub(startTime))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *Advisor) analyze(ctx context.Context, req AnalyzeRequest, startTime time.Time) (*Analysis, error) {
	req.ProgramCode = strings.TrimSpace(req.ProgramCode)
	if req.ProgramCode == "" {
		return nil, fmt.Errorf("%w: program code is required", ErrInvalidRequest)
	}
	target := a.targetGPA
	if req.TargetGPA != nil {
		target = *req.TargetGPA
	}

	// Step 1: Resolve the program catalog
	cat, err := a.Catalog(ctx, req.ProgramCode)
	if err != nil {
		return nil, err
	}

	// Step 2: Reconcile the full observation batch
	reconciled := reconcile.Reconcile(req.Observations)
	a.metrics.ObserveReconcile(reconciled.Skipped, nil)

	// Step 3: Current standing
	standing := models.StandingFromHistory(req.GPAHistory)
	if req.Standing != nil {
		standing = *req.Standing
	}

	// Step 4: Progress against the catalog
	report, err := progress.Analyze(cat, reconciled.Grades, standing, a.progressOpts)
	if err != nil {
		return nil, err
	}

	// Step 5: Remediation plan
	plan, err := recommend.Recommend(report, reconciled.Grades, target, a.recommendOpts)
	if err != nil {
		return nil, err
	}

	// Step 6: Build final response
	result := &Analysis{
		ID:          uuid.NewString(),
		StudentID:   strings.TrimSpace(req.StudentID),
		ProgramCode: cat.ProgramCode,
		Status:      "success",
		Reconciliation: Reconciliation{
			Grades:      reconciled.Sorted(),
			Skipped:     reconciled.Skipped,
			Diagnostics: reconciled.Diagnostics,
		},
		Progress: report,
		Plan:     plan,
		Metadata: Metadata{
			GeneratedAt:      a.now().UTC(),
			EngineVersion:    EngineVersion,
			ProcessingTimeMs: a.now().Sub(startTime).Milliseconds(),
		},
	}

	diags := result.Diagnostics()
	a.metrics.ObserveDiagnostics(diags)
	a.metrics.ObserveCandidates(len(plan.Candidates))
	logging.Diagnostics(a.logger, diags,
		zap.String("analysis_id", result.ID),
		zap.String("student_id", result.StudentID),
		zap.String("program_code", result.ProgramCode))

	if req.Persist {
		if err := a.savePlan(ctx, result); err != nil {
			return nil, err
		}
	}

	a.logger.Info("analysis complete",
		zap.String("analysis_id", result.ID),
		zap.String("student_id", result.StudentID),
		zap.String("program_code", result.ProgramCode),
		zap.Float64("completion_rate", report.CompletionRate),
		zap.Int("candidates", len(plan.Candidates)),
		zap.Int("skipped", reconciled.Skipped))
	return result, nil
}

// AnalyzeStudent analyzes a stored student against their program.
func (a *Advisor) AnalyzeStudent(ctx context.Context, studentID string, persist bool) (*Analysis, error) {
	if a.records == nil {
		return nil, fmt.Errorf("%w: no records store configured", ErrInvalidRequest)
	}
	st, err := a.records.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	obs, err := a.records.LoadObservations(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	standing, err := a.records.LoadStanding(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, AnalyzeRequest{
		StudentID:    st.ID,
		ProgramCode:  st.ProgramCode,
		Observations: obs,
		Standing:     &standing,
		Persist:      persist,
	})
}

func (a *Advisor) savePlan(ctx context.Context, result *Analysis) error {
	if a.records == nil || result.StudentID == "" {
		return fmt.Errorf("%w: persisting a plan needs a records store and a student id", ErrInvalidRequest)
	}
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return a.records.SavePlan(ctx, store.PlanRecord{
		ID:          result.ID,
		StudentID:   result.StudentID,
		ProgramCode: result.ProgramCode,
		CreatedAt:   result.Metadata.GeneratedAt,
		Body:        body,
	})
}

// LatestPlan returns the most recent stored analysis for a student.
func (a *Advisor) LatestPlan(ctx context.Context, studentID string) (store.PlanRecord, error) {
	if a.records == nil {
		return store.PlanRecord{}, fmt.Errorf("plan for %s: %w", studentID, store.ErrNotFound)
	}
	return a.records.LatestPlan(ctx, studentID)
}

// ImportTranscript stores a decoded transcript, replacing any previous
// batch. programCode is used when the document carries none.
func (a *Advisor) ImportTranscript(ctx context.Context, doc *transcript.Document, programCode string) (store.Student, error) {
	if doc == nil {
		return store.Student{}, fmt.Errorf("%w: no transcript supplied", ErrInvalidRequest)
	}
	program := doc.ProgramCode
	if program == "" {
		program = programCode
	}
	st := store.Student{ID: doc.StudentID, Name: doc.Name, ProgramCode: program}
	return a.ImportBatch(ctx, st, doc.Batch(), doc.History())
}

// ImportBatch stores a student with a full observation batch and GPA
// history. A nil history keeps the stored one.
func (a *Advisor) ImportBatch(ctx context.Context, st store.Student, batch []models.GradeObservation, history []models.GPARecord) (store.Student, error) {
	if a.records == nil {
		return store.Student{}, fmt.Errorf("%w: no records store configured", ErrInvalidRequest)
	}
	st.ID = strings.TrimSpace(st.ID)
	st.ProgramCode = strings.TrimSpace(st.ProgramCode)
	if st.ID == "" {
		return store.Student{}, fmt.Errorf("%w: transcript has no student id", ErrInvalidRequest)
	}
	if st.ProgramCode == "" {
		return store.Student{}, fmt.Errorf("%w: no program code for student %s", ErrInvalidRequest, st.ID)
	}
	st.UpdatedAt = a.now().UTC()

	if err := a.records.SaveStudent(ctx, st); err != nil {
		return store.Student{}, err
	}
	if err := a.records.ReplaceObservations(ctx, st.ID, batch); err != nil {
		return store.Student{}, err
	}
	if history != nil {
		if err := a.records.SaveGPAHistory(ctx, st.ID, history); err != nil {
			return store.Student{}, err
		}
	}
	a.logger.Info("transcript imported",
		zap.String("student_id", st.ID),
		zap.String("program_code", st.ProgramCode),
		zap.Int("observations", len(batch)))
	return st, nil
}

// Catalog resolves a program from the registry, then the records store.
func (a *Advisor) Catalog(ctx context.Context, code string) (*catalog.Catalog, error) {
	if cat, ok := a.catalogs.Get(code); ok {
		return cat, nil
	}
	if a.records != nil {
		cat, err := a.records.LoadCatalog(ctx, code)
		if err == nil {
			return cat, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, code)
}

// Catalogs lists every known program code.
func (a *Advisor) Catalogs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, code := range a.catalogs.Codes() {
		seen[code] = struct{}{}
	}
	if a.records != nil {
		stored, err := a.records.ListCatalogs(ctx)
		if err != nil {
			return nil, err
		}
		for _, code := range stored {
			seen[code] = struct{}{}
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// ImportCatalog validates, registers and (when a store is configured)
// persists a catalog.
func (a *Advisor) ImportCatalog(ctx context.Context, cat *catalog.Catalog) ([]models.Diagnostic, error) {
	if cat == nil {
		return nil, models.Configf("catalog", "no catalog supplied")
	}
	cat.Normalize()
	diags, err := cat.Validate()
	if err != nil {
		return nil, err
	}
	if a.records != nil {
		if err := a.records.SaveCatalog(ctx, cat); err != nil {
			return nil, err
		}
	}
	a.catalogs.Add(cat)
	logging.Diagnostics(a.logger, diags, zap.String("program_code", cat.ProgramCode))
	return diags, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, models.ErrConfiguration):
		return metrics.OutcomeConfigError
	case errors.Is(err, ErrUnknownProgram), errors.Is(err, store.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
