package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"academic_advisor/internal/api"
	"academic_advisor/internal/catalog"
	"academic_advisor/internal/logging"
	"academic_advisor/internal/metrics"
	"academic_advisor/internal/models"
	"academic_advisor/internal/service"
	"academic_advisor/internal/store"
	"academic_advisor/internal/transcript"
)

// transcriptInput is a decoded transcript file of either format.
type transcriptInput struct {
	studentID string
	name      string
	program   string
	batch     []models.GradeObservation
	history   []models.GPARecord
}

// readTranscript decodes path as CSV when it has a .csv extension and as a
// JSON document otherwise. CSV files carry no GPA history.
func readTranscript(path string) (*transcriptInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		batch, err := transcript.DecodeCSV(f)
		if err != nil {
			return nil, err
		}
		return &transcriptInput{batch: batch}, nil
	}

	doc, err := transcript.Decode(f)
	if err != nil {
		return nil, err
	}
	return &transcriptInput{
		studentID: doc.StudentID,
		name:      doc.Name,
		program:   doc.ProgramCode,
		batch:     doc.Batch(),
		history:   doc.History(),
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// analyzeCmd analyzes one transcript file and prints the report.
func (a *app) analyzeCmd() *cobra.Command {
	var (
		program   string
		studentID string
		targetGPA float64
		persist   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [transcript-file]",
		Short: "Analyze a transcript file and print the JSON report",
		Long: `Reconciles the observations in a JSON or CSV transcript, measures progress
against the program catalog and prints the remediation plan as JSON.

Example:
  advisor analyze transcript.json --program D520207 --target-gpa 3.2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readTranscript(args[0])
			if err != nil {
				return err
			}
			if studentID != "" {
				in.studentID = studentID
			}
			if program != "" {
				in.program = program
			}

			registry, err := a.registry()
			if err != nil {
				return err
			}
			var advisor *service.Advisor
			if persist {
				records, err := a.openStore()
				if err != nil {
					return err
				}
				defer records.Close()
				advisor = a.advisor(registry, records, nil)
			} else {
				advisor = a.advisor(registry, nil, nil)
			}

			req := service.AnalyzeRequest{
				StudentID:    in.studentID,
				ProgramCode:  in.program,
				Observations: in.batch,
				GPAHistory:   in.history,
				Persist:      persist,
			}
			if cmd.Flags().Changed("target-gpa") {
				req.TargetGPA = &targetGPA
			}
			result, err := advisor.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&program, "program", "p", "", "Program code (defaults to the transcript's program_code)")
	cmd.Flags().StringVar(&studentID, "student", "", "Student id (defaults to the transcript's student_id)")
	cmd.Flags().Float64Var(&targetGPA, "target-gpa", 0, "Target GPA on the 4-point scale (overrides ADVISOR_TARGET_GPA)")
	cmd.Flags().BoolVar(&persist, "persist", false, "Save the plan to the store")
	return cmd
}

// importCmd stores a transcript from a file or the records service.
func (a *app) importCmd() *cobra.Command {
	var (
		program   string
		studentID string
		url       string
	)
	cmd := &cobra.Command{
		Use:   "import [transcript-file]",
		Short: "Import a transcript into the store",
		Long: `Stores a student's observation batch, replacing any earlier import.
Without a file the transcript is fetched from the records service
(--url or ADVISOR_TRANSCRIPT_URL) for --student.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in *transcriptInput
			if len(args) == 1 {
				var err error
				if in, err = readTranscript(args[0]); err != nil {
					return err
				}
			} else {
				base := url
				if base == "" {
					base = a.cfg.TranscriptURL
				}
				if base == "" || studentID == "" {
					return fmt.Errorf("a transcript file, or --student with a records service URL, is required")
				}
				client := transcript.NewClient(base, a.cfg.TranscriptTimeout, a.cfg.TranscriptRPS)
				client.Token = a.cfg.TranscriptToken
				doc, err := client.Fetch(cmd.Context(), studentID)
				if err != nil {
					return err
				}
				in = &transcriptInput{
					studentID: doc.StudentID,
					name:      doc.Name,
					program:   doc.ProgramCode,
					batch:     doc.Batch(),
					history:   doc.History(),
				}
			}
			if studentID != "" {
				in.studentID = studentID
			}
			if program != "" {
				in.program = program
			}

			records, err := a.openStore()
			if err != nil {
				return err
			}
			defer records.Close()

			advisor := a.advisor(catalog.NewRegistry(), records, nil)
			st, err := advisor.ImportBatch(cmd.Context(),
				store.Student{ID: in.studentID, Name: in.name, ProgramCode: in.program}, in.batch, in.history)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d observations for %s (%s)\n", len(in.batch), st.ID, st.ProgramCode)
			return nil
		},
	}
	cmd.Flags().StringVarP(&program, "program", "p", "", "Program code (defaults to the transcript's program_code)")
	cmd.Flags().StringVar(&studentID, "student", "", "Student id (required for CSV files and remote fetches)")
	cmd.Flags().StringVar(&url, "url", "", "Records service base URL (overrides ADVISOR_TRANSCRIPT_URL)")
	return cmd
}

// batchCmd evaluates every stored student and writes the CSV summary.
func (a *app) batchCmd() *cobra.Command {
	var (
		program string
		workers int
		out     string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate all stored students and write a CSV summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Workers
			}

			registry, err := a.registry()
			if err != nil {
				return err
			}
			records, err := a.openStore()
			if err != nil {
				return err
			}
			defer records.Close()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			advisor := a.advisor(registry, records, nil)
			summary, err := advisor.EvaluateAll(cmd.Context(), program, workers, w)
			if err != nil {
				return err
			}
			a.logger.Info("batch evaluation complete",
				zap.Int("students", summary.Students),
				zap.Int("evaluated", summary.Evaluated),
				zap.Int("skipped", summary.Skipped),
				zap.Float64("average_completion", summary.AverageCompletion))
			return nil
		},
	}
	cmd.Flags().StringVarP(&program, "program", "p", "", "Only evaluate students of this program")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent analyses (overrides ADVISOR_WORKERS)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "CSV output file (default stdout)")
	return cmd
}

// catalogCmd groups catalog maintenance.
func (a *app) catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate, import and list program catalogs",
	}

	validateCmd := &cobra.Command{
		Use:   "validate [catalog-file]",
		Short: "Validate a catalog file and print its warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, diags, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			logging.Diagnostics(a.logger, diags, zap.String("program_code", cat.ProgramCode))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d courses, %d warnings\n", cat.ProgramCode, len(cat.Courses), len(diags))
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import [catalog-file]",
		Short: "Validate a catalog file and save it to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			records, err := a.openStore()
			if err != nil {
				return err
			}
			defer records.Close()

			advisor := a.advisor(catalog.NewRegistry(), records, nil)
			diags, err := advisor.ImportCatalog(cmd.Context(), cat)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d courses, %d warnings\n", cat.ProgramCode, len(cat.Courses), len(diags))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in, directory and stored catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}
			records, err := a.openStore()
			if err != nil {
				return err
			}
			defer records.Close()

			codes, err := a.advisor(registry, records, nil).Catalogs(cmd.Context())
			if err != nil {
				return err
			}
			for _, code := range codes {
				fmt.Fprintln(cmd.OutOrStdout(), code)
			}
			return nil
		},
	}

	cmd.AddCommand(validateCmd, importCmd, listCmd)
	return cmd
}

// serveCmd runs the HTTP API until interrupted.
func (a *app) serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the advisor HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			if !a.cfg.LogDevelopment {
				gin.SetMode(gin.ReleaseMode)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry, err := a.registry()
			if err != nil {
				return err
			}
			records, err := a.openStore()
			if err != nil {
				return err
			}
			defer records.Close()

			if a.cfg.WatchCatalogs {
				watcher := catalog.NewWatcher(a.cfg.CatalogDir, registry, func(warnings map[string][]models.Diagnostic, err error) {
					if err != nil {
						a.logger.Error("catalog reload failed", zap.Error(err))
						return
					}
					for code, diags := range warnings {
						a.logger.Warn("catalog reloaded with warnings",
							zap.String("program_code", code), zap.Int("warnings", len(diags)))
					}
					a.logger.Info("catalogs reloaded", zap.Strings("programs", registry.Codes()))
				})
				if err := watcher.Start(ctx); err != nil {
					a.logger.Warn("catalog watcher disabled", zap.String("dir", a.cfg.CatalogDir), zap.Error(err))
				} else {
					defer watcher.Stop()
				}
			}

			m := metrics.New()
			advisor := a.advisor(registry, records, m)
			router := api.NewRouter(api.Options{
				Advisor:         advisor,
				Metrics:         m,
				Logger:          a.logger,
				Token:           a.cfg.APIToken,
				StoreConfigured: true,
			})
			if a.cfg.APIToken == "" {
				a.logger.Warn("API_TOKEN not set, authentication disabled")
			}
			return api.NewServer(a.cfg, router, a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides ADVISOR_PORT)")
	return cmd
}
