// Command advisor reconciles student transcripts against program catalogs
// and produces remediation plans.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"academic_advisor/internal/catalog"
	"academic_advisor/internal/config"
	"academic_advisor/internal/logging"
	"academic_advisor/internal/metrics"
	"academic_advisor/internal/service"
	"academic_advisor/internal/store"
)

// app holds state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	// Global flags
	dbPath     string
	catalogDir string
	logLevel   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "advisor",
		Short: "Academic record reconciliation and recommendation engine",
		Long: `advisor reconciles repeated grade observations into one authoritative
grade per course, measures progress against a program catalog and ranks
the courses worth retaking to close a GPA gap.

Settings come from ADVISOR_* environment variables. Flags override them
for a single run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides ADVISOR_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&a.catalogDir, "catalog-dir", "", "Directory of catalog files (overrides ADVISOR_CATALOG_DIR)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		a.analyzeCmd(),
		a.importCmd(),
		a.serveCmd(),
		a.batchCmd(),
		a.catalogCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if flags.Changed("catalog-dir") {
		cfg.CatalogDir = a.catalogDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// registry loads the built-in catalogs plus every file in the catalog
// directory.
func (a *app) registry() (*catalog.Registry, error) {
	builtin, err := catalog.Builtin()
	if err != nil {
		return nil, err
	}
	registry := catalog.NewRegistry(builtin...)
	warnings, err := registry.LoadDir(a.cfg.CatalogDir)
	if err != nil {
		return nil, err
	}
	for code, diags := range warnings {
		logging.Diagnostics(a.logger, diags, zap.String("program_code", code))
	}
	return registry, nil
}

func (a *app) openStore() (*store.Store, error) {
	s, err := store.Open(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("store opened", zap.String("path", a.cfg.DBPath))
	return s, nil
}

// advisor builds a service.Advisor from the loaded config. records and m
// may be nil.
func (a *app) advisor(registry *catalog.Registry, records service.Records, m *metrics.Metrics) *service.Advisor {
	opts := []service.Option{
		service.WithLogger(a.logger),
		service.WithMetrics(m),
		service.WithProgressOptions(a.cfg.ProgressOptions()),
		service.WithRecommendOptions(a.cfg.RecommendOptions()),
		service.WithTargetGPA(a.cfg.TargetGPA),
	}
	if records != nil {
		opts = append(opts, service.WithRecords(records))
	}
	return service.New(registry, opts...)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
