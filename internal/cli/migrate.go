package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firelift/firelift/internal/config"
	"github.com/firelift/firelift/internal/gen"
	"github.com/firelift/firelift/internal/migrate"
	"github.com/firelift/firelift/internal/model"
	"github.com/firelift/firelift/internal/rewrite"
	"github.com/firelift/firelift/internal/scan"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	SourceRoot string
	ProjectID  string
	OutputRoot string
	ConfigPath string
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Convert source-platform functions to target edge handlers",
		Long: `Scan a source tree (or a deployed project) for trigger-style function
declarations and emit one target handler unit per function, plus a migration
report. Exactly one of --source or --project must be given.

Per-function failures never abort the run; they are collected in the report
and reflected in the exit code (1). Misconfiguration exits 2.`,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.SourceRoot, "source", "s", "", "source directory to scan")
	cmd.Flags().StringVarP(&opts.ProjectID, "project", "p", "", "deployed source-platform project id")
	cmd.Flags().StringVarP(&opts.OutputRoot, "output", "o", "supabase/functions", "output directory for generated units")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default: firelift.yaml if present)")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error(ErrCodeBadConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	extraRules, err := cfg.CompiledRules()
	if err != nil {
		_ = formatter.Error(ErrCodeBadConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	log := newLogger(opts.Verbose)
	defer log.Sync() //nolint:errcheck // stderr sync failure is uninteresting

	scanner := scan.NewScanner()
	generator := gen.New(rewrite.New(extraRules...))
	inventory := migrate.NewInventory(scanner, nil, nil, log)
	orchestrator := migrate.New(scanner, generator, inventory, log)

	formatter.VerboseLog("Starting migration run (source=%q project=%q)", opts.SourceRoot, opts.ProjectID)

	report, err := orchestrator.Run(cmd.Context(), migrate.Options{
		SourceRoot:  opts.SourceRoot,
		ProjectID:   opts.ProjectID,
		OutputRoot:  opts.OutputRoot,
		ExcludeDirs: cfg.Migrate.ExcludeDirs,
		Extensions:  cfg.Migrate.Extensions,
	})
	if err != nil {
		code := ErrCodeGeneric
		if errors.Is(err, migrate.ErrInvalidSource) {
			code = ErrCodeInvalidSource
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "migration aborted", err)
	}

	return outputMigrateReport(formatter, report)
}

// loadConfig resolves the explicit --config path or the optional default
// file.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// outputMigrateReport renders the report and maps unit failures to exit
// code 1.
func outputMigrateReport(formatter *OutputFormatter, report *model.MigrationReport) error {
	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		printReport(formatter, report)
	}

	if report.FailedCount > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d unit(s) failed", report.FailedCount))
	}
	return nil
}

func printReport(formatter *OutputFormatter, report *model.MigrationReport) {
	w := formatter.Writer
	fmt.Fprintf(w, "Migration run %s\n", report.RunID)
	fmt.Fprintf(w, "  total: %d  migrated: %d  failed: %d  skipped: %d\n\n",
		report.Total, report.MigratedCount, report.FailedCount, report.SkippedCount)

	for _, unit := range report.Units {
		switch unit.Status {
		case model.StatusMigrated:
			fmt.Fprintf(w, "  ✓ %s (%s) -> %s\n", unit.Name, unit.TriggerKind, unit.OutputPath)
		case model.StatusFailed:
			fmt.Fprintf(w, "  ✗ %s (%s): %s\n", unit.Name, unit.TriggerKind, unit.ErrorMessage)
		}
	}
	if len(report.Units) > 0 {
		fmt.Fprintln(w)
	}

	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	for _, msg := range report.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
}
