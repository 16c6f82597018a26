package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/firelift/firelift/internal/config"
	"github.com/firelift/firelift/internal/export"
	"github.com/firelift/firelift/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	ProjectID       string
	CredentialsFile string
	OutputDir       string
	Backend         string // "json" | "sqlite"
	DBPath          string
	ConfigPath      string

	BatchSize             int
	Limit                 int
	IncludeSubcollections bool
	MaxDepth              int
	SubcollectionLimit    int
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Export a document collection tree to flat relations",
		Long: `Walk a root collection (and, up to --max-depth, its nested subcollections)
and flatten every level into an independently named relation with explicit
parent-link fields. Each record is written as soon as it is produced, so an
interrupted run leaves valid partial output.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ProjectID, "project", "p", "", "source-platform project id (required)")
	cmd.Flags().StringVar(&opts.CredentialsFile, "credentials", "", "service account credentials file")
	cmd.Flags().StringVarP(&opts.OutputDir, "out", "o", "export", "output directory for relation files")
	cmd.Flags().StringVar(&opts.Backend, "backend", "json", "record store backend (json|sqlite)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "export.db", "sqlite database path (backend=sqlite)")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default: firelift.yaml if present)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 100, "root collection page size")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum root documents to export (0 = all)")
	cmd.Flags().BoolVar(&opts.IncludeSubcollections, "subcollections", false, "recurse into nested subcollections")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 1, "maximum subcollection recursion depth")
	cmd.Flags().IntVar(&opts.SubcollectionLimit, "sub-limit", 100, "maximum documents fetched per subcollection")

	return cmd
}

func runExport(opts *ExportOptions, collection string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.ProjectID == "" {
		_ = formatter.Error(ErrCodeInvalidSource, "a source project id is required (--project)", nil)
		return NewExitError(ExitCommandError, "missing project id")
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error(ErrCodeBadConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	applyExportDefaults(opts, cmd, cfg)

	log := newLogger(opts.Verbose)
	defer log.Sync() //nolint:errcheck

	ctx := cmd.Context()
	source, err := export.NewFirestoreSource(ctx, opts.ProjectID, opts.CredentialsFile)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "connecting to source store", err)
	}
	defer source.Close()

	writer, cleanup, err := newWriter(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening record store", err)
	}
	defer cleanup()

	exporter := export.New(source, writer, nil, log)
	stats, err := exporter.Export(ctx, export.Options{
		Collection:            collection,
		BatchSize:             opts.BatchSize,
		Limit:                 opts.Limit,
		IncludeSubcollections: opts.IncludeSubcollections,
		MaxDepth:              opts.MaxDepth,
		SubcollectionLimit:    opts.SubcollectionLimit,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeExportFailed, err.Error(), map[string]any{"counts": countsOf(stats)})
		return WrapExitError(ExitFailure, "export failed", err)
	}

	return outputExportCounts(formatter, collection, stats)
}

// applyExportDefaults fills flags the user did not set from the config file.
func applyExportDefaults(opts *ExportOptions, cmd *cobra.Command, cfg *config.Config) {
	exp := cfg.Export
	if !cmd.Flags().Changed("batch-size") && exp.BatchSize > 0 {
		opts.BatchSize = exp.BatchSize
	}
	if !cmd.Flags().Changed("limit") && exp.Limit > 0 {
		opts.Limit = exp.Limit
	}
	if !cmd.Flags().Changed("subcollections") && exp.IncludeSubcollections {
		opts.IncludeSubcollections = true
	}
	if !cmd.Flags().Changed("max-depth") && exp.MaxDepth > 0 {
		opts.MaxDepth = exp.MaxDepth
	}
	if !cmd.Flags().Changed("sub-limit") && exp.SubcollectionLimit > 0 {
		opts.SubcollectionLimit = exp.SubcollectionLimit
	}
}

// newWriter builds the configured record-store backend.
func newWriter(opts *ExportOptions) (export.RelationWriter, func(), error) {
	switch opts.Backend {
	case "json":
		w, err := export.NewJSONWriter(opts.OutputDir)
		if err != nil {
			return nil, nil, err
		}
		return w, func() {}, nil
	case "sqlite":
		st, err := store.Open(opts.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return export.NewSQLiteWriter(st), func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q: must be json or sqlite", opts.Backend)
	}
}

func countsOf(stats *export.Stats) map[string]int {
	if stats == nil {
		return nil
	}
	return stats.Counts
}

func outputExportCounts(formatter *OutputFormatter, collection string, stats *export.Stats) error {
	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"collection": collection,
			"counts":     stats.Counts,
		})
	}

	relations := make([]string, 0, len(stats.Counts))
	total := 0
	for relation, count := range stats.Counts {
		relations = append(relations, relation)
		total += count
	}
	sort.Strings(relations)

	fmt.Fprintf(formatter.Writer, "✓ Exported %d record(s) across %d relation(s)\n\n", total, len(relations))
	for _, relation := range relations {
		fmt.Fprintf(formatter.Writer, "  %s: %d record(s)\n", relation, stats.Counts[relation])
	}
	return nil
}
