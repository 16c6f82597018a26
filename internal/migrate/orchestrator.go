// Package migrate drives one end-to-end migration run: collect candidate
// source files (or a deployed project's inventory), scan them for trigger
// declarations, generate one target handler unit per recognized function, and
// accumulate a MigrationReport.
//
// Failures are local by design: a fault while generating or writing one unit
// marks that unit failed and processing continues. Only source-mode
// misconfiguration aborts the run.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/firelift/firelift/internal/gen"
	"github.com/firelift/firelift/internal/model"
	"github.com/firelift/firelift/internal/scan"
)

// ErrInvalidSource is returned when neither or both of the source modes are
// configured. This is the only fatal, run-aborting condition.
var ErrInvalidSource = errors.New("exactly one of source directory or project id must be set")

// ReportFileName is the report document written alongside the output tree.
const ReportFileName = "migration_report.json"

// defaultExcludeDirs are dependency/build directory names never descended
// into during source collection.
var defaultExcludeDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"lib":          true,
	"coverage":     true,
	".next":        true,
	"vendor":       true,
}

// defaultExtensions are the source file extensions considered candidates.
var defaultExtensions = map[string]bool{
	".js":  true,
	".ts":  true,
	".mjs": true,
	".cjs": true,
}

// Options configures one run. Exactly one of SourceRoot or ProjectID must be
// set.
type Options struct {
	SourceRoot string
	ProjectID  string
	OutputRoot string

	// ExcludeDirs and Extensions override the built-in collection filters
	// when non-empty.
	ExcludeDirs []string
	Extensions  []string
}

// Orchestrator runs migrations strictly sequentially: files, then records,
// one at a time. Deterministic output ordering is traded for throughput.
type Orchestrator struct {
	scanner   *scan.Scanner
	generator *gen.Generator
	inventory *Inventory
	log       *zap.Logger
}

// New returns an Orchestrator wired to the given scanner and generator.
// inventory may be nil when remote-project mode is not used.
func New(scanner *scan.Scanner, generator *gen.Generator, inventory *Inventory, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{scanner: scanner, generator: generator, inventory: inventory, log: log}
}

// Run executes one migration and returns its report. The returned error is
// non-nil only for fatal misconfiguration; per-unit failures are recorded in
// the report and never abort the run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*model.MigrationReport, error) {
	report := &model.MigrationReport{
		RunID:     uuid.Must(uuid.NewV7()).String(),
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Warnings:  []string{},
		Errors:    []string{},
		Units:     []model.UnitSummary{},
	}

	if (opts.SourceRoot == "") == (opts.ProjectID == "") {
		o.log.Error("invalid source configuration",
			zap.String("source_root", opts.SourceRoot),
			zap.String("project_id", opts.ProjectID))
		return nil, ErrInvalidSource
	}

	var records []model.FunctionRecord
	if opts.SourceRoot != "" {
		if info, err := os.Stat(opts.SourceRoot); err != nil || !info.IsDir() {
			o.log.Error("source directory not accessible", zap.String("path", opts.SourceRoot), zap.Error(err))
			return nil, fmt.Errorf("source directory %s: %w", opts.SourceRoot, ErrInvalidSource)
		}
		records = o.collectFromDir(opts, report)
	} else {
		records = o.inventory.Collect(ctx, opts.ProjectID, report)
	}

	report.Total = len(records)
	o.log.Info("scan complete", zap.String("run_id", report.RunID), zap.Int("functions", report.Total))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			report.AddWarning(fmt.Sprintf("run canceled before %s: %v", rec.Name, err))
			break
		}
		o.processRecord(rec, opts.OutputRoot, report)
	}

	report.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	if err := o.writeReport(opts.OutputRoot, report); err != nil {
		// The report is still returned; a failed report write is a warning.
		report.AddWarning(fmt.Sprintf("writing report: %v", err))
		o.log.Warn("writing report failed", zap.Error(err))
	}
	return report, nil
}

// collectFromDir walks the source tree and aggregates scanner records across
// files. Duplicate function names overwrite last-write-wins, preserving the
// first occurrence's position in the output order.
func (o *Orchestrator) collectFromDir(opts Options, report *model.MigrationReport) []model.FunctionRecord {
	exclude := defaultExcludeDirs
	if len(opts.ExcludeDirs) > 0 {
		exclude = make(map[string]bool, len(opts.ExcludeDirs))
		for _, d := range opts.ExcludeDirs {
			exclude[d] = true
		}
	}
	extensions := defaultExtensions
	if len(opts.Extensions) > 0 {
		extensions = make(map[string]bool, len(opts.Extensions))
		for _, e := range opts.Extensions {
			extensions[e] = true
		}
	}

	var order []string
	byName := make(map[string]model.FunctionRecord)

	walkErr := filepath.Walk(opts.SourceRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			report.AddWarning(fmt.Sprintf("walking %s: %v", path, err))
			return nil
		}
		if info.IsDir() {
			if exclude[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensions[filepath.Ext(path)] || isNonSourceFile(info.Name()) {
			return nil
		}

		// Files are assumed to fit in memory; no streaming.
		contents, readErr := os.ReadFile(path)
		if readErr != nil {
			// An unreadable file is equivalent to zero matches, never fatal.
			report.AddWarning(fmt.Sprintf("reading %s: %v", path, readErr))
			return nil
		}

		for _, rec := range o.scanner.Scan(string(contents), path) {
			if _, seen := byName[rec.Name]; !seen {
				order = append(order, rec.Name)
			}
			byName[rec.Name] = rec
		}
		return nil
	})
	if walkErr != nil {
		report.AddWarning(fmt.Sprintf("walking source tree: %v", walkErr))
	}

	records := make([]model.FunctionRecord, 0, len(order))
	for _, name := range order {
		records = append(records, byName[name])
	}
	return records
}

// isNonSourceFile filters declarations files and bundler output that never
// hold authored trigger declarations.
func isNonSourceFile(name string) bool {
	return strings.HasSuffix(name, ".d.ts") ||
		strings.HasSuffix(name, ".min.js") ||
		strings.Contains(name, ".test.") ||
		strings.Contains(name, ".spec.")
}

// processRecord generates and persists one unit, classifying the outcome
// into exactly one of the migrated/failed/skipped buckets.
func (o *Orchestrator) processRecord(rec model.FunctionRecord, outputRoot string, report *model.MigrationReport) {
	unit, err := o.generator.Generate(rec)
	if err != nil {
		o.fail(rec, err, report)
		return
	}
	if unit == nil {
		report.SkippedCount++
		report.AddWarning(fmt.Sprintf("%s: unsupported trigger kind %q, skipped", rec.Name, rec.TriggerKind))
		o.log.Warn("skipping unsupported trigger kind",
			zap.String("function", rec.Name),
			zap.String("kind", string(rec.TriggerKind)))
		return
	}

	outDir := filepath.Join(outputRoot, unit.Name)
	if err := o.writeUnit(outDir, unit); err != nil {
		o.fail(rec, err, report)
		return
	}

	report.MigratedCount++
	report.Units = append(report.Units, model.UnitSummary{
		Name:        unit.Name,
		TriggerKind: rec.TriggerKind,
		Status:      model.StatusMigrated,
		OutputPath:  outDir,
	})
	o.log.Info("migrated function",
		zap.String("function", unit.Name),
		zap.String("kind", string(rec.TriggerKind)),
		zap.String("output", outDir))
}

func (o *Orchestrator) fail(rec model.FunctionRecord, err error, report *model.MigrationReport) {
	report.FailedCount++
	report.AddError(fmt.Sprintf("%s: %v", rec.Name, err))
	report.Units = append(report.Units, model.UnitSummary{
		Name:         rec.Name,
		TriggerKind:  rec.TriggerKind,
		Status:       model.StatusFailed,
		ErrorMessage: err.Error(),
	})
	o.log.Error("migration failed for function", zap.String("function", rec.Name), zap.Error(err))
}

// writeUnit persists one generated unit: a handler program plus a minimal
// manifest, in a directory named after the function.
func (o *Orchestrator) writeUnit(dir string, unit *model.GeneratedUnit) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.ts"), []byte(unit.Code), 0644); err != nil {
		return fmt.Errorf("writing handler: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "function.json"), []byte(unit.ManifestStub), 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// writeReport serializes the report document once, alongside the output tree.
func (o *Orchestrator) writeReport(outputRoot string, report *model.MigrationReport) error {
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return fmt.Errorf("creating output root: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputRoot, ReportFileName), data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
