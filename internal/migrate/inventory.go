package migrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/firelift/firelift/internal/model"
	"github.com/firelift/firelift/internal/scan"
)

// CommandRunner executes the source platform's CLI and returns its stdout.
// Injectable so inventory parsing is testable without the real CLI.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Fetcher retrieves a URL's body. Injectable for the same reason.
type Fetcher func(ctx context.Context, url string) (string, error)

// Inventory queries a deployed source-platform project for its function
// inventory and best-effort recovers each function's source.
type Inventory struct {
	scanner *scan.Scanner
	run     CommandRunner
	fetch   Fetcher
	log     *zap.Logger
}

// NewInventory returns an Inventory with the default subprocess runner and
// HTTP fetcher when run or fetch are nil.
func NewInventory(scanner *scan.Scanner, run CommandRunner, fetch Fetcher, log *zap.Logger) *Inventory {
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		}
	}
	if fetch == nil {
		fetch = httpFetch
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Inventory{scanner: scanner, run: run, fetch: fetch, log: log}
}

// inventoryEntry is one heuristically parsed line of the platform CLI's
// function listing.
type inventoryEntry struct {
	Name string
	Kind model.TriggerKind
	URL  string
}

// Collect lists the project's deployed functions and produces one record per
// entry. Fetching remote source is best-effort: on failure a minimal
// template-only record is still produced and a warning recorded.
func (inv *Inventory) Collect(ctx context.Context, projectID string, report *model.MigrationReport) []model.FunctionRecord {
	out, err := inv.run(ctx, "firebase", "functions:list", "--project", projectID)
	if err != nil {
		report.AddWarning(fmt.Sprintf("listing functions for project %s: %v", projectID, err))
		inv.log.Warn("function inventory failed", zap.String("project", projectID), zap.Error(err))
		return nil
	}

	var records []model.FunctionRecord
	for _, entry := range parseInventory(string(out)) {
		rec, warn := inv.recordFor(ctx, projectID, entry)
		if warn != "" {
			report.AddWarning(warn)
		}
		records = append(records, rec)
	}
	return records
}

// recordFor tries to recover the deployed source for one inventory entry.
// When the source cannot be fetched or does not scan, a placeholder record
// is produced so the unit is still emitted as a template.
func (inv *Inventory) recordFor(ctx context.Context, projectID string, entry inventoryEntry) (model.FunctionRecord, string) {
	placeholder := model.FunctionRecord{
		Name:        entry.Name,
		TriggerKind: entry.Kind,
		SourceFile:  fmt.Sprintf("remote:%s/%s", projectID, entry.Name),
		Body: "{\n  // Source could not be retrieved from the deployed project.\n" +
			"  // Paste the original function body here and re-review.\n}",
	}

	if entry.URL == "" {
		return placeholder, fmt.Sprintf("%s: no source URL in inventory, emitting template-only unit", entry.Name)
	}

	src, err := inv.fetch(ctx, entry.URL)
	if err != nil {
		return placeholder, fmt.Sprintf("%s: fetching source: %v, emitting template-only unit", entry.Name, err)
	}

	for _, rec := range inv.scanner.Scan(src, entry.URL) {
		if rec.Name == entry.Name {
			return rec, ""
		}
	}
	return placeholder, fmt.Sprintf("%s: fetched source did not match any known declaration shape", entry.Name)
}

// identRe matches a plausible function identifier column.
var identRe = regexp.MustCompile(`^[A-Za-z_$][\w$-]*$`)

// urlRe pulls the first https URL out of a line.
var urlRe = regexp.MustCompile(`https://\S+`)

// kindKeywords maps inventory trigger vocabulary to trigger kinds. Checked
// in order; the first keyword found wins. http/https sit last so the generic
// trigger column never shadows a more specific kind.
var kindKeywords = []struct {
	keyword string
	kind    model.TriggerKind
}{
	{"callable", model.TriggerCallable},
	{"firestore", model.TriggerDocumentCreate},
	{"auth", model.TriggerIdentityCreate},
	{"storage", model.TriggerBlobFinalize},
	{"scheduled", model.TriggerTimeSchedule},
	{"schedule", model.TriggerTimeSchedule},
	{"pubsub", model.TriggerQueueMessage},
	{"topic", model.TriggerQueueMessage},
	{"https", model.TriggerHTTP},
	{"http", model.TriggerHTTP},
}

// parseInventory heuristically parses the CLI's line-oriented table output.
// Lines that do not look like a function row are silently skipped.
func parseInventory(out string) []inventoryEntry {
	var entries []inventoryEntry
	for _, line := range strings.Split(out, "\n") {
		entry, ok := parseInventoryLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func parseInventoryLine(line string) (inventoryEntry, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "┌") || strings.HasPrefix(trimmed, "├") ||
		strings.HasPrefix(trimmed, "└") || strings.HasPrefix(trimmed, "-") {
		return inventoryEntry{}, false
	}

	// Box-drawing table rows split on │; plain output splits on whitespace.
	var fields []string
	if strings.Contains(trimmed, "│") {
		for _, f := range strings.Split(trimmed, "│") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	} else {
		fields = strings.Fields(trimmed)
	}
	if len(fields) < 2 {
		return inventoryEntry{}, false
	}

	name := fields[0]
	if !identRe.MatchString(name) || strings.EqualFold(name, "function") {
		return inventoryEntry{}, false
	}

	entry := inventoryEntry{Name: name, Kind: model.TriggerHTTP}
	if m := urlRe.FindString(trimmed); m != "" {
		entry.URL = strings.TrimRight(m, "│ \t")
	}

	// The URL column is stripped before the keyword scan: an https:// source
	// URL on a firestore/auth/storage row must not read as an http trigger.
	lower := strings.ToLower(urlRe.ReplaceAllString(trimmed, ""))
	for _, kw := range kindKeywords {
		if strings.Contains(lower, kw.keyword) {
			entry.Kind = kw.kind
			break
		}
	}
	return entry, true
}

func httpFetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
