// Package gen renders complete target-platform handler programs from scanned
// function records. Generation is a pure template-selection and slot-fill
// step: it either succeeds with a complete unit or fails atomically; a
// partially rendered unit is never produced.
package gen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firelift/firelift/internal/model"
	"github.com/firelift/firelift/internal/rewrite"
)

// supportedKinds enumerates the trigger kinds with a registered template.
// A record whose kind is absent here is skipped, not failed.
var supportedKinds = map[model.TriggerKind]bool{
	model.TriggerHTTP:           true,
	model.TriggerCallable:       true,
	model.TriggerDocumentCreate: true,
	model.TriggerDocumentUpdate: true,
	model.TriggerDocumentDelete: true,
	model.TriggerIdentityCreate: true,
	model.TriggerIdentityDelete: true,
	model.TriggerBlobFinalize:   true,
	model.TriggerBlobDelete:     true,
	model.TriggerQueueMessage:   true,
	model.TriggerTimeSchedule:   true,
}

// Generator renders one handler unit per function record.
type Generator struct {
	rewriter *rewrite.Rewriter
}

// New returns a Generator that rewrites bodies through rw before rendering.
func New(rw *rewrite.Rewriter) *Generator {
	return &Generator{rewriter: rw}
}

// Generate renders the handler program and manifest stub for rec. Returns
// (nil, nil) when the trigger kind has no registered template, signaling the
// caller to report the record as skipped rather than failed.
func (g *Generator) Generate(rec model.FunctionRecord) (*model.GeneratedUnit, error) {
	if !supportedKinds[rec.TriggerKind] {
		return nil, nil
	}

	body := g.rewriter.Rewrite(rec.Body)
	needsReview := rewrite.NeedsReview(body)

	data := templateData{
		Name:       rec.Name,
		SourceFile: rec.SourceFile,
		Kind:       rec.TriggerKind,
		PreFlight:  rec.TriggerKind == model.TriggerHTTP || rec.TriggerKind == model.TriggerCallable,
		Callable:   rec.TriggerKind == model.TriggerCallable,
		Guard:      guardFor(rec.TriggerKind),
		Body:       indent(body, "    "),
		Success:    successFor(rec.TriggerKind),
		Notes:      notesFor(rec, needsReview),
		TriggerSQL: triggerSQLFor(rec),
	}

	var code strings.Builder
	if err := handlerTemplate.Execute(&code, data); err != nil {
		return nil, fmt.Errorf("rendering handler for %s: %w", rec.Name, err)
	}

	manifest, err := manifestStub(rec)
	if err != nil {
		return nil, fmt.Errorf("rendering manifest for %s: %w", rec.Name, err)
	}

	return &model.GeneratedUnit{
		Name:         rec.Name,
		Code:         code.String(),
		ManifestStub: manifest,
	}, nil
}

// manifestStub renders the minimal target-runtime descriptor for a unit.
func manifestStub(rec model.FunctionRecord) (string, error) {
	stub := map[string]any{
		"name":       rec.Name,
		"entrypoint": "index.ts",
		"verify_jwt": rec.TriggerKind == model.TriggerCallable,
		"trigger":    string(rec.TriggerKind),
	}
	switch {
	case rec.TriggerKind.IsDocument():
		stub["document_path"] = rec.DocumentPathTemplate
		stub["document_event"] = rec.DocumentEvent
	case rec.TriggerKind == model.TriggerTimeSchedule:
		stub["schedule"] = rec.ScheduleExpression
	case rec.TriggerKind == model.TriggerQueueMessage:
		stub["topic"] = rec.TopicName
	}

	out, err := json.MarshalIndent(stub, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

// indent prefixes every non-empty line of s with prefix. The body slot sits
// inside the handler's try block, so it is shifted one level in.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
