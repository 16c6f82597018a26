package model

// TriggerKind categorizes the external event that invokes a source function.
type TriggerKind string

// Recognized trigger kinds. Document, identity and blob kinds carry the event
// verb in the kind itself so the generator can select a template without
// consulting metadata.
const (
	TriggerHTTP           TriggerKind = "http"
	TriggerCallable       TriggerKind = "callable"
	TriggerDocumentCreate TriggerKind = "document-create"
	TriggerDocumentUpdate TriggerKind = "document-update"
	TriggerDocumentDelete TriggerKind = "document-delete"
	TriggerIdentityCreate TriggerKind = "identity-create"
	TriggerIdentityDelete TriggerKind = "identity-delete"
	TriggerBlobFinalize   TriggerKind = "blob-finalize"
	TriggerBlobDelete     TriggerKind = "blob-delete"
	TriggerQueueMessage   TriggerKind = "queue-message"
	TriggerTimeSchedule   TriggerKind = "time-schedule"
)

// IsDocument reports whether the kind is a document change trigger.
func (k TriggerKind) IsDocument() bool {
	return k == TriggerDocumentCreate || k == TriggerDocumentUpdate || k == TriggerDocumentDelete
}

// IsIdentity reports whether the kind is an identity lifecycle trigger.
func (k TriggerKind) IsIdentity() bool {
	return k == TriggerIdentityCreate || k == TriggerIdentityDelete
}

// IsBlob reports whether the kind is a storage object trigger.
func (k TriggerKind) IsBlob() bool {
	return k == TriggerBlobFinalize || k == TriggerBlobDelete
}

// IsWebhookShaped reports whether the kind is realized on the target platform
// as an inbound HTTP call carrying a shared-secret header rather than a
// user-facing request.
func (k TriggerKind) IsWebhookShaped() bool {
	return k.IsDocument() || k.IsIdentity() || k.IsBlob() || k == TriggerQueueMessage
}

// FunctionRecord is one recognized source function. Records are created by
// the scanner per pattern match per file and consumed once by the generator;
// they are never persisted.
type FunctionRecord struct {
	Name        string      `json:"name"`
	TriggerKind TriggerKind `json:"trigger_kind"`
	SourceFile  string      `json:"source_file"` // provenance only
	RawMatch    string      `json:"raw_match"`   // diagnostic only
	Body        string      `json:"body"`

	// Trigger-specific metadata; populated only for the relevant kinds.
	DocumentPathTemplate string `json:"document_path_template,omitempty"`
	DocumentEvent        string `json:"document_event,omitempty"`
	IdentityEvent        string `json:"identity_event,omitempty"`
	ScheduleExpression   string `json:"schedule_expression,omitempty"`
	TopicName            string `json:"topic_name,omitempty"`
}

// GeneratedUnit is one emitted target handler. Written once to the output
// tree, never mutated.
type GeneratedUnit struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	ManifestStub string `json:"manifest_stub"`
}

// FailureRecord captures a per-function generation or write fault.
type FailureRecord struct {
	Name        string      `json:"name"`
	TriggerKind TriggerKind `json:"trigger_kind"`
	Message     string      `json:"message"`
}

// UnitStatus is the terminal status of one function within a run.
type UnitStatus string

const (
	StatusMigrated UnitStatus = "migrated"
	StatusFailed   UnitStatus = "failed"
)

// UnitSummary is the per-function line item in a MigrationReport.
type UnitSummary struct {
	Name         string      `json:"name"`
	TriggerKind  TriggerKind `json:"trigger_kind"`
	Status       UnitStatus  `json:"status"`
	OutputPath   string      `json:"output_path,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// MigrationReport is the aggregate outcome of one orchestrator run. A fresh
// report is created per invocation; there is no carry-over between runs.
//
// Invariant: MigratedCount + FailedCount <= Total. Records skipped for an
// unsupported trigger kind count toward neither.
type MigrationReport struct {
	RunID         string        `json:"run_id"`
	StartedAt     string        `json:"started_at"`
	FinishedAt    string        `json:"finished_at"`
	Total         int           `json:"total"`
	MigratedCount int           `json:"migrated_count"`
	FailedCount   int           `json:"failed_count"`
	SkippedCount  int           `json:"skipped_count"`
	Warnings      []string      `json:"warnings"`
	Errors        []string      `json:"errors"`
	Units         []UnitSummary `json:"units"`
}

// AddWarning appends a warning preserving insertion order.
func (r *MigrationReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddError appends an error message preserving insertion order.
func (r *MigrationReport) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
