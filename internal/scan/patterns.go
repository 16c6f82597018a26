package scan

import (
	"regexp"

	"github.com/firelift/firelift/internal/model"
)

// matchStyle ranks how specific a recognition rule is. When two rules match
// the same exported name, the more specific style wins; ties overwrite
// last-write-wins.
type matchStyle int

const (
	// styleNamespace is the classic chained-namespace authoring style,
	// e.g. functions.https.onRequest(...).
	styleNamespace matchStyle = iota + 1
	// styleFactory is the newer factory-helper authoring style,
	// e.g. onRequest(...) or onDocumentCreated("path", ...).
	styleFactory
)

// rule is one entry in the recognition registry: a matcher plus a metadata
// extractor. Adding a new authoring idiom means adding a rule, not touching
// the scanning loop.
type rule struct {
	id    string
	style matchStyle
	re    *regexp.Regexp

	// build fills kind and trigger metadata from the submatch groups.
	// groups[0] is the exported name; further groups are rule-specific.
	build func(rec *model.FunctionRecord, groups []string)
}

// namePrefix matches the exported binding and captures the function name.
const namePrefix = `(?:exports\.|module\.exports\.|export\s+const\s+)([A-Za-z_$][\w$]*)\s*=\s*`

// nsChain matches the trigger namespace root with optional region/runtime
// option chains, e.g. functions.region('europe-west1').runWith({...}).
const nsChain = `functions(?:\s*\.\s*(?:region|runWith)\([^)]*\))*\s*`

// registry is the fixed, ordered table of recognition rules. Factory rules
// come first so that on a shared name the dedup pass already holds the more
// specific record.
var registry = []rule{
	{
		id:    "factory-http",
		style: styleFactory,
		re:    regexp.MustCompile(namePrefix + `onRequest\s*\(`),
		build: func(rec *model.FunctionRecord, _ []string) {
			rec.TriggerKind = model.TriggerHTTP
		},
	},
	{
		id:    "factory-callable",
		style: styleFactory,
		re:    regexp.MustCompile(namePrefix + `onCall\s*\(`),
		build: func(rec *model.FunctionRecord, _ []string) {
			rec.TriggerKind = model.TriggerCallable
		},
	},
	{
		id:    "factory-document",
		style: styleFactory,
		re:    regexp.MustCompile(namePrefix + `onDocument(Created|Updated|Deleted)\s*\(\s*['"]([^'"]+)['"]`),
		build: func(rec *model.FunctionRecord, groups []string) {
			rec.TriggerKind = documentKind(groups[1])
			rec.DocumentEvent = documentEvent(groups[1])
			rec.DocumentPathTemplate = groups[2]
		},
	},
	{
		id:    "factory-identity",
		style: styleFactory,
		re:    regexp.MustCompile(namePrefix + `onUser(Created|Deleted)\s*\(`),
		build: func(rec *model.FunctionRecord, groups []string) {
			rec.TriggerKind = identityKind(groups[1])
			rec.IdentityEvent = documentEvent(groups[1])
		},
	},
	{
		id:    "factory-blob",
		style: styleFactory,
		re:    regexp.MustCompile(namePrefix + `onObject(Finalized|Deleted)\s*\(`),
		build: func(rec *model.FunctionRecord, groups []string) {
			if groups[1] == "Finalized" {
				rec.TriggerKind = model.TriggerBlobFinalize
			} else {
				rec.TriggerKind = model.TriggerBlobDelete
			}
		},
	},
	{
		id:    "factory-queue",
		style: styleFactory,
		re:    regexp.MustCompile(namePrefix + `onMessagePublished\s*\(\s*['"]([^'"]+)['"]`),
		build: func(rec *model.FunctionRecord, groups []string) {
			rec.TriggerKind = model.TriggerQueueMessage
			rec.TopicName = groups[1]
		},
	},
	{
		id:    "factory-schedule",
		style: styleFactory,
		re:    regexp.MustCompile(namePrefix + `onSchedule\s*\(\s*['"]([^'"]+)['"]`),
		build: func(rec *model.FunctionRecord, groups []string) {
			rec.TriggerKind = model.TriggerTimeSchedule
			rec.ScheduleExpression = groups[1]
		},
	},
	{
		id:    "namespace-http",
		style: styleNamespace,
		re:    regexp.MustCompile(namePrefix + nsChain + `\.https\s*\.onRequest\s*\(`),
		build: func(rec *model.FunctionRecord, _ []string) {
			rec.TriggerKind = model.TriggerHTTP
		},
	},
	{
		id:    "namespace-callable",
		style: styleNamespace,
		re:    regexp.MustCompile(namePrefix + nsChain + `\.https\s*\.onCall\s*\(`),
		build: func(rec *model.FunctionRecord, _ []string) {
			rec.TriggerKind = model.TriggerCallable
		},
	},
	{
		id:    "namespace-document",
		style: styleNamespace,
		re:    regexp.MustCompile(namePrefix + nsChain + `\.firestore\s*\.document\(\s*['"]([^'"]+)['"]\s*\)\s*\.on(Create|Update|Delete)\s*\(`),
		build: func(rec *model.FunctionRecord, groups []string) {
			rec.TriggerKind = documentKind(groups[2])
			rec.DocumentEvent = documentEvent(groups[2])
			rec.DocumentPathTemplate = groups[1]
		},
	},
	{
		id:    "namespace-identity",
		style: styleNamespace,
		re:    regexp.MustCompile(namePrefix + nsChain + `\.auth\s*\.user\(\)\s*\.on(Create|Delete)\s*\(`),
		build: func(rec *model.FunctionRecord, groups []string) {
			rec.TriggerKind = identityKind(groups[1])
			rec.IdentityEvent = documentEvent(groups[1])
		},
	},
	{
		id:    "namespace-blob",
		style: styleNamespace,
		re:    regexp.MustCompile(namePrefix + nsChain + `\.storage\s*\.object\(\)\s*\.on(Finalize|Delete)\s*\(`),
		build: func(rec *model.FunctionRecord, groups []string) {
			if groups[1] == "Finalize" {
				rec.TriggerKind = model.TriggerBlobFinalize
			} else {
				rec.TriggerKind = model.TriggerBlobDelete
			}
		},
	},
	{
		id:    "namespace-queue",
		style: styleNamespace,
		re:    regexp.MustCompile(namePrefix + nsChain + `\.pubsub\s*\.topic\(\s*['"]([^'"]+)['"]\s*\)\s*\.onPublish\s*\(`),
		build: func(rec *model.FunctionRecord, groups []string) {
			rec.TriggerKind = model.TriggerQueueMessage
			rec.TopicName = groups[1]
		},
	},
	{
		id:    "namespace-schedule",
		style: styleNamespace,
		re:    regexp.MustCompile(namePrefix + nsChain + `\.pubsub\s*\.schedule\(\s*['"]([^'"]+)['"]\s*\)(?:\s*\.timeZone\([^)]*\))?\s*\.onRun\s*\(`),
		build: func(rec *model.FunctionRecord, groups []string) {
			rec.TriggerKind = model.TriggerTimeSchedule
			rec.ScheduleExpression = groups[1]
		},
	},
}

func documentKind(verb string) model.TriggerKind {
	switch verb {
	case "Create", "Created":
		return model.TriggerDocumentCreate
	case "Update", "Updated":
		return model.TriggerDocumentUpdate
	default:
		return model.TriggerDocumentDelete
	}
}

func identityKind(verb string) model.TriggerKind {
	if verb == "Create" || verb == "Created" {
		return model.TriggerIdentityCreate
	}
	return model.TriggerIdentityDelete
}

// documentEvent lowercases the matched verb to the canonical event name
// (create, update, delete).
func documentEvent(verb string) string {
	switch verb {
	case "Create", "Created":
		return "create"
	case "Update", "Updated":
		return "update"
	default:
		return "delete"
	}
}
