// Package rewrite performs the mechanical source-API to target-API text
// substitution over extracted function bodies.
//
// Conversion is deliberately best-effort: the rewriter always emits text and
// never fails. Constructs it cannot translate are left verbatim and the body
// is prefixed with a review marker so a human can finish the job. This
// two-phase contract (mechanical rewrite, then explicit uncertainty flag) is
// the design, not a gap.
package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

// ReviewMarker is prepended to any rewritten body that still contains
// source-platform namespace tokens after all rules have run. It is advisory
// only and never blocks emission.
const ReviewMarker = "// FIRELIFT-REVIEW: unconverted source-platform API calls remain below; manual review required."

// Rule is one ordered substitution: a compiled pattern and its replacement.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// CompileRule builds a Rule from a pattern string, for rules supplied
// through configuration.
func CompileRule(pattern, replacement string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compiling rewrite rule %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Replacement: replacement}, nil
}

// builtinRules is the fixed substitution table. Order matters: later rules
// assume earlier ones already normalized certain tokens. In particular the
// collection-accessor rewrite must fire before the document-accessor rewrite,
// and the server-timestamp sentinel must be replaced before the client-handle
// rewrite consumes the admin.firestore token.
var builtinRules = []Rule{
	// Client initialization is provided by the generated boilerplate.
	{regexp.MustCompile(`(?m)^\s*admin\.initializeApp\([^)]*\);?\s*$`), ""},

	// Server-side timestamp sentinel -> client-computed ISO-8601 timestamp.
	{regexp.MustCompile(`admin\.firestore\.FieldValue\.serverTimestamp\(\)`), `new Date().toISOString()`},
	{regexp.MustCompile(`admin\.firestore\.Timestamp\.now\(\)`), `new Date().toISOString()`},

	// Admin-namespace client handle -> target client handle.
	{regexp.MustCompile(`admin\.firestore\(\)`), `supabase`},

	// Hierarchical accessors -> relational accessors. Collection first; the
	// document pattern is only unambiguous once .collection() is gone.
	{regexp.MustCompile(`\.collection\(\s*(` + quoted + `)\s*\)`), `.from($1)`},
	{regexp.MustCompile(`\.doc\(\s*([^()]+?)\s*\)\.get\(\)`), `.select().eq('id', $1).single()`},
	{regexp.MustCompile(`\.doc\(\s*([^()]+?)\s*\)`), `.eq('id', $1)`},

	// Snapshot-style field materialization; the target client returns rows
	// directly.
	{regexp.MustCompile(`\.data\(\)`), `.data`},

	// Mutation method names.
	{regexp.MustCompile(`\.add\(`), `.insert(`},
	{regexp.MustCompile(`\.set\(`), `.upsert(`},

	// Auth-context identity field.
	{regexp.MustCompile(`context\.auth\.uid`), `user.id`},
	{regexp.MustCompile(`context\.auth\.token\.email`), `user.email`},

	// Response emission -> target response construction. The generated
	// boilerplate defines jsonResponse(status, body).
	{regexp.MustCompile(`res\.status\(\s*(\d+)\s*\)\.json\(`), `return jsonResponse($1, `},
	{regexp.MustCompile(`res\.status\(\s*(\d+)\s*\)\.send\(`), `return jsonResponse($1, `},
	{regexp.MustCompile(`res\.json\(`), `return jsonResponse(200, `},
	{regexp.MustCompile(`res\.send\(`), `return jsonResponse(200, `},
}

const quoted = `'[^']*'|"[^"]*"` + "|`[^`]*`"

// residual matches source-platform namespace tokens that survived every
// rule; their presence triggers the review marker.
var residual = regexp.MustCompile(`\b(?:admin|functions)\s*\.`)

// Rewriter applies the ordered rule table. The zero value is not usable;
// construct with New.
type Rewriter struct {
	rules []Rule
}

// New returns a Rewriter over the built-in table followed by any extra
// rules, in the order given. Extra rules run after the built-ins but before
// the residual scan.
func New(extra ...Rule) *Rewriter {
	rules := make([]Rule, 0, len(builtinRules)+len(extra))
	rules = append(rules, builtinRules...)
	rules = append(rules, extra...)
	return &Rewriter{rules: rules}
}

// Rewrite maps source-platform API call shapes in body to target-platform
// shapes. Pure and total: it always returns text and never fails. If
// source-platform tokens remain after all rules, the result is prefixed with
// ReviewMarker; the unconverted calls are kept verbatim, never deleted.
func (r *Rewriter) Rewrite(body string) string {
	out := body
	for _, rule := range r.rules {
		out = rule.Pattern.ReplaceAllString(out, rule.Replacement)
	}

	if residual.MatchString(out) {
		out = ReviewMarker + "\n" + out
	}
	return out
}

// NeedsReview reports whether a rewritten body carries the review marker.
func NeedsReview(body string) bool {
	return strings.HasPrefix(body, ReviewMarker)
}
