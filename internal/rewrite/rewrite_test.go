package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewrite_EmptyInput(t *testing.T) {
	assert.Equal(t, "", New().Rewrite(""))
}

func TestRewrite_NoMatchesUnchanged(t *testing.T) {
	body := "{\n  const total = items.length;\n  return total;\n}"
	assert.Equal(t, body, New().Rewrite(body))
}

func TestRewrite_CollectionAndDocumentAccessors(t *testing.T) {
	body := `const snap = await admin.firestore().collection('users').doc(uid).get();`
	out := New().Rewrite(body)

	assert.Contains(t, out, `supabase.from('users').select().eq('id', uid).single()`)
	assert.NotContains(t, out, ".collection(")
	assert.NotContains(t, out, ".doc(")
	// Fully converted: no review marker.
	assert.False(t, NeedsReview(out))
}

func TestRewrite_DocumentAccessorWithoutGet(t *testing.T) {
	body := `await db.collection("orders").doc(orderId).update({ status: "done" });`
	out := New().Rewrite(body)
	assert.Contains(t, out, `.from("orders").eq('id', orderId).update(`)
}

func TestRewrite_MutationMethodNames(t *testing.T) {
	out := New().Rewrite(`await db.collection('logs').add({ msg });`)
	assert.Contains(t, out, `.from('logs').insert(`)

	out = New().Rewrite(`await db.collection('prefs').doc(uid).set({ theme });`)
	assert.Contains(t, out, `.upsert(`)
}

func TestRewrite_ServerTimestampSentinel(t *testing.T) {
	out := New().Rewrite(`createdAt: admin.firestore.FieldValue.serverTimestamp(),`)
	assert.Contains(t, out, "new Date().toISOString()")
	assert.False(t, NeedsReview(out))
}

func TestRewrite_AuthContextIdentity(t *testing.T) {
	out := New().Rewrite(`const uid = context.auth.uid;`)
	assert.Contains(t, out, "user.id")
	assert.NotContains(t, out, "context.auth.uid")
}

func TestRewrite_ResponseEmission(t *testing.T) {
	out := New().Rewrite(`res.json({ ok: true });`)
	assert.Contains(t, out, `return jsonResponse(200, { ok: true });`)

	out = New().Rewrite(`res.status(404).send({ error: "missing" });`)
	assert.Contains(t, out, `return jsonResponse(404, { error: "missing" });`)
}

// Residual source-platform calls are kept verbatim and flagged, never
// deleted.
func TestRewrite_ResidualGetsReviewMarker(t *testing.T) {
	body := `await admin.messaging().send({ token, notification });`
	out := New().Rewrite(body)

	require.True(t, NeedsReview(out))
	assert.True(t, strings.HasPrefix(out, ReviewMarker))
	assert.Contains(t, out, "admin.messaging().send")
}

func TestRewrite_ExtraRulesRunAfterBuiltins(t *testing.T) {
	rule, err := CompileRule(`legacyHelper\(`, `modernHelper(`)
	require.NoError(t, err)

	out := New(rule).Rewrite(`await legacyHelper(payload);`)
	assert.Contains(t, out, "modernHelper(payload)")
}

func TestCompileRule_InvalidPattern(t *testing.T) {
	_, err := CompileRule(`([`, "x")
	assert.Error(t, err)
}

// Totality: arbitrary input, including unbalanced-looking text, never
// panics and always yields a string.
func TestRewrite_Total(t *testing.T) {
	inputs := []string{
		"",
		"}}}{{{",
		strings.Repeat("admin.firestore()", 100),
		"const s = `unterminated ${",
	}
	r := New()
	for _, in := range inputs {
		_ = r.Rewrite(in)
	}
}
