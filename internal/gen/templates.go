package gen

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/firelift/firelift/internal/model"
)

// handlerTemplate is the single layout for every generated edge handler. The
// per-kind variation (pre-flight, guard, success shape, companion SQL) is
// computed in Go and injected as plain text slots.
var handlerTemplate = template.Must(template.New("handler").Parse(`// {{.Name}} - migrated from {{.SourceFile}} ({{.Kind}} trigger).
// Generated by firelift; review the migrated body before deploying.
import { serve } from "https://deno.land/std@0.168.0/http/server.ts";
import { createClient } from "https://esm.sh/@supabase/supabase-js@2";

const corsHeaders = {
  "Access-Control-Allow-Origin": "*",
  "Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
};

const jsonResponse = (status, body) =>
  new Response(JSON.stringify(body), {
    status,
    headers: { ...corsHeaders, "Content-Type": "application/json" },
  });

serve(async (req) => {
{{- if .PreFlight}}
  if (req.method === "OPTIONS") {
    return new Response("ok", { headers: corsHeaders });
  }
{{- end}}
  try {
{{.Guard}}
    const supabase = createClient(
      Deno.env.get("SUPABASE_URL") ?? "",
      Deno.env.get("SUPABASE_SERVICE_ROLE_KEY") ?? "",
    );
{{- if .Callable}}
    const token = (req.headers.get("Authorization") ?? "").replace("Bearer ", "");
    const { data: { user }, error: authError } = await supabase.auth.getUser(token);
    if (authError || !user) {
      return jsonResponse(401, { error: "unauthorized" });
    }
{{- end}}

    // ---- migrated body start ----
{{.Body}}
    // ---- migrated body end ----

{{.Success}}
  } catch (err) {
    console.error("{{.Name}} failed:", err);
    return jsonResponse(500, { error: String(err?.message ?? err) });
  }
});
{{.Notes}}{{.TriggerSQL}}`))

// templateData carries the filled slots for handlerTemplate.
type templateData struct {
	Name       string
	SourceFile string
	Kind       model.TriggerKind
	PreFlight  bool
	Callable   bool
	Guard      string
	Body       string
	Success    string
	Notes      string
	TriggerSQL string
}

// guardFor renders the authentication/secret-verification block for a
// trigger kind. Callable bearer-token verification happens after client
// construction and is handled by the Callable template branch.
func guardFor(kind model.TriggerKind) string {
	switch {
	case kind.IsWebhookShaped():
		return `    if (req.headers.get("x-webhook-secret") !== Deno.env.get("WEBHOOK_SECRET")) {
      return jsonResponse(401, { error: "invalid webhook secret" });
    }`
	case kind == model.TriggerTimeSchedule:
		return `    if (req.headers.get("x-scheduler-secret") !== Deno.env.get("SCHEDULER_SECRET")) {
      return new Response("invalid scheduler secret", { status: 401 });
    }`
	default:
		return ""
	}
}

// successFor renders the trigger-kind-specific success response, reached
// when the migrated body falls through without returning.
func successFor(kind model.TriggerKind) string {
	switch {
	case kind == model.TriggerHTTP || kind == model.TriggerCallable:
		return `    return jsonResponse(200, { success: true });`
	case kind == model.TriggerTimeSchedule:
		return `    return new Response("scheduled run complete", { status: 200 });`
	default:
		return `    return new Response("OK", { status: 200 });`
	}
}

// notesFor renders the trailing human-readable migration notes.
func notesFor(rec model.FunctionRecord, needsReview bool) string {
	var b strings.Builder
	b.WriteString("\n/* Migration notes:\n")
	fmt.Fprintf(&b, " * - Original trigger: %s", rec.TriggerKind)
	switch {
	case rec.TriggerKind.IsDocument():
		fmt.Fprintf(&b, " on %q (%s)", rec.DocumentPathTemplate, rec.DocumentEvent)
	case rec.TriggerKind == model.TriggerTimeSchedule:
		fmt.Fprintf(&b, " (%s)", rec.ScheduleExpression)
	case rec.TriggerKind == model.TriggerQueueMessage:
		fmt.Fprintf(&b, " on topic %q", rec.TopicName)
	}
	b.WriteString("\n")
	b.WriteString(" * - Provision SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY as function secrets.\n")
	switch {
	case rec.TriggerKind.IsWebhookShaped():
		b.WriteString(" * - Provision WEBHOOK_SECRET and configure the companion trigger below.\n")
	case rec.TriggerKind == model.TriggerTimeSchedule:
		b.WriteString(" * - Provision SCHEDULER_SECRET and schedule this endpoint with pg_cron\n")
		fmt.Fprintf(&b, " *   using the original expression: %s\n", rec.ScheduleExpression)
	}
	if needsReview {
		b.WriteString(" * - The body carries a FIRELIFT-REVIEW marker: some API calls could not\n")
		b.WriteString(" *   be translated mechanically and must be ported by hand.\n")
	}
	b.WriteString(" */\n")
	return b.String()
}

// triggerSQLFor emits the companion installation script that routes the
// source platform's native change events into the generated webhook
// endpoint. Only document, identity and blob kinds get one.
func triggerSQLFor(rec model.FunctionRecord) string {
	var table, timing string
	var payload = "to_jsonb(NEW)"

	switch {
	case rec.TriggerKind.IsDocument():
		table = rootSegment(rec.DocumentPathTemplate)
		switch rec.TriggerKind {
		case model.TriggerDocumentCreate:
			timing = "after insert"
		case model.TriggerDocumentUpdate:
			timing = "after update"
		default:
			timing = "after delete"
			payload = "to_jsonb(OLD)"
		}
	case rec.TriggerKind.IsIdentity():
		table = "auth.users"
		if rec.TriggerKind == model.TriggerIdentityCreate {
			timing = "after insert"
		} else {
			timing = "after delete"
			payload = "to_jsonb(OLD)"
		}
	case rec.TriggerKind.IsBlob():
		table = "storage.objects"
		if rec.TriggerKind == model.TriggerBlobFinalize {
			timing = "after insert"
		} else {
			timing = "after delete"
			payload = "to_jsonb(OLD)"
		}
	default:
		return ""
	}

	return fmt.Sprintf(`
/* Trigger installation (run in the target SQL editor):

create extension if not exists pg_net;

create or replace function %[1]s_notify() returns trigger as $$
begin
  perform net.http_post(
    url := '<PROJECT_URL>/functions/v1/%[1]s',
    headers := jsonb_build_object(
      'Content-Type', 'application/json',
      'x-webhook-secret', '<WEBHOOK_SECRET>'
    ),
    body := %[3]s
  );
  return null;
end;
$$ language plpgsql security definer;

create trigger %[1]s_trigger
  %[4]s on %[2]s
  for each row execute function %[1]s_notify();
*/
`, rec.Name, table, payload, timing)
}

// rootSegment returns the first path segment of a document path template,
// which names the backing table, e.g. "users/{userId}" -> "users".
func rootSegment(pathTemplate string) string {
	if i := strings.IndexByte(pathTemplate, '/'); i > 0 {
		return pathTemplate[:i]
	}
	return pathTemplate
}
