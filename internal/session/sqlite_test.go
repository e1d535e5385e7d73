package session

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/atelier-sh/atelier/internal/transcript"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTranscript() transcript.Transcript {
	ts := transcript.Transcript{transcript.UserText("make a theme")}
	ts = ts.UpsertToolCallPart("t1", "generate_theme", json.RawMessage(`{"seed_color":"#334155"}`))
	ts = ts.AppendToolResult("t1", "generate_theme", transcript.JSONOutput(json.RawMessage(`{"primary":"#334155"}`)))
	ts = ts.MergeTextDelta("Done.")
	return ts
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ts := sampleTranscript()

	if err := store.Save(ctx, "s1", Title(ts), ts); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != len(ts) {
		t.Fatalf("got %d turns, want %d", len(got), len(ts))
	}
	if got[0].Role != transcript.RoleUser || got[0].Text != "make a theme" {
		t.Errorf("turn 0 = %+v", got[0])
	}
	turnIdx, partIdx, ok := got.FindToolCall("t1")
	if !ok {
		t.Fatal("tool call lost in round trip")
	}
	if got[turnIdx].Parts[partIdx].ToolCall.Name != "generate_theme" {
		t.Errorf("call = %+v", got[turnIdx].Parts[partIdx].ToolCall)
	}
	result := got[2].Parts[0].ToolResult
	if result.Output.Kind != transcript.OutputJSON {
		t.Errorf("output kind = %s", result.Output.Kind)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ts := transcript.Transcript{transcript.UserText("v1")}
	if err := store.Save(ctx, "s1", Title(ts), ts); err != nil {
		t.Fatal(err)
	}
	ts = ts.MergeTextDelta("reply")
	if err := store.Save(ctx, "s1", Title(ts), ts); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d turns", len(got))
	}
}

func TestListAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		ts := transcript.Transcript{transcript.UserText("prompt " + id)}
		if err := store.Save(ctx, id, Title(ts), ts); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("listed %d sessions", len(sessions))
	}
	if sessions[0].TurnCount != 1 {
		t.Errorf("turn count = %d", sessions[0].TurnCount)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "a"); err == nil {
		t.Error("deleted session still loads")
	}
	if err := store.Delete(ctx, "a"); err == nil {
		t.Error("double delete should fail")
	}
}

func TestLoadMissingSession(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Load(context.Background(), "nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTitle(t *testing.T) {
	ts := transcript.Transcript{
		transcript.SystemText("system prompt"),
		transcript.UserText("short prompt"),
	}
	if got := Title(ts); got != "short prompt" {
		t.Errorf("title = %q", got)
	}
	if got := Title(nil); got != "untitled" {
		t.Errorf("empty title = %q", got)
	}
}
