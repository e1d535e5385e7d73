package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/atelier-sh/atelier/internal/transcript"
)

func TestProgressPrinterStreamsDeltas(t *testing.T) {
	var sb strings.Builder
	p := newProgressPrinter(&sb, 1)

	ts := transcript.Transcript{transcript.UserText("hi")}
	p.Observe(ts)
	ts = ts.MergeTextDelta("Hello")
	p.Observe(ts)
	ts = ts.MergeTextDelta(", world")
	p.Observe(ts)
	p.Finish()

	got := sb.String()
	if got != "Hello, world\n" {
		t.Errorf("output = %q", got)
	}
}

func TestProgressPrinterSkipsHistory(t *testing.T) {
	var sb strings.Builder
	history := transcript.Transcript{
		transcript.UserText("old prompt"),
		transcript.AssistantText("old reply"),
	}
	p := newProgressPrinter(&sb, len(history))
	p.Observe(history)

	if sb.Len() != 0 {
		t.Errorf("history reprinted: %q", sb.String())
	}
}

func TestProgressPrinterToolTurns(t *testing.T) {
	var sb strings.Builder
	p := newProgressPrinter(&sb, 0)

	ts := transcript.Transcript{}.UpsertToolCallPart("t1", "read", json.RawMessage(`{"file_path":"a.go"}`))
	ts = ts.AppendToolResult("t1", "read", transcript.TextOutput("1: package main"))
	ts = ts.MergeTextDelta("Summary")
	p.Observe(ts)
	p.Finish()

	got := sb.String()
	if !strings.Contains(got, "[read {\"file_path\":\"a.go\"}]") {
		t.Errorf("tool call not rendered: %q", got)
	}
	if !strings.Contains(got, "[read ok]") {
		t.Errorf("result not rendered: %q", got)
	}
	if !strings.Contains(got, "Summary") {
		t.Errorf("text missing: %q", got)
	}
}

func TestEndsInToolResults(t *testing.T) {
	if endsInToolResults(nil) {
		t.Error("empty transcript")
	}
	ts := transcript.Transcript{transcript.AssistantText("done")}
	if endsInToolResults(ts) {
		t.Error("text turn")
	}
	ts = ts.AppendToolResult("t1", "read", transcript.TextOutput("x"))
	if !endsInToolResults(ts) {
		t.Error("tool turn should continue the loop")
	}
}
