package agent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/atelier-sh/atelier/internal/llm"
	"github.com/atelier-sh/atelier/internal/tools"
	"github.com/atelier-sh/atelier/internal/transcript"
	"github.com/atelier-sh/atelier/internal/workspace"
)

// fakeProvider replays a scripted event sequence.
type fakeProvider struct {
	events    []llm.Event
	streamErr error
	requests  []llm.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Stream(ctx context.Context, req llm.Request) (llm.Stream, error) {
	p.requests = append(p.requests, req)
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	return llm.NewSliceStream(p.events), nil
}

func newTestRunner(t *testing.T, provider llm.Provider) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	ws := workspace.New(dir, zerolog.Nop())
	runner := NewRunner(provider, ws, Config{
		Instructions: "test instructions",
		Model:        "test-model",
		Limits:       tools.DefaultOutputLimits(),
	}, zerolog.Nop())
	return runner, dir
}

func TestRunTurnTextOnly(t *testing.T) {
	provider := &fakeProvider{events: []llm.Event{
		{Type: llm.EventTextStart},
		{Type: llm.EventTextDelta, Text: "Here is "},
		{Type: llm.EventTextDelta, Text: "the design."},
		{Type: llm.EventTextEnd},
		{Type: llm.EventDone, FinishReason: "stop"},
	}}
	runner, _ := newTestRunner(t, provider)

	history := transcript.Transcript{transcript.UserText("design a login screen")}
	var snapshots []transcript.Transcript
	out, err := runner.RunTurn(context.Background(), history, func(ts transcript.Transcript) {
		snapshots = append(snapshots, ts)
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(out))
	}
	if out[1].Text != "Here is the design." {
		t.Errorf("text = %q", out[1].Text)
	}
	if len(snapshots) < len(provider.events) {
		t.Errorf("expected a snapshot per event, got %d", len(snapshots))
	}
	for i := 1; i < len(snapshots); i++ {
		if len(snapshots[i]) < len(snapshots[i-1]) {
			t.Errorf("snapshot %d shrank", i)
		}
	}
	if provider.requests[0].Instructions != "test instructions" {
		t.Errorf("instructions not forwarded")
	}
}

func TestRunTurnDispatchesTool(t *testing.T) {
	input := `{"file_path":"a.html","content":"<html></html>"}`
	provider := &fakeProvider{events: []llm.Event{
		{Type: llm.EventToolCallStart, Tool: &transcript.ToolCall{ID: "t1", Name: "write"}},
		{Type: llm.EventToolInputDelta, Text: input},
		{Type: llm.EventToolCall, Tool: &transcript.ToolCall{ID: "t1", Name: "write", Input: json.RawMessage(input)}},
		{Type: llm.EventDone, FinishReason: "tool_use"},
	}}
	runner, dir := newTestRunner(t, provider)

	history := transcript.Transcript{transcript.UserText("write a page")}
	out, err := runner.RunTurn(context.Background(), history, nil)
	if err != nil {
		t.Fatal(err)
	}

	turnIdx, partIdx, ok := out.FindToolCall("t1")
	if !ok {
		t.Fatal("tool call missing from transcript")
	}
	if got := string(out[turnIdx].Parts[partIdx].ToolCall.Input); got != input {
		t.Errorf("input = %s", got)
	}

	last := out[len(out)-1]
	if last.Role != transcript.RoleTool || last.IsError() {
		t.Fatalf("expected successful tool turn, got %+v", last)
	}
	if last.Parts[0].ToolResult.CallID != "t1" {
		t.Errorf("result call id = %s", last.Parts[0].ToolResult.CallID)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.html"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("file content = %q", data)
	}
}

func TestRunTurnToolErrorDoesNotAbort(t *testing.T) {
	provider := &fakeProvider{events: []llm.Event{
		{Type: llm.EventToolCall, Tool: &transcript.ToolCall{ID: "t1", Name: "nosuch", Input: json.RawMessage(`{}`)}},
		{Type: llm.EventTextDelta, Text: "continuing"},
		{Type: llm.EventDone, FinishReason: "stop"},
	}}
	runner, _ := newTestRunner(t, provider)

	out, err := runner.RunTurn(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("tool errors must be absorbed, got %v", err)
	}

	var errorToolTurns, textTurns int
	for _, turn := range out {
		if turn.Role == transcript.RoleTool && turn.IsError() {
			errorToolTurns++
		}
		if turn.Role == transcript.RoleAssistant && turn.Text == "continuing" {
			textTurns++
		}
	}
	if errorToolTurns != 1 {
		t.Errorf("error tool turns = %d", errorToolTurns)
	}
	if textTurns != 1 {
		t.Errorf("text after tool error not folded in")
	}
}

func TestRunTurnCancelledBeforeFirstEvent(t *testing.T) {
	provider := &fakeProvider{events: []llm.Event{
		{Type: llm.EventTextDelta, Text: "never seen"},
	}}
	runner, _ := newTestRunner(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	history := transcript.Transcript{transcript.UserText("hi")}
	var last transcript.Transcript
	out, err := runner.RunTurn(ctx, history, func(ts transcript.Transcript) { last = ts })

	if !errors.Is(err, ErrTurnCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected history + one error turn, got %d turns", len(out))
	}
	errTurn := out[1]
	if !errTurn.IsError() {
		t.Fatal("missing error turn")
	}
	if _, ok := errTurn.Meta[transcript.MetaSessionID].(string); !ok {
		t.Error("error turn missing session id")
	}
	if len(last) != len(out) {
		t.Error("terminal snapshot not delivered to observer")
	}
}

func TestRunTurnStreamConstructionError(t *testing.T) {
	provider := &fakeProvider{streamErr: errors.New("connect refused")}
	runner, _ := newTestRunner(t, provider)

	out, err := runner.RunTurn(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(out) != 1 || !out[0].IsError() {
		t.Fatalf("expected a single error turn, got %+v", out)
	}
}

func TestRunTurnWorkspaceFailure(t *testing.T) {
	ws := workspace.New(filepath.Join(t.TempDir(), "missing"), zerolog.Nop())
	runner := NewRunner(&fakeProvider{}, ws, Config{Limits: tools.DefaultOutputLimits()}, zerolog.Nop())

	out, err := runner.RunTurn(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected workspace error")
	}
	if len(out) != 1 || !out[0].IsError() {
		t.Fatalf("expected error turn, got %+v", out)
	}
}
