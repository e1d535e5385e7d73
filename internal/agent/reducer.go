// Package agent drives one turn of the conversation: it streams model
// events, folds them into the transcript, and dispatches the tool calls the
// model requests.
package agent

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/atelier-sh/atelier/internal/llm"
	"github.com/atelier-sh/atelier/internal/transcript"
)

// Reducer folds stream events into a transcript one at a time. Processing
// is sequential per turn; every applied event yields a fresh transcript
// snapshot safe to hand to concurrent readers.
type Reducer struct {
	ts        transcript.Transcript
	sessionID string
	usage     llm.Usage
	finish    string
	log       zerolog.Logger
}

// NewReducer starts a reduction over the given history.
func NewReducer(history transcript.Transcript, sessionID string, log zerolog.Logger) *Reducer {
	return &Reducer{ts: history, sessionID: sessionID, log: log}
}

// Transcript returns the current snapshot.
func (r *Reducer) Transcript() transcript.Transcript {
	return r.ts
}

// Usage returns the accumulated token usage reported so far.
func (r *Reducer) Usage() llm.Usage {
	return r.usage
}

// FinishReason returns the completion reason, empty until the done event.
func (r *Reducer) FinishReason() string {
	return r.finish
}

// Apply folds one event into the transcript. When the event finalizes a
// tool call it returns that call so the caller can dispatch it; otherwise it
// returns nil.
func (r *Reducer) Apply(ev llm.Event) *transcript.ToolCall {
	switch ev.Type {
	case llm.EventTextDelta:
		r.ts = r.ts.MergeTextDelta(ev.Text)

	case llm.EventToolCallStart:
		if ev.Tool != nil {
			r.ts = r.ts.UpsertToolCallPart(ev.Tool.ID, ev.Tool.Name, json.RawMessage("{}"))
		}

	case llm.EventToolInputDelta:
		// Partial input is not surfaced until the call finalizes.

	case llm.EventToolCall:
		if ev.Tool != nil {
			r.ts = r.ts.UpsertToolCallPart(ev.Tool.ID, ev.Tool.Name, ev.Tool.Input)
			return ev.Tool
		}

	case llm.EventToolResult, llm.EventToolError:
		r.applyResult(ev.Result)

	case llm.EventError:
		r.log.Warn().Err(ev.Err).Str("session_id", r.sessionID).Msg("stream error event")
		r.ts = r.ts.AppendErrorTurn(normalizeError(ev.Err), r.sessionID)

	case llm.EventUsage:
		if ev.Use != nil {
			r.usage.Add(*ev.Use)
		}

	case llm.EventDone:
		r.finish = ev.FinishReason

	case llm.EventTextStart, llm.EventTextEnd, llm.EventReasoningDelta, llm.EventRaw:
		// Structural markers and passthrough payloads.
	}
	return nil
}

// applyResult appends a tool result turn. A result whose call id matches no
// open tool call is still recorded, flagged as an orphan, so a misbehaving
// transport cannot corrupt or crash the turn.
func (r *Reducer) applyResult(res *transcript.ToolResult) {
	if res == nil {
		return
	}
	if _, _, ok := r.ts.FindToolCall(res.CallID); ok {
		r.ts = r.ts.AppendToolResult(res.CallID, res.Name, res.Output)
		return
	}

	r.log.Warn().Str("call_id", res.CallID).Str("tool", res.Name).Msg("orphaned tool result")
	turn := transcript.Turn{
		Role: transcript.RoleTool,
		Parts: []transcript.Part{{
			Kind:       transcript.PartToolResult,
			ToolResult: &transcript.ToolResult{CallID: res.CallID, Name: res.Name, Output: res.Output},
		}},
		Meta: map[string]any{transcript.MetaOrphan: true},
	}
	if res.Output.Kind.IsError() {
		turn.Meta[transcript.MetaIsError] = true
	}
	r.ts = r.ts.AppendTurn(turn)
}
