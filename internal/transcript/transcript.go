// Package transcript holds the typed conversation transcript: an ordered
// sequence of role-attributed turns with copy-on-write update operations.
//
// Every mutating operation returns a new Transcript value and never writes
// through to memory reachable from a previously returned value, so snapshots
// handed to observers stay stable while the turn loop keeps appending.
package transcript

import (
	"encoding/json"
	"time"
)

// Role identifies a turn's speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Metadata keys used by the turn loop.
const (
	MetaIsError   = "is_error"
	MetaTimestamp = "timestamp"
	MetaSessionID = "session_id"
	MetaOrphan    = "orphan"
)

// Turn is one entry in the transcript. Content is either plain text (Parts
// nil) or an ordered part sequence (Parts non-nil). The representation is
// fixed when the turn is created: a parts turn is never coerced back into a
// plain-text turn.
type Turn struct {
	Role  Role           `json:"role"`
	Text  string         `json:"text,omitempty"`
	Parts []Part         `json:"parts,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// IsPlainText reports whether the turn's content is a plain text blob.
func (t Turn) IsPlainText() bool {
	return t.Parts == nil
}

// IsError reports whether the turn is flagged as an error turn.
func (t Turn) IsError() bool {
	v, ok := t.Meta[MetaIsError]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// TextContent returns the turn's text-equivalent content: the plain text
// blob, or the concatenation of text parts for a parts turn.
func (t Turn) TextContent() string {
	if t.IsPlainText() {
		return t.Text
	}
	var out string
	for _, p := range t.Parts {
		if p.Kind == PartText {
			out += p.Text
		}
	}
	return out
}

// Transcript is an ordered sequence of turns, insertion order chronological.
type Transcript []Turn

// AppendTurn adds a turn at the end. Always succeeds.
func (ts Transcript) AppendTurn(turn Turn) Transcript {
	out := make(Transcript, len(ts)+1)
	copy(out, ts)
	out[len(ts)] = turn
	return out
}

// MergeTextDelta concatenates text onto the last turn when it is a
// plain-text assistant turn that is not an error turn; otherwise it appends
// a new assistant turn. This is the only merge rule for narrative text, and
// it is what collapses consecutive fragments from one generation pass into a
// single turn.
func (ts Transcript) MergeTextDelta(text string) Transcript {
	if n := len(ts); n > 0 {
		last := ts[n-1]
		if last.Role == RoleAssistant && last.IsPlainText() && !last.IsError() {
			out := make(Transcript, n)
			copy(out, ts)
			out[n-1].Text = last.Text + text
			return out
		}
	}
	return ts.AppendTurn(Turn{Role: RoleAssistant, Text: text})
}

// UpsertToolCallPart binds input to the tool call with the given id. It
// scans turns from most recent backward for an assistant parts turn holding
// a ToolCall part with a matching id and replaces that part's input
// (copy-on-write); multiple calls may be open at once, and the backward scan
// is what binds a later event to the correct earlier-opened call. When no
// match exists a new assistant turn with a single ToolCall part is appended.
func (ts Transcript) UpsertToolCallPart(id, name string, input json.RawMessage) Transcript {
	if turnIdx, partIdx, ok := ts.FindToolCall(id); ok {
		out := make(Transcript, len(ts))
		copy(out, ts)

		parts := make([]Part, len(ts[turnIdx].Parts))
		copy(parts, ts[turnIdx].Parts)
		parts[partIdx] = Part{
			Kind:     PartToolCall,
			ToolCall: &ToolCall{ID: id, Name: name, Input: input},
		}
		out[turnIdx].Parts = parts
		return out
	}

	return ts.AppendTurn(Turn{
		Role: RoleAssistant,
		Parts: []Part{{
			Kind:     PartToolCall,
			ToolCall: &ToolCall{ID: id, Name: name, Input: input},
		}},
	})
}

// FindToolCall locates the ToolCall part with the given id, scanning turns
// from most recent backward.
func (ts Transcript) FindToolCall(id string) (turnIdx, partIdx int, ok bool) {
	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].Role != RoleAssistant || ts[i].IsPlainText() {
			continue
		}
		for j, p := range ts[i].Parts {
			if p.Kind == PartToolCall && p.ToolCall != nil && p.ToolCall.ID == id {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// AppendToolResult appends a tool turn holding a single ToolResult part.
// The turn carries is_error metadata when the output is an error variant.
func (ts Transcript) AppendToolResult(callID, name string, output Output) Transcript {
	turn := Turn{
		Role: RoleTool,
		Parts: []Part{{
			Kind:       PartToolResult,
			ToolResult: &ToolResult{CallID: callID, Name: name, Output: output},
		}},
	}
	if output.Kind.IsError() {
		turn.Meta = map[string]any{MetaIsError: true}
	}
	return ts.AppendTurn(turn)
}

// AppendErrorTurn appends a plain-text assistant turn flagged as an error,
// carrying the timestamp and session id a presentation layer needs to render
// it distinctly.
func (ts Transcript) AppendErrorTurn(message, sessionID string) Transcript {
	return ts.AppendTurn(Turn{
		Role: RoleAssistant,
		Text: message,
		Meta: map[string]any{
			MetaIsError:   true,
			MetaTimestamp: time.Now().UTC().Format(time.RFC3339),
			MetaSessionID: sessionID,
		},
	})
}

// UserText returns a plain-text user turn.
func UserText(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AssistantText returns a plain-text assistant turn.
func AssistantText(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}

// SystemText returns a plain-text system turn.
func SystemText(text string) Turn {
	return Turn{Role: RoleSystem, Text: text}
}
