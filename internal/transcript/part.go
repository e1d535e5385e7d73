package transcript

import "encoding/json"

// PartKind identifies a content part variant. Parts are a tagged union;
// callers dispatch on the kind, never on type identity.
type PartKind string

const (
	PartText       PartKind = "text"
	PartFile       PartKind = "file"
	PartReasoning  PartKind = "reasoning"
	PartToolCall   PartKind = "tool_call"
	PartToolResult PartKind = "tool_result"
)

// Part is one typed fragment of a turn's content. Exactly one of the
// variant fields is populated, selected by Kind.
type Part struct {
	Kind       PartKind    `json:"kind"`
	Text       string      `json:"text,omitempty"`
	File       *File       `json:"file,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// File is an attached file referenced from a turn.
type File struct {
	Path      string `json:"path"`
	MediaType string `json:"media_type,omitempty"`
	Data      []byte `json:"data,omitempty"`
}

// ToolCall is a model-requested tool invocation. Input is the partially
// built structured value until the call is finalized.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResult is the outcome of a tool call, correlated by CallID.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Output Output `json:"output"`
}

// OutputKind tags a tool output variant.
type OutputKind string

const (
	OutputText      OutputKind = "text"
	OutputJSON      OutputKind = "json"
	OutputErrorText OutputKind = "error_text"
	OutputErrorJSON OutputKind = "error_json"
)

// IsError reports whether the kind is an error variant.
func (k OutputKind) IsError() bool {
	return k == OutputErrorText || k == OutputErrorJSON
}

// Output is a tagged tool output. Text is set for the text kinds, JSON for
// the json kinds.
type Output struct {
	Kind OutputKind      `json:"kind"`
	Text string          `json:"text,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
}

// TextOutput returns a plain text output.
func TextOutput(text string) Output {
	return Output{Kind: OutputText, Text: text}
}

// JSONOutput returns a structured output.
func JSONOutput(raw json.RawMessage) Output {
	return Output{Kind: OutputJSON, JSON: raw}
}

// ErrorTextOutput returns a text error output.
func ErrorTextOutput(text string) Output {
	return Output{Kind: OutputErrorText, Text: text}
}

// ErrorJSONOutput returns a structured error output.
func ErrorJSONOutput(raw json.RawMessage) Output {
	return Output{Kind: OutputErrorJSON, JSON: raw}
}

// String returns the output's text-equivalent content.
func (o Output) String() string {
	switch o.Kind {
	case OutputJSON, OutputErrorJSON:
		return string(o.JSON)
	default:
		return o.Text
	}
}
