// Package llm defines the model transport boundary: providers stream typed
// events describing one model invocation's incremental output.
package llm

import (
	"context"
	"encoding/json"

	"github.com/atelier-sh/atelier/internal/transcript"
)

// Provider streams model output events for a request.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Stream yields events until io.EOF. The sequence is lazy, finite, and not
// restartable; events arrive in the transport's production order.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Request represents a single model invocation.
type Request struct {
	Model           string
	Instructions    string
	History         transcript.Transcript
	Tools           []ToolSpec
	MaxOutputTokens int
	Temperature     float32
}

// ToolSpec describes a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// EventType describes streaming events.
type EventType string

const (
	// Text lifecycle. Start/end are structural markers; only deltas carry
	// content.
	EventTextStart EventType = "text_start"
	EventTextDelta EventType = "text_delta"
	EventTextEnd   EventType = "text_end"

	// Reasoning output from thinking models. Markers only; not folded into
	// the transcript.
	EventReasoningDelta EventType = "reasoning_delta"

	// Tool call lifecycle. A call is opened with an id and name, its input
	// arrives as fragments, and the finalize event carries the complete
	// input. Open and finalize share the same id.
	EventToolCallStart  EventType = "tool_call_start"
	EventToolInputDelta EventType = "tool_input_delta"
	EventToolCall       EventType = "tool_call"

	// Tool outcomes. Synthesized by the dispatcher, never by a transport.
	EventToolResult EventType = "tool_result"
	EventToolError  EventType = "tool_error"

	EventUsage EventType = "usage"
	EventError EventType = "error"
	EventDone  EventType = "done"

	// Raw transport payload passthrough for debugging. Ignored by the
	// reducer.
	EventRaw EventType = "raw"
)

// Event represents a streamed output update.
type Event struct {
	Type         EventType
	Text         string
	Tool         *transcript.ToolCall
	Result       *transcript.ToolResult
	Use          *Usage
	Err          error
	FinishReason string
	Raw          json.RawMessage
}

// Usage captures token accounting if the transport reports it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates another usage report.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
