package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-sh/atelier/internal/llm"
	"github.com/atelier-sh/atelier/internal/tools"
	"github.com/atelier-sh/atelier/internal/transcript"
)

const maxConcurrentTools = 4

// Dispatcher invokes finalized tool calls against the registry and turns
// their outcomes into result events for the reducer.
type Dispatcher struct {
	registry *tools.Registry
	ec       *tools.Context
}

// NewDispatcher creates a dispatcher bound to one turn's execution context.
func NewDispatcher(registry *tools.Registry, ec *tools.Context) *Dispatcher {
	return &Dispatcher{registry: registry, ec: ec}
}

// Dispatch runs one tool call and returns the result or error event carrying
// the originating call id. Tool failures never surface as Go errors; they
// become error outputs the model can read and react to.
func (d *Dispatcher) Dispatch(ctx context.Context, call *transcript.ToolCall) llm.Event {
	if err := ctx.Err(); err != nil {
		return toolErrorEvent(call, err)
	}

	tool, ok := d.registry.Get(call.Name)
	if !ok {
		d.ec.Log.Warn().Str("tool", call.Name).Msg("tool not found")
		return toolErrorEvent(call, tools.NewToolErrorf(tools.ErrInvalidParams, "tool not found: %s", call.Name))
	}

	d.ec.Log.Debug().Str("tool", call.Name).Str("call_id", call.ID).Msg("dispatch tool call")
	value, err := tool.Execute(ctx, call.Input, d.ec)
	if err != nil {
		return toolErrorEvent(call, err)
	}

	return llm.Event{
		Type: llm.EventToolResult,
		Result: &transcript.ToolResult{
			CallID: call.ID,
			Name:   call.Name,
			Output: ClassifyOutput(value),
		},
	}
}

// DispatchAll runs a batch of tool calls concurrently and returns their
// result events in call order. Once the context is cancelled no further
// calls start; each pending call fails fast with a cancellation error.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []*transcript.ToolCall) []llm.Event {
	events := make([]llm.Event, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTools)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			events[i] = d.Dispatch(gctx, call)
			return nil
		})
	}
	g.Wait()
	return events
}

func toolErrorEvent(call *transcript.ToolCall, err error) llm.Event {
	return llm.Event{
		Type: llm.EventToolError,
		Result: &transcript.ToolResult{
			CallID: call.ID,
			Name:   call.Name,
			Output: classifyError(err),
		},
	}
}

// ClassifyOutput coerces a tool's return value into a text or json output.
// Classification never fails; an unclassifiable value falls back to its
// string form.
func ClassifyOutput(value any) transcript.Output {
	switch v := value.(type) {
	case nil:
		return transcript.TextOutput("")
	case string:
		if isJSONShaped(v) {
			return transcript.JSONOutput(json.RawMessage(v))
		}
		return transcript.TextOutput(v)
	case []byte:
		if isJSONShaped(string(v)) {
			return transcript.JSONOutput(json.RawMessage(v))
		}
		return transcript.TextOutput(string(v))
	case json.RawMessage:
		return transcript.JSONOutput(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return transcript.TextOutput(fmt.Sprintf("%v", v))
		}
		return transcript.JSONOutput(raw)
	}
}

// classifyError coerces a tool failure into an error output. Typed tool
// errors keep their structure so the model can branch on the error type;
// anything else becomes error text.
func classifyError(err error) transcript.Output {
	var te *tools.ToolError
	if errors.As(err, &te) {
		raw, marshalErr := json.Marshal(te)
		if marshalErr == nil {
			return transcript.ErrorJSONOutput(raw)
		}
	}
	return transcript.ErrorTextOutput(normalizeError(err))
}

// isJSONShaped reports whether s is a complete JSON object or array.
func isJSONShaped(s string) bool {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return gjson.Valid(trimmed)
}

// normalizeError renders any error payload as a human-readable string,
// falling back to a generic message only when there is nothing to report.
func normalizeError(err error) string {
	if err == nil {
		return "Unknown error occurred"
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "Unknown error occurred"
	}
	return msg
}
