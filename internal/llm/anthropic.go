package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/atelier-sh/atelier/internal/transcript"
)

// AnthropicProvider implements Provider using the Anthropic API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client, model: model}
}

func (p *AnthropicProvider) Name() string {
	return fmt.Sprintf("Anthropic (%s)", p.model)
}

func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		system, messages := buildAnthropicMessages(req.Instructions, req.History)
		accumulator := newToolCallAccumulator()

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(chooseModel(req.Model, p.model)),
			MaxTokens: maxTokens(req.MaxOutputTokens, 4096),
			Messages:  messages,
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}
		if len(req.Tools) > 0 {
			params.Tools = buildAnthropicTools(req.Tools)
		}
		if req.Temperature > 0 {
			params.Temperature = anthropic.Float(float64(req.Temperature))
		}

		var lastUsage *Usage
		stream := p.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				switch block := variant.ContentBlock.AsAny().(type) {
				case anthropic.TextBlock:
					if err := emit(ctx, events, Event{Type: EventTextStart}); err != nil {
						return err
					}
				case anthropic.ThinkingBlock:
					if block.Thinking != "" {
						if err := emit(ctx, events, Event{Type: EventReasoningDelta, Text: block.Thinking}); err != nil {
							return err
						}
					}
				case anthropic.ToolUseBlock:
					accumulator.Start(variant.Index, transcript.ToolCall{
						ID:    block.ID,
						Name:  block.Name,
						Input: toolInputToRaw(block.Input),
					})
					opened := transcript.ToolCall{ID: block.ID, Name: block.Name}
					if err := emit(ctx, events, Event{Type: EventToolCallStart, Tool: &opened}); err != nil {
						return err
					}
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						if err := emit(ctx, events, Event{Type: EventTextDelta, Text: delta.Text}); err != nil {
							return err
						}
					}
				case anthropic.InputJSONDelta:
					if delta.PartialJSON != "" {
						accumulator.Append(variant.Index, delta.PartialJSON)
						if err := emit(ctx, events, Event{Type: EventToolInputDelta, Text: delta.PartialJSON}); err != nil {
							return err
						}
					}
				case anthropic.ThinkingDelta:
					if delta.Thinking != "" {
						if err := emit(ctx, events, Event{Type: EventReasoningDelta, Text: delta.Thinking}); err != nil {
							return err
						}
					}
				}
			case anthropic.ContentBlockStopEvent:
				if call, ok := accumulator.Finish(variant.Index); ok {
					if err := emit(ctx, events, Event{Type: EventToolCall, Tool: &call}); err != nil {
						return err
					}
				} else {
					if err := emit(ctx, events, Event{Type: EventTextEnd}); err != nil {
						return err
					}
				}
			case anthropic.MessageDeltaEvent:
				if variant.Usage.OutputTokens > 0 {
					lastUsage = &Usage{
						InputTokens:  int(variant.Usage.InputTokens),
						OutputTokens: int(variant.Usage.OutputTokens),
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("anthropic streaming error: %w", err)
		}
		if lastUsage != nil {
			if err := emit(ctx, events, Event{Type: EventUsage, Use: lastUsage}); err != nil {
				return err
			}
		}
		return emit(ctx, events, Event{Type: EventDone, FinishReason: "stop"})
	}), nil
}

func buildAnthropicMessages(instructions string, history transcript.Transcript) (string, []anthropic.MessageParam) {
	systemParts := []string{}
	if instructions != "" {
		systemParts = append(systemParts, instructions)
	}
	var out []anthropic.MessageParam

	for _, turn := range history {
		switch turn.Role {
		case transcript.RoleSystem:
			systemParts = append(systemParts, turn.TextContent())
		case transcript.RoleUser:
			blocks := buildAnthropicBlocks(turn, false)
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		case transcript.RoleAssistant:
			blocks := buildAnthropicBlocks(turn, true)
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case transcript.RoleTool:
			// Tool results travel back as user-role content blocks.
			blocks := buildAnthropicBlocks(turn, false)
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		}
	}

	return strings.Join(systemParts, "\n\n"), out
}

func buildAnthropicBlocks(turn transcript.Turn, allowToolUse bool) []anthropic.ContentBlockParamUnion {
	if turn.IsPlainText() {
		if turn.Text == "" {
			return nil
		}
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(turn.Text)}
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Parts))
	for _, part := range turn.Parts {
		switch part.Kind {
		case transcript.PartText:
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case transcript.PartFile:
			if part.File != nil && len(part.File.Data) > 0 {
				blocks = append(blocks, anthropic.NewTextBlock(
					fmt.Sprintf("Contents of %s:\n%s", part.File.Path, string(part.File.Data))))
			}
		case transcript.PartToolCall:
			if allowToolUse && part.ToolCall != nil {
				blocks = append(blocks, anthropic.NewToolUseBlock(part.ToolCall.ID, part.ToolCall.Input, part.ToolCall.Name))
			}
		case transcript.PartToolResult:
			if part.ToolResult != nil {
				blocks = append(blocks, anthropic.NewToolResultBlock(
					part.ToolResult.CallID,
					part.ToolResult.Output.String(),
					part.ToolResult.Output.Kind.IsError(),
				))
			}
		}
	}
	return blocks
}

func buildAnthropicTools(specs []ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type:       constant.Object("object"),
			Properties: spec.Schema["properties"],
			Required:   schemaRequired(spec.Schema),
		}
		tool := anthropic.ToolUnionParamOfTool(inputSchema, spec.Name)
		if spec.Description != "" {
			tool.OfTool.Description = anthropic.String(spec.Description)
		}
		tools = append(tools, tool)
	}
	return tools
}

func schemaRequired(schema map[string]any) []string {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toolInputToRaw(input any) json.RawMessage {
	switch v := input.(type) {
	case json.RawMessage:
		return v
	case []byte:
		return json.RawMessage(v)
	case string:
		return json.RawMessage(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return json.RawMessage(data)
	}
}

// toolCallAccumulator reassembles a tool call whose input arrives as partial
// JSON fragments, keyed by the transport's content block index.
type toolCallAccumulator struct {
	calls    map[int64]transcript.ToolCall
	fallback map[int64]json.RawMessage
	partial  map[int64]*strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{
		calls:    make(map[int64]transcript.ToolCall),
		fallback: make(map[int64]json.RawMessage),
		partial:  make(map[int64]*strings.Builder),
	}
}

func (a *toolCallAccumulator) Start(index int64, call transcript.ToolCall) {
	if len(call.Input) > 0 {
		a.fallback[index] = call.Input
	}
	call.Input = nil
	a.calls[index] = call
}

func (a *toolCallAccumulator) Append(index int64, partial string) {
	if partial == "" {
		return
	}
	builder := a.partial[index]
	if builder == nil {
		builder = &strings.Builder{}
		a.partial[index] = builder
	}
	builder.WriteString(partial)
}

func (a *toolCallAccumulator) Finish(index int64) (transcript.ToolCall, bool) {
	call, ok := a.calls[index]
	if !ok {
		return transcript.ToolCall{}, false
	}
	if builder := a.partial[index]; builder != nil && builder.Len() > 0 {
		call.Input = json.RawMessage(builder.String())
	} else if fallback, ok := a.fallback[index]; ok {
		call.Input = fallback
	} else {
		call.Input = json.RawMessage("{}")
	}
	delete(a.calls, index)
	delete(a.partial, index)
	delete(a.fallback, index)
	return call, true
}

func chooseModel(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}

func maxTokens(requested, fallback int) int64 {
	if requested > 0 {
		return int64(requested)
	}
	return int64(fallback)
}
