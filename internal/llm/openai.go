package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/atelier-sh/atelier/internal/transcript"
)

// OpenAIProvider implements Provider using the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client, model: model}
}

func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("OpenAI (%s)", p.model)
}

func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(chooseModel(req.Model, p.model)),
			Messages: buildOpenAIMessages(req.Instructions, req.History),
			StreamOptions: openai.ChatCompletionStreamOptionsParam{
				IncludeUsage: openai.Bool(true),
			},
		}
		if len(req.Tools) > 0 {
			params.Tools = buildOpenAITools(req.Tools)
		}
		if req.MaxOutputTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
		}
		if req.Temperature > 0 {
			params.Temperature = openai.Float(float64(req.Temperature))
		}

		state := newOpenAIToolState()
		var lastUsage *Usage
		finishReason := "stop"
		textOpen := false

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				lastUsage = &Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
				}
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					if !textOpen {
						textOpen = true
						if err := emit(ctx, events, Event{Type: EventTextStart}); err != nil {
							return err
						}
					}
					if err := emit(ctx, events, Event{Type: EventTextDelta, Text: choice.Delta.Content}); err != nil {
						return err
					}
				}
				for _, tc := range choice.Delta.ToolCalls {
					opened, fragment := state.Add(tc)
					if opened != nil {
						if err := emit(ctx, events, Event{Type: EventToolCallStart, Tool: opened}); err != nil {
							return err
						}
					}
					if fragment != "" {
						if err := emit(ctx, events, Event{Type: EventToolInputDelta, Text: fragment}); err != nil {
							return err
						}
					}
				}
				if choice.FinishReason != "" {
					finishReason = choice.FinishReason
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("openai streaming error: %w", err)
		}

		if textOpen {
			if err := emit(ctx, events, Event{Type: EventTextEnd}); err != nil {
				return err
			}
		}
		for _, call := range state.Calls() {
			call := call
			if err := emit(ctx, events, Event{Type: EventToolCall, Tool: &call}); err != nil {
				return err
			}
		}
		if lastUsage != nil {
			if err := emit(ctx, events, Event{Type: EventUsage, Use: lastUsage}); err != nil {
				return err
			}
		}
		return emit(ctx, events, Event{Type: EventDone, FinishReason: finishReason})
	}), nil
}

func buildOpenAIMessages(instructions string, history transcript.Transcript) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if instructions != "" {
		out = append(out, openai.SystemMessage(instructions))
	}

	for _, turn := range history {
		switch turn.Role {
		case transcript.RoleSystem:
			if text := turn.TextContent(); text != "" {
				out = append(out, openai.SystemMessage(text))
			}
		case transcript.RoleUser:
			if text := userTurnText(turn); text != "" {
				out = append(out, openai.UserMessage(text))
			}
		case transcript.RoleAssistant:
			if msg, ok := buildOpenAIAssistantMessage(turn); ok {
				out = append(out, msg)
			}
		case transcript.RoleTool:
			for _, part := range turn.Parts {
				if part.Kind == transcript.PartToolResult && part.ToolResult != nil {
					out = append(out, openai.ToolMessage(part.ToolResult.Output.String(), part.ToolResult.CallID))
				}
			}
		}
	}
	return out
}

func userTurnText(turn transcript.Turn) string {
	if turn.IsPlainText() {
		return turn.Text
	}
	text := turn.TextContent()
	for _, part := range turn.Parts {
		if part.Kind == transcript.PartFile && part.File != nil && len(part.File.Data) > 0 {
			text += fmt.Sprintf("\n\nContents of %s:\n%s", part.File.Path, string(part.File.Data))
		}
	}
	return text
}

func buildOpenAIAssistantMessage(turn transcript.Turn) (openai.ChatCompletionMessageParamUnion, bool) {
	if turn.IsPlainText() {
		if turn.Text == "" {
			return openai.ChatCompletionMessageParamUnion{}, false
		}
		return openai.AssistantMessage(turn.Text), true
	}

	msg := openai.ChatCompletionAssistantMessageParam{}
	if text := turn.TextContent(); text != "" {
		msg.Content.OfString = openai.String(text)
	}
	for _, part := range turn.Parts {
		if part.Kind != transcript.PartToolCall || part.ToolCall == nil {
			continue
		}
		msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: part.ToolCall.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      part.ToolCall.Name,
					Arguments: string(part.ToolCall.Input),
				},
			},
		})
	}
	if msg.Content.OfString.Value == "" && len(msg.ToolCalls) == 0 {
		return openai.ChatCompletionMessageParamUnion{}, false
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}, true
}

func buildOpenAITools(specs []ToolSpec) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openai.String(spec.Description),
			Parameters:  openai.FunctionParameters(spec.Schema),
		}))
	}
	return tools
}

// openAIToolState reassembles tool calls from chat completion deltas, keyed
// by the delta's tool call index. The first delta for an index carries the
// id and name; later deltas append argument fragments.
type openAIToolState struct {
	order []int64
	calls map[int64]*transcript.ToolCall
	args  map[int64][]byte
}

func newOpenAIToolState() *openAIToolState {
	return &openAIToolState{
		calls: make(map[int64]*transcript.ToolCall),
		args:  make(map[int64][]byte),
	}
}

// Add folds one delta into the state. It returns the newly opened call (id
// and name only) when the delta starts a call, and the argument fragment the
// delta carried, if any.
func (s *openAIToolState) Add(tc openai.ChatCompletionChunkChoiceDeltaToolCall) (*transcript.ToolCall, string) {
	var opened *transcript.ToolCall
	call, ok := s.calls[tc.Index]
	if !ok {
		call = &transcript.ToolCall{ID: tc.ID, Name: tc.Function.Name}
		s.calls[tc.Index] = call
		s.order = append(s.order, tc.Index)
		opened = &transcript.ToolCall{ID: call.ID, Name: call.Name}
	} else {
		if call.ID == "" && tc.ID != "" {
			call.ID = tc.ID
		}
		if call.Name == "" && tc.Function.Name != "" {
			call.Name = tc.Function.Name
		}
	}

	fragment := tc.Function.Arguments
	if fragment != "" {
		s.args[tc.Index] = append(s.args[tc.Index], fragment...)
	}
	return opened, fragment
}

// Calls returns the completed calls in the order they were opened.
func (s *openAIToolState) Calls() []transcript.ToolCall {
	out := make([]transcript.ToolCall, 0, len(s.order))
	for i, index := range s.order {
		call := *s.calls[index]
		if args := s.args[index]; len(args) > 0 {
			call.Input = json.RawMessage(args)
		} else {
			call.Input = json.RawMessage("{}")
		}
		if call.ID == "" {
			call.ID = fmt.Sprintf("toolcall-%d", i+1)
		}
		out = append(out, call)
	}
	return out
}
