package engine

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openaiProvider struct {
	client *openai.Client
}

func newOpenAIProvider(apiKey, baseURL string) *openaiProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *openaiProvider) Name() string { return ProviderOpenAI }

func (p *openaiProvider) StreamTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	params := openai.ChatCompletionRequest{
		Model:         req.Model,
		Messages:      toOpenAIMessages(req.System, req.Messages),
		Temperature:   req.Temperature,
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}
	if req.MaxTokens != nil {
		params.MaxTokens = *req.MaxTokens
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, params)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	res := &TurnResult{}
	var content strings.Builder
	builders := make(map[int]*openai.ToolCall)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		// Usage arrives on the final chunk when IncludeUsage is set.
		if chunk.Usage != nil {
			res.Usage.InputTokens = int64(chunk.Usage.PromptTokens)
			res.Usage.OutputTokens = int64(chunk.Usage.CompletionTokens)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			content.WriteString(delta.Content)
			if req.OnDelta != nil {
				req.OnDelta(delta.Content)
			}
		}

		// Tool calls stream in fragments keyed by index: the first fragment
		// carries the id and name, later ones append argument text.
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			b, ok := builders[idx]
			if !ok {
				b = &openai.ToolCall{}
				builders[idx] = b
			}
			if tc.ID != "" {
				b.ID = tc.ID
			}
			if tc.Function.Name != "" {
				b.Function.Name = tc.Function.Name
			}
			b.Function.Arguments += tc.Function.Arguments
		}
	}

	res.Content = content.String()

	indices := make([]int, 0, len(builders))
	for idx := range builders {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		b := builders[idx]
		res.ToolCalls = append(res.ToolCalls, ToolCall{
			ID:        b.ID,
			Name:      b.Function.Name,
			Arguments: b.Function.Arguments,
		})
	}
	return res, nil
}

func toOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, msg)
		case RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       m.Name,
				ToolCallID: m.ToolCallID,
			})
		default:
			out = append(out, openai.ChatCompletionMessage{
				Role:    m.Role,
				Content: m.Content,
			})
		}
	}
	return out
}

func toOpenAITools(defs []ToolDef) []openai.Tool {
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		schema := def.Schema
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  schema,
			},
		})
	}
	return tools
}
