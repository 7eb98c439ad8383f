package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quietloop/aecore/internal/llm"
)

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// OpenAIProvider implements llm.Provider against OpenAI's chat completions
// API, sending tool schemas with `strict: true` per spec §4.5.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider constructs a provider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: APIKey is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: model,
	}, nil
}

func (p *OpenAIProvider) Name() string        { return "openai" }
func (p *OpenAIProvider) SupportsTools() bool { return true }

// Generate implements llm.Provider.
func (p *OpenAIProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := convertOpenAIMessages(req.Messages, req.SystemPrompt)

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokensOrDefault(req.MaxTokens),
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertOpenAITools(req.Tools)
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return llm.Response{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, &llm.Error{Kind: llm.ErrorInternal, Provider: "openai", Message: "empty choices"}
	}

	choice := resp.Choices[0].Message
	out := llm.Response{
		Metadata: llm.Metadata{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			LatencyMS:        time.Since(start).Milliseconds(),
		},
	}
	if choice.Content != "" {
		out.Blocks = append(out.Blocks, llm.Block{Kind: llm.BlockTextResult, Text: choice.Content})
	}
	for _, tc := range choice.ToolCalls {
		out.Blocks = append(out.Blocks, llm.Block{
			Kind: llm.BlockToolCall,
			Call: &llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: json.RawMessage(tc.Function.Arguments)},
		})
	}
	return out, nil
}

func convertOpenAIMessages(messages []llm.Message, system string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:       tc.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: tc.Name, Arguments: string(tc.Input)},
			})
		}
		if len(m.ToolResults) > 0 {
			out = append(out, msg)
			for _, tr := range m.ToolResults {
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
			continue
		}
		out = append(out, msg)
	}
	return out
}

func convertOpenAITools(tools []llm.ToolDescriptor) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		var schema map[string]any
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
				Strict:      t.Strict,
			},
		}
	}
	return out
}

func classifyOpenAIError(err error) *llm.Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return &llm.Error{Kind: llm.ErrorRateLimited, Provider: "openai", Cause: err}
		case apiErr.HTTPStatusCode >= 500:
			return &llm.Error{Kind: llm.ErrorInternal, Provider: "openai", Cause: err}
		case apiErr.HTTPStatusCode >= 400:
			return &llm.Error{Kind: llm.ErrorInvalidRequest, Provider: "openai", Cause: err}
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return &llm.Error{Kind: llm.ErrorAPIConnection, Provider: "openai", Cause: err}
	}
	return &llm.Error{Kind: llm.ErrorAPIConnection, Provider: "openai", Cause: err}
}
