// Package providers implements the C5 LLM client's vendor adapters: each
// wraps a vendor SDK behind the llm.Provider interface, absorbing that
// vendor's quirks (Anthropic prompt caching, OpenAI strict-mode schemas,
// Bedrock's request signing) so the rest of the core only ever sees
// llm.Request/llm.Response (spec §6.2).
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/quietloop/aecore/internal/llm"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// AnthropicProvider implements llm.Provider against Anthropic's Messages
// API, translating tool descriptors and prompt-caching headers the way
// the vendor expects.
type AnthropicProvider struct {
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicProvider constructs a provider from cfg.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: APIKey is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		defaultModel: model,
	}, nil
}

func (p *AnthropicProvider) Name() string        { return "anthropic" }
func (p *AnthropicProvider) SupportsTools() bool { return true }

// Generate implements llm.Provider.
func (p *AnthropicProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return llm.Response{}, &llm.Error{Kind: llm.ErrorInvalidRequest, Provider: "anthropic", Cause: err}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, classifyAnthropicError(err)
	}

	resp := llm.Response{
		Metadata: llm.Metadata{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			LatencyMS:        time.Since(start).Milliseconds(),
		},
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Blocks = append(resp.Blocks, llm.Block{Kind: llm.BlockTextResult, Text: variant.Text})
		case anthropic.ToolUseBlock:
			input, _ := json.Marshal(variant.Input)
			resp.Blocks = append(resp.Blocks, llm.Block{
				Kind: llm.BlockToolCall,
				Call: &llm.ToolCall{ID: variant.ID, Name: variant.Name, Input: input},
			})
		}
	}
	return resp, nil
}

func convertMessages(messages []llm.Message) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam
	for _, m := range messages {
		var content []anthropic.ContentBlockParamUnion
		if m.Content != "" {
			content = append(content, anthropic.NewTextBlock(m.Content))
		}
		for _, tc := range m.ToolCalls {
			var input any
			if len(tc.Input) > 0 {
				if err := json.Unmarshal(tc.Input, &input); err != nil {
					return nil, err
				}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}
		for _, tr := range m.ToolResults {
			content = append(content, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
		}
		if len(content) == 0 {
			continue
		}
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(content...))
		} else {
			out = append(out, anthropic.NewUserMessage(content...))
		}
	}
	return out, nil
}

func convertTools(tools []llm.ToolDescriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		_ = json.Unmarshal(t.InputSchema, &schema)
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}

// classifyAnthropicError maps the SDK's error into the error-kind table of
// spec §7; the SDK itself does not expose a typed taxonomy, so this mirrors
// the teacher's string/status-based classification in internal/agent/errors.go.
func classifyAnthropicError(err error) *llm.Error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return &llm.Error{Kind: llm.ErrorRateLimited, Provider: "anthropic", Cause: err}
		case apiErr.StatusCode >= 500:
			return &llm.Error{Kind: llm.ErrorInternal, Provider: "anthropic", Cause: err}
		case apiErr.StatusCode >= 400:
			return &llm.Error{Kind: llm.ErrorInvalidRequest, Provider: "anthropic", Cause: err}
		}
	}
	return &llm.Error{Kind: llm.ErrorAPIConnection, Provider: "anthropic", Cause: err}
}
