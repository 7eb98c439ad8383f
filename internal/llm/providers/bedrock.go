package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/quietloop/aecore/internal/llm"
)

// BedrockConfig configures a BedrockProvider.
type BedrockConfig struct {
	Region       string
	DefaultModel string
}

// BedrockProvider implements llm.Provider against AWS Bedrock's Converse
// API, giving the core a vendor-agnostic path to Claude/Titan/Llama/Mistral
// models hosted on Bedrock without a separate adapter per model family.
type BedrockProvider struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// NewBedrockProvider constructs a provider from cfg, loading AWS
// credentials from the default provider chain (env, shared config, IAM
// role).
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	return &BedrockProvider{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: model,
	}, nil
}

func (p *BedrockProvider) Name() string        { return "bedrock" }
func (p *BedrockProvider) SupportsTools() bool  { return true }

// Generate implements llm.Provider using Bedrock's synchronous Converse
// operation (the streaming ConverseStream variant is reserved for the
// websocket delivery path in cmd/aecore, not the core generate contract).
func (p *BedrockProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages, err := convertBedrockMessages(req.Messages)
	if err != nil {
		return llm.Response{}, &llm.Error{Kind: llm.ErrorInvalidRequest, Provider: "bedrock", Cause: err}
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
	}
	if req.SystemPrompt != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.SystemPrompt}}
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(req.MaxTokens))}
	}
	if len(req.Tools) > 0 {
		toolConfig, err := convertBedrockTools(req.Tools)
		if err != nil {
			return llm.Response{}, &llm.Error{Kind: llm.ErrorInvalidRequest, Provider: "bedrock", Cause: err}
		}
		input.ToolConfig = toolConfig
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return llm.Response{}, classifyBedrockError(err)
	}

	resp := llm.Response{Metadata: llm.Metadata{LatencyMS: time.Since(start).Milliseconds()}}
	if out.Usage != nil {
		resp.Metadata.PromptTokens = int(aws.ToInt32(out.Usage.InputTokens))
		resp.Metadata.CompletionTokens = int(aws.ToInt32(out.Usage.OutputTokens))
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return resp, nil
	}
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			resp.Blocks = append(resp.Blocks, llm.Block{Kind: llm.BlockTextResult, Text: b.Value})
		case *types.ContentBlockMemberToolUse:
			input, _ := json.Marshal(b.Value.Input)
			resp.Blocks = append(resp.Blocks, llm.Block{
				Kind: llm.BlockToolCall,
				Call: &llm.ToolCall{ID: aws.ToString(b.Value.ToolUseId), Name: aws.ToString(b.Value.Name), Input: input},
			})
		}
	}
	return resp, nil
}

func convertBedrockMessages(messages []llm.Message) ([]types.Message, error) {
	var out []types.Message
	for _, m := range messages {
		var blocks []types.ContentBlock
		if m.Content != "" {
			blocks = append(blocks, &types.ContentBlockMemberText{Value: m.Content})
		}
		for _, tc := range m.ToolCalls {
			var input document.Interface
			if len(tc.Input) > 0 {
				input = document.NewLazyDocument(json.RawMessage(tc.Input))
			}
			blocks = append(blocks, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{ToolUseId: aws.String(tc.ID), Name: aws.String(tc.Name), Input: input},
			})
		}
		for _, tr := range m.ToolResults {
			status := types.ToolResultStatusSuccess
			if tr.IsError {
				status = types.ToolResultStatusError
			}
			blocks = append(blocks, &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: aws.String(tr.ToolCallID),
					Status:    status,
					Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: tr.Content}},
				},
			})
		}
		if len(blocks) == 0 {
			continue
		}
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{Role: role, Content: blocks})
	}
	return out, nil
}

func convertBedrockTools(tools []llm.ToolDescriptor) (*types.ToolConfiguration, error) {
	specs := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			return nil, err
		}
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		})
	}
	return &types.ToolConfiguration{Tools: specs}, nil
}

func classifyBedrockError(err error) *llm.Error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return &llm.Error{Kind: llm.ErrorRateLimited, Provider: "bedrock", Cause: err}
		case "ValidationException", "ModelErrorException":
			return &llm.Error{Kind: llm.ErrorInvalidRequest, Provider: "bedrock", Cause: err}
		case "InternalServerException", "ServiceUnavailableException":
			return &llm.Error{Kind: llm.ErrorInternal, Provider: "bedrock", Cause: err}
		}
	}
	return &llm.Error{Kind: llm.ErrorAPIConnection, Provider: "bedrock", Cause: err}
}
