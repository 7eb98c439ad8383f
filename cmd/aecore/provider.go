package main

import (
	"context"
	"fmt"
	"os"

	"github.com/quietloop/aecore/internal/llm"
	"github.com/quietloop/aecore/internal/llm/providers"
)

// buildProvider resolves --llm-client to a concrete llm.Provider, reading
// vendor API keys from the environment per spec §6.5 ("API keys are taken
// from the environment, one per vendor").
func buildProvider(ctx context.Context, clientName, model string) (llm.Provider, error) {
	switch clientName {
	case "", "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for --llm-client=anthropic")
		}
		return providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: key, DefaultModel: model})

	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for --llm-client=openai")
		}
		return providers.NewOpenAIProvider(providers.OpenAIConfig{APIKey: key, DefaultModel: model})

	case "bedrock":
		return providers.NewBedrockProvider(ctx, providers.BedrockConfig{
			Region:       os.Getenv("AWS_REGION"),
			DefaultModel: model,
		})

	default:
		return nil, fmt.Errorf("unknown --llm-client %q (want anthropic, openai, or bedrock)", clientName)
	}
}
