package main

import (
	"context"
	"errors"

	"github.com/quietloop/aecore/internal/contextmgr"
	"github.com/quietloop/aecore/internal/history"
	"github.com/quietloop/aecore/internal/llm"
)

// llmSummarizer adapts an *llm.Client into contextmgr.Summarizer, issuing
// a one-off generate call against contextmgr.BuildSummarizationPrompt
// (spec §4.4's "LLM-assisted summarization").
type llmSummarizer struct {
	client *llm.Client
	model  string
}

func (s llmSummarizer) Summarize(ctx context.Context, turns []history.Turn, maxChars int) (string, error) {
	prompt := contextmgr.BuildSummarizationPrompt(turns, maxChars)
	resp, err := s.client.Generate(ctx, llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens: maxChars / 2, // chars->tokens is a rough upper bound; the prompt already caps length
		Model:     s.model,
	})
	if err != nil {
		return "", err
	}
	for _, b := range resp.Blocks {
		if b.Kind == llm.BlockTextResult {
			return b.Text, nil
		}
	}
	return "", errors.New("summarizer: no text block in response")
}
