package contextmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/quietloop/aecore/internal/history"
)

// Summarizer is implemented by an LLM-backed summarization call. It is
// deliberately narrow (one method) so the context manager can be tested
// against a fake without depending on internal/llm.
type Summarizer interface {
	Summarize(ctx context.Context, turns []history.Turn, maxChars int) (string, error)
}

// SummarizingConfig configures SummarizingStrategy.
type SummarizingConfig struct {
	// HeadSize is how many of the most recent turns are kept verbatim and
	// excluded from summarization (spec §4.4 default N=10).
	HeadSize int
	// MaxSummaryChars bounds the requested summary length.
	MaxSummaryChars int
}

// DefaultSummarizingConfig matches spec §4.4's stated default head size.
func DefaultSummarizingConfig() SummarizingConfig {
	return SummarizingConfig{HeadSize: 10, MaxSummaryChars: 2000}
}

// SummarizingStrategy implements spec §4.4's LLM-summarizing strategy:
// split history into a head (HeadSize most recent turns) and a tail, call
// the LLM with a summarization prompt against the tail, and replace the
// tail with a single synthetic user turn containing the summary.
type SummarizingStrategy struct {
	Summarizer Summarizer
	Config     SummarizingConfig
}

// Apply implements Strategy. A Summarize failure is reported as ok=false
// so the Manager falls back to truncation, per spec §4.4: "Summarization
// is an LLM call and may itself fail; on failure, fall back to
// truncation."
func (s SummarizingStrategy) Apply(ctx context.Context, turns []history.Turn, budget int) ([]history.Turn, bool) {
	headSize := s.Config.HeadSize
	if headSize <= 0 {
		headSize = 10
	}
	maxChars := s.Config.MaxSummaryChars
	if maxChars <= 0 {
		maxChars = 2000
	}

	if len(turns) <= headSize {
		return turns, true
	}

	tail := turns[:len(turns)-headSize]
	head := turns[len(turns)-headSize:]

	summary, err := s.Summarizer.Summarize(ctx, tail, maxChars)
	if err != nil {
		return nil, false
	}

	synthetic := history.Turn{
		Role: history.RoleUser,
		Blocks: []history.Block{{
			Kind: history.BlockTextPrompt,
			Text: summary,
		}},
	}

	out := make([]history.Turn, 0, len(head)+1)
	out = append(out, synthetic)
	out = append(out, head...)
	return out, true
}

// BuildSummarizationPrompt renders the tail turns into the text an
// LLM-backed Summarizer implementation sends as its user message, in the
// same structure the teacher's BuildSummarizationPrompt produces.
func BuildSummarizationPrompt(turns []history.Turn, maxChars int) string {
	var sb strings.Builder
	sb.WriteString("Summarize the following conversation concisely. ")
	fmt.Fprintf(&sb, "Keep the summary under %d characters. ", maxChars)
	sb.WriteString("Focus on key topics, decisions, pending tasks, and tool outcomes.\n\n")

	for _, t := range turns {
		sb.WriteString("[")
		sb.WriteString(string(t.Role))
		sb.WriteString("]: ")
		for _, b := range t.Blocks {
			switch b.Kind {
			case history.BlockTextPrompt, history.BlockTextResult:
				sb.WriteString(b.Text)
			case history.BlockToolCall:
				fmt.Fprintf(&sb, "[called tool: %s]", b.ToolName)
			case history.BlockToolFormattedResult:
				content := b.Content
				if len(content) > 200 {
					content = content[:200] + "..."
				}
				status := "success"
				if b.IsError {
					status = "error"
				}
				fmt.Fprintf(&sb, "[tool result (%s): %s]", status, content)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n---\nProvide a concise summary:")
	return sb.String()
}
