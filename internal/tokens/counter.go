// Package tokens implements the deterministic, stateless token counter
// (component C3): count(block) and count_messages(turns) per spec §4.3.
// The context manager (internal/contextmgr) consumes these counts only by
// comparison against a configured budget, so only relative accuracy
// matters across vendors.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/quietloop/aecore/internal/history"
)

// perMessageOverhead approximates the role/framing tokens every vendor adds
// around a message, following the OpenAI cookbook's counting recipe (also
// used by the teacher's reference counter).
const perMessageOverhead = 3

// Counter is a Counter implementation backed by tiktoken-go. It is safe
// for concurrent use: encodings are cached process-wide and the only
// mutable state is that cache.
type Counter struct {
	mu       sync.RWMutex
	encoding *tiktoken.Tiktoken
}

var (
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
	encodingCacheMu sync.RWMutex
)

// New returns a Counter for the given model name, falling back to the
// cl100k_base encoding when the model is unrecognized by tiktoken-go —
// matching spec §4.3's "Implementation is free to use ... a documented
// approximation".
func New(model string) (*Counter, error) {
	encodingCacheMu.RLock()
	enc, ok := encodingCache[model]
	encodingCacheMu.RUnlock()
	if ok {
		return &Counter{encoding: enc}, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	encodingCacheMu.Lock()
	encodingCache[model] = enc
	encodingCacheMu.Unlock()

	return &Counter{encoding: enc}, nil
}

// Count returns the token count of a single block's text content.
func (c *Counter) Count(b history.Block) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	text := blockText(b)
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// CountTurn returns the token count of a whole turn, including the
// per-message framing overhead vendors add.
func (c *Counter) CountTurn(t history.Turn) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := perMessageOverhead
	total += len(c.encoding.Encode(string(t.Role), nil, nil))
	for _, b := range t.Blocks {
		if text := blockText(b); text != "" {
			total += len(c.encoding.Encode(text, nil, nil))
		}
	}
	return total
}

// CountMessages returns the token count of an entire projected turn list,
// the signature spec §4.3 names count_messages.
func (c *Counter) CountMessages(turns []history.Turn) int {
	total := 0
	for _, t := range turns {
		total += c.CountTurn(t)
	}
	return total
}

func blockText(b history.Block) string {
	switch b.Kind {
	case history.BlockTextPrompt, history.BlockTextResult:
		return b.Text
	case history.BlockToolCall:
		return b.ToolName + string(b.ToolInput)
	case history.BlockToolFormattedResult:
		return b.Content
	default:
		return ""
	}
}
