package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls   int
	fail    []error
	success Response
}

func (s *stubProvider) Generate(_ context.Context, _ Request) (Response, error) {
	s.calls++
	if s.calls-1 < len(s.fail) {
		return Response{}, s.fail[s.calls-1]
	}
	return s.success, nil
}

func (s *stubProvider) Name() string          { return "stub" }
func (s *stubProvider) SupportsTools() bool   { return true }

func TestClient_RetriesRetryableErrors(t *testing.T) {
	p := &stubProvider{
		fail: []error{
			&Error{Kind: ErrorAPIConnection, Provider: "stub"},
			&Error{Kind: ErrorRateLimited, Provider: "stub"},
		},
		success: Response{Blocks: []Block{{Kind: BlockTextResult, Text: "ok"}}},
	}
	c := NewClient(p, 5)
	c.policy.InitialMs = 1
	c.policy.MaxMs = 2

	resp, err := c.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Blocks[0].Text)
	assert.Equal(t, 3, p.calls)
}

func TestClient_DoesNotRetryInvalidRequest(t *testing.T) {
	p := &stubProvider{fail: []error{&Error{Kind: ErrorInvalidRequest, Provider: "stub"}}}
	c := NewClient(p, 5)

	_, err := c.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
	assert.True(t, IsError(err, ErrorInvalidRequest))
}

func TestClient_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	p := &stubProvider{fail: []error{
		&Error{Kind: ErrorInternal, Provider: "stub"},
		&Error{Kind: ErrorInternal, Provider: "stub"},
	}}
	c := NewClient(p, 2)
	c.policy.InitialMs = 1
	c.policy.MaxMs = 1

	_, err := c.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 2, p.calls)
}
