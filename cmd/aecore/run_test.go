package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietloop/aecore/internal/contextmgr"
	"github.com/quietloop/aecore/internal/toolmanager"
)

func TestTokenBudget_DefaultAndOverride(t *testing.T) {
	os.Unsetenv("TOKEN_BUDGET")
	n, err := tokenBudget()
	require.NoError(t, err)
	assert.Equal(t, 100000, n)

	t.Setenv("TOKEN_BUDGET", "5000")
	n, err = tokenBudget()
	require.NoError(t, err)
	assert.Equal(t, 5000, n)

	t.Setenv("TOKEN_BUDGET", "not-a-number")
	_, err = tokenBudget()
	assert.Error(t, err)
}

func TestBuildStrategy_UnknownMemoryToolIsInvalidArgs(t *testing.T) {
	_, err := buildStrategy("bogus", nil, nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errInvalidArgs)
}

func TestBuildStrategy_SimpleAndNoneUseTruncation(t *testing.T) {
	for _, name := range []string{"", "simple", "none"} {
		strategy, err := buildStrategy(name, nil, nil, "")
		require.NoError(t, err)
		_, ok := strategy.(contextmgr.TruncationStrategy)
		assert.True(t, ok, "memory-tool %q should use TruncationStrategy", name)
	}
}

func TestBuildSystemPrompt_ListsRegisteredTools(t *testing.T) {
	registry := toolmanager.NewRegistry()
	toolmanager.RegisterControlTools(registry)

	prompt := buildSystemPrompt(registry)
	assert.Contains(t, prompt, "complete")
	assert.Contains(t, prompt, "return_control_to_user")
}

func TestToLLMDescriptors_PreservesNameAndSchema(t *testing.T) {
	registry := toolmanager.NewRegistry()
	toolmanager.RegisterControlTools(registry)

	descs := toLLMDescriptors(registry.Descriptors())
	require.NotEmpty(t, descs)
	for _, d := range descs {
		assert.NotEmpty(t, d.Name)
		assert.True(t, d.Strict)
	}
}
