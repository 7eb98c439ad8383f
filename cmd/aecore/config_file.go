package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig holds the subset of runConfig flag defaults that a YAML
// defaults file (--config) can override, so operators can pin
// per-environment settings (model, memory strategy, database URL) without
// repeating long flag invocations on every invocation. A field left unset
// in the file keeps the hardcoded fallback baked into main.go's flag
// registration; any CLI flag that is actually passed still wins over both,
// since flags are parsed after these become the registered defaults.
type fileConfig struct {
	ModelName       string `yaml:"model_name"`
	LLMClient       string `yaml:"llm_client"`
	MemoryTool      string `yaml:"memory_tool"`
	MaxTurns        int    `yaml:"max_turns"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	DatabaseURL     string `yaml:"database_url"`
	RemoteAddr      string `yaml:"remote_addr"`
	Review          bool   `yaml:"review"`
}

// loadFileConfig parses path as YAML. An empty path returns the zero
// value, leaving every hardcoded flag default untouched.
func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func strOr(fileValue, fallback string) string {
	if fileValue != "" {
		return fileValue
	}
	return fallback
}

func intOr(fileValue, fallback int) int {
	if fileValue != 0 {
		return fileValue
	}
	return fallback
}
