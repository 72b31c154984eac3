package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-ai/runtime/pkg/types"
)

func TestLoadProjectConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "agentcore-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	configDir := filepath.Join(tmpDir, ".agentcore")
	require.NoError(t, os.MkdirAll(configDir, 0755))

	content := `{
		"$schema": "https://agentcore.ai/config.json",
		"model": "anthropic/claude-sonnet-4",
		"provider": {"anthropic": {"apiKey": "test-key"}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "agentcore.json"), []byte(content), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-sonnet-4", cfg.Model)
	assert.Equal(t, "test-key", cfg.Provider["anthropic"].APIKey)
}

func TestLoadJSONCComments(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "agentcore-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	configDir := filepath.Join(tmpDir, ".agentcore")
	require.NoError(t, os.MkdirAll(configDir, 0755))

	content := `{
		// model selection
		"model": "openai/gpt-4o"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "agentcore.jsonc"), []byte(content), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", cfg.Model)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AGENTCORE_MODEL", "anthropic/claude-opus-4")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-opus-4", cfg.Model)
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "agentcore-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	path := filepath.Join(tmpDir, "nested", "agentcore.json")
	cfg := &types.Config{Model: "anthropic/claude-sonnet-4"}
	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "claude-sonnet-4")
}

func TestDefaultRuntimeGuidelines(t *testing.T) {
	rt := DefaultRuntime()
	assert.Equal(t, 3, rt.MaxRetries)
	assert.Equal(t, 1000, rt.RingBufferSize)
}
