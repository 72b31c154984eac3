// Package config loads the runtime's static configuration and carries the
// guideline constants (see runtime.go) that parametrize the component
// design's timeouts, retry policy, and compaction budgets.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/agentcore-ai/runtime/pkg/types"
)

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/agentcore/)
//  2. Project config (.agentcore/)
//  3. Environment variables
func Load(directory string) (*types.Config, error) {
	cfg := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
		Agent:    make(map[string]types.AgentConfig),
	}

	globalPath := GetPaths().Config
	loadConfigFile(filepath.Join(globalPath, "agentcore.json"), cfg)
	loadConfigFile(filepath.Join(globalPath, "agentcore.jsonc"), cfg)

	if directory != "" {
		loadConfigFile(filepath.Join(directory, ".agentcore", "agentcore.json"), cfg)
		loadConfigFile(filepath.Join(directory, ".agentcore", "agentcore.jsonc"), cfg)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadConfigFile(path string, cfg *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // file doesn't exist, skip
	}

	data = jsonc.ToJSON(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(cfg, &fileConfig)
	return nil
}

func mergeConfig(target, source *types.Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.SmallModel != "" {
		target.SmallModel = source.SmallModel
	}
	if source.Share != "" {
		target.Share = source.Share
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if source.Agent != nil {
		if target.Agent == nil {
			target.Agent = make(map[string]types.AgentConfig)
		}
		for k, v := range source.Agent {
			target.Agent[k] = v
		}
	}

	if source.Permission != nil {
		target.Permission = source.Permission
	}

	if source.MCP != nil {
		if target.MCP == nil {
			target.MCP = make(map[string]types.MCPConfig)
		}
		for k, v := range source.MCP {
			target.MCP[k] = v
		}
	}
}

func applyEnvOverrides(cfg *types.Config) {
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"ark":       "ARK_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if cfg.Provider == nil {
				cfg.Provider = make(map[string]types.ProviderConfig)
			}
			p := cfg.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				cfg.Provider[provider] = p
			}
		}
	}

	if model := os.Getenv("AGENTCORE_MODEL"); model != "" {
		cfg.Model = model
	}
	if smallModel := os.Getenv("AGENTCORE_SMALL_MODEL"); smallModel != "" {
		cfg.SmallModel = smallModel
	}
}

// Save writes the configuration to path, creating parent directories.
func Save(cfg *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
