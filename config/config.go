// Package config owns the persisted gateway configuration: the MCP
// server fleet and the default model. Configuration lives in a JSON file
// and every string in it supports ${VAR} environment substitution,
// applied when the document is loaded or imported.
package config

import (
	"github.com/armatrix/mcp-gateway/pool"
)

// DefaultPath is the configuration file location used when none is given.
const DefaultPath = "config/mcp_servers.json"

// ModelConfig selects and parameterizes the LLM backing the agent.
type ModelConfig struct {
	// Provider names the backend: "openai" or "anthropic".
	Provider string `json:"provider"`

	// ModelID is the provider's model identifier.
	ModelID string `json:"model_id"`

	// APIKeyEnv overrides the environment variable the API key is read
	// from. Empty means the provider's conventional variable.
	APIKeyEnv string `json:"api_key_env,omitempty"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// Temperature is the sampling temperature.
	Temperature float32 `json:"temperature"`

	// MaxTokens caps the response length. Nil leaves it to the provider.
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// DefaultModel returns the model configuration used when the file does
// not override it.
func DefaultModel() ModelConfig {
	return ModelConfig{
		Provider:    "openai",
		ModelID:     "gpt-4o-mini",
		Temperature: 0.7,
	}
}

// Config is the full persisted document.
type Config struct {
	Servers []pool.ServerConfig `json:"servers"`
	Model   ModelConfig         `json:"default_model"`
}

// clone returns a deep copy so callers can never alias store state.
func (c Config) clone() Config {
	out := Config{Model: c.Model}
	if c.Model.MaxTokens != nil {
		mt := *c.Model.MaxTokens
		out.Model.MaxTokens = &mt
	}
	if c.Servers != nil {
		out.Servers = make([]pool.ServerConfig, len(c.Servers))
		for i, srv := range c.Servers {
			out.Servers[i] = cloneServer(srv)
		}
	}
	return out
}

func cloneServer(s pool.ServerConfig) pool.ServerConfig {
	out := s
	if s.Args != nil {
		out.Args = append([]string(nil), s.Args...)
	}
	if s.Env != nil {
		out.Env = make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			out.Env[k] = v
		}
	}
	if s.Headers != nil {
		out.Headers = make(map[string]string, len(s.Headers))
		for k, v := range s.Headers {
			out.Headers[k] = v
		}
	}
	return out
}
