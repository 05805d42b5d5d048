// Package config provides configuration loading and management for
// aegis. Credentials and endpoints live here and are passed into
// component constructors; business logic never reads the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete aegis configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	NATS   NATSConfig   `yaml:"nats"`
	LLM    LLMConfig    `yaml:"llm"`
	Search SearchConfig `yaml:"search"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `yaml:"addr"`
	// ReadTimeout bounds request reads
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// NATSConfig configures the NATS connection backing the store
type NATSConfig struct {
	// URL is the NATS server URL (empty = in-memory store, no NATS)
	URL string `yaml:"url"`
}

// EndpointConfig is one completion endpoint in the fallback chain
type EndpointConfig struct {
	// Provider selects the wire protocol ("openai" or "anthropic")
	Provider string `yaml:"provider"`
	// Model is the model identifier sent to the endpoint
	Model string `yaml:"model"`
	// URL is the API base URL (empty = provider default)
	URL string `yaml:"url"`
	// APIKey credentials the endpoint; APIKeyEnv names an environment
	// variable to read it from instead
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
	// MaxTokens caps the completion length (0 = provider default)
	MaxTokens int `yaml:"max_tokens"`
}

// LLMConfig configures the completion client
type LLMConfig struct {
	// Endpoints is the fallback chain, tried in order
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// SearchConfig configures the web search gateway
type SearchConfig struct {
	// Endpoint is the search API URL (empty = Serper default)
	Endpoint string `yaml:"endpoint"`
	// APIKey credentials the search API; APIKeyEnv names an
	// environment variable to read it from instead
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
	// ResultCount is the number of results requested per query
	ResultCount int `yaml:"result_count"`
	// DeepEvidence fetches the top hit per query and attaches its
	// extracted content to the evidence corpus
	DeepEvidence bool `yaml:"deep_evidence"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			ReadTimeout: 30 * time.Second,
		},
		NATS: NATSConfig{
			URL: "",
		},
		LLM: LLMConfig{
			Endpoints: []EndpointConfig{
				{
					Provider:  "openai",
					Model:     "gpt-4o-mini",
					APIKeyEnv: "OPENAI_API_KEY",
				},
			},
		},
		Search: SearchConfig{
			APIKeyEnv:   "SERPER_API_KEY",
			ResultCount: 8,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if len(c.LLM.Endpoints) == 0 {
		return fmt.Errorf("llm.endpoints must list at least one endpoint")
	}
	for i, ep := range c.LLM.Endpoints {
		if ep.Provider == "" {
			return fmt.Errorf("llm.endpoints[%d].provider is required", i)
		}
		if ep.Model == "" {
			return fmt.Errorf("llm.endpoints[%d].model is required", i)
		}
	}
	if c.Search.ResultCount <= 0 {
		return fmt.Errorf("search.result_count must be positive")
	}
	return nil
}

// ResolveSecrets fills API keys from their configured environment
// variables. Explicit api_key values take precedence.
func (c *Config) ResolveSecrets() {
	for i := range c.LLM.Endpoints {
		ep := &c.LLM.Endpoints[i]
		if ep.APIKey == "" && ep.APIKeyEnv != "" {
			ep.APIKey = os.Getenv(ep.APIKeyEnv)
		}
	}
	if c.Search.APIKey == "" && c.Search.APIKeyEnv != "" {
		c.Search.APIKey = os.Getenv(c.Search.APIKeyEnv)
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ReadTimeout != 0 {
		c.Server.ReadTimeout = other.Server.ReadTimeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// LLM: an explicit endpoint chain replaces the default wholesale
	if len(other.LLM.Endpoints) > 0 {
		c.LLM.Endpoints = other.LLM.Endpoints
	}

	// Search
	if other.Search.Endpoint != "" {
		c.Search.Endpoint = other.Search.Endpoint
	}
	if other.Search.APIKey != "" {
		c.Search.APIKey = other.Search.APIKey
	}
	if other.Search.APIKeyEnv != "" {
		c.Search.APIKeyEnv = other.Search.APIKeyEnv
	}
	if other.Search.ResultCount != 0 {
		c.Search.ResultCount = other.Search.ResultCount
	}
	if other.Search.DeepEvidence {
		c.Search.DeepEvidence = true
	}
}
