// Package config loads driftwatch configuration from YAML with environment
// overrides. The entity list is the run input; everything else tunes the
// pipeline components.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all driftwatch configuration.
type Config struct {
	// Entities is the ordered list of monitored competitors.
	Entities []Entity `yaml:"entities"`

	// Store configures the baseline snapshot store.
	Store StoreConfig `yaml:"store"`

	// Embedding configures the embedding engine.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Drift configures the drift classifier.
	Drift DriftConfig `yaml:"drift"`

	// Approval configures the approval gate.
	Approval ApprovalConfig `yaml:"approval"`

	// Fetch configures the browser fetcher.
	Fetch FetchConfig `yaml:"fetch"`

	// Run configures orchestration.
	Run RunConfig `yaml:"run"`

	// Logging configures categorized debug logging.
	Logging LoggingConfig `yaml:"logging"`
}

// Entity identifies one monitored competitor.
type Entity struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// StoreConfig configures snapshot persistence.
type StoreConfig struct {
	// Root is the directory holding dated snapshot files.
	Root string `yaml:"root"`

	// PerEntity namespaces snapshots under one directory per entity.
	PerEntity bool `yaml:"per_entity"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	// Provider: "ollama" or "genai"
	Provider string `yaml:"provider"`

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`
}

// DriftConfig configures classification.
type DriftConfig struct {
	// Threshold is the raw cosine similarity below which content is
	// classified as drift.
	Threshold float64 `yaml:"threshold"`
}

// ApprovalConfig configures the approval gate.
type ApprovalConfig struct {
	// Timeout is how long a request may stay pending before it expires.
	Timeout time.Duration `yaml:"timeout"`

	// Policy: "auto" approves every request, "deny" rejects every request.
	Policy string `yaml:"policy"`
}

// FetchConfig configures the browser fetcher.
type FetchConfig struct {
	Headless          bool          `yaml:"headless"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// RunConfig configures orchestration.
type RunConfig struct {
	// MaxConcurrent bounds entity fan-out. 1 means strictly sequential.
	MaxConcurrent int `yaml:"max_concurrent"`

	// Timeout bounds a whole run. Zero means no run-level timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns sensible defaults. The entity list is intentionally
// empty: entities always come from the user's config file.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Root: "Competitor_Intelligence",
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},
		Drift: DriftConfig{
			Threshold: 0.80,
		},
		Approval: ApprovalConfig{
			Timeout: 5 * time.Minute,
			Policy:  "auto",
		},
		Fetch: FetchConfig{
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
		},
		Run: RunConfig{
			MaxConcurrent: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file, applies defaults for anything
// unset, and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets secrets and tuning come from the environment
// without touching the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DRIFTWATCH_GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.Embedding.GenAIAPIKey == "" {
		c.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("DRIFTWATCH_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("DRIFTWATCH_OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("DRIFTWATCH_STORE_ROOT"); v != "" {
		c.Store.Root = v
	}
	if v := os.Getenv("DRIFTWATCH_DRIFT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Drift.Threshold = f
		}
	}
	if v := os.Getenv("DRIFTWATCH_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// ValidateEntities checks the run input. A missing or malformed entity list
// is a configuration-level failure: the orchestrator aborts before any
// entity work starts.
func (c *Config) ValidateEntities() error {
	if len(c.Entities) == 0 {
		return fmt.Errorf("no entities configured")
	}
	for i, e := range c.Entities {
		if e.Name == "" {
			return fmt.Errorf("entity %d has no name", i)
		}
		if e.URL == "" {
			return fmt.Errorf("entity %q has no url", e.Name)
		}
	}
	return nil
}
