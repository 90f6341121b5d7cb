package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ragapi/internal/domain"
)

// Config holds all configuration for the RAG service.
type Config struct {
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Query       QueryConfig       `yaml:"query"`
	Ingest      IngestConfig      `yaml:"ingest"`
}

// ChunkingConfig controls how documents are split before embedding.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "openai", "mock"
	Model             string  `yaml:"model"`    // e.g. "text-embedding-3-small"
	APIKeyEnv         string  `yaml:"api_key_env"`
	BaseURL           string  `yaml:"base_url"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Dimension         int     `yaml:"dimension"`           // mock provider only; openai derives from model
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Provider string         `yaml:"provider"` // "bolt", "pinecone"
	Path     string         `yaml:"path"`     // bolt index file
	Pinecone PineconeConfig `yaml:"pinecone"`
}

// PineconeConfig holds connection details for a Pinecone index.
type PineconeConfig struct {
	Host      string `yaml:"host"` // index host URL
	APIKeyEnv string `yaml:"api_key_env"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig holds generation provider configuration.
type LLMConfig struct {
	Provider      string `yaml:"provider"` // "openai", "anthropic"
	Model         string `yaml:"model"`
	APIKeyEnv     string `yaml:"api_key_env"`
	BaseURL       string `yaml:"base_url"`
	MaxConcurrent int    `yaml:"max_concurrent"` // in-flight request cap
}

// QueryConfig holds defaults for the query pipeline.
type QueryConfig struct {
	TopK        int     `yaml:"top_k"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// IngestConfig controls which files the ingest command picks up.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			BaseURL:   "https://api.openai.com/v1",
			BatchSize: 100,
		},
		VectorStore: VectorStoreConfig{
			Provider: "bolt",
			Path:     "data/index.db",
			Pinecone: PineconeConfig{
				APIKeyEnv: "PINECONE_API_KEY",
				BatchSize: 100,
			},
		},
		LLM: LLMConfig{
			Provider:      "openai",
			Model:         "gpt-4o",
			APIKeyEnv:     "OPENAI_API_KEY",
			MaxConcurrent: 8,
		},
		Query: QueryConfig{
			TopK:        5,
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/node_modules/**", "**/.git/**"},
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. The result is validated before being returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfig, path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for
// ragapi.yaml, then .ragapi/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragapi.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragapi", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every setting once, at load time. Anything caught
// here is a fatal configuration fault, never retried.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive, got %d", domain.ErrConfig, c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("%w: chunking.overlap must not be negative, got %d", domain.ErrConfig, c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap (%d) must be smaller than chunking.size (%d)",
			domain.ErrConfig, c.Chunking.Overlap, c.Chunking.Size)
	}

	switch c.Embedding.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfig, c.Embedding.Provider)
	}

	switch c.VectorStore.Provider {
	case "bolt":
		if c.VectorStore.Path == "" {
			return fmt.Errorf("%w: vector_store.path is required for the bolt backend", domain.ErrConfig)
		}
	case "pinecone":
		if c.VectorStore.Pinecone.Host == "" {
			return fmt.Errorf("%w: vector_store.pinecone.host is required for the pinecone backend", domain.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector store %q", domain.ErrConfig, c.VectorStore.Provider)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfig, c.LLM.Provider)
	}

	if c.Query.TopK < 1 {
		return fmt.Errorf("%w: query.top_k must be at least 1, got %d", domain.ErrConfig, c.Query.TopK)
	}
	if c.Query.Temperature < 0 || c.Query.Temperature > 2 {
		return fmt.Errorf("%w: query.temperature must be in [0, 2], got %g", domain.ErrConfig, c.Query.Temperature)
	}
	if c.Query.MaxTokens < 1 || c.Query.MaxTokens > 4096 {
		return fmt.Errorf("%w: query.max_tokens must be in [1, 4096], got %d", domain.ErrConfig, c.Query.MaxTokens)
	}

	return nil
}
