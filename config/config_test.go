package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ragapi/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunking.Size != 500 {
		t.Errorf("expected chunking.size=500, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.Overlap != 50 {
		t.Errorf("expected chunking.overlap=50, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Query.TopK != 5 {
		t.Errorf("expected query.top_k=5, got %d", cfg.Query.TopK)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("unexpected embedding model %q", cfg.Embedding.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ragapi.yaml")

	content := `
chunking:
  size: 800
  overlap: 100
llm:
  provider: anthropic
  model: claude-3-5-sonnet-latest
  api_key_env: ANTHROPIC_API_KEY
query:
  top_k: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunking.Size != 800 {
		t.Errorf("expected chunking.size=800, got %d", cfg.Chunking.Size)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected llm.provider=anthropic, got %q", cfg.LLM.Provider)
	}
	if cfg.Query.TopK != 3 {
		t.Errorf("expected query.top_k=3, got %d", cfg.Query.TopK)
	}
	// Untouched sections keep defaults.
	if cfg.VectorStore.Provider != "bolt" {
		t.Errorf("expected default vector store, got %q", cfg.VectorStore.Provider)
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap >= size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }},
		{"unknown vector store", func(c *Config) { c.VectorStore.Provider = "weaviate" }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "bedrock2" }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"top_k below 1", func(c *Config) { c.Query.TopK = 0 }},
		{"temperature above 2", func(c *Config) { c.Query.Temperature = 2.5 }},
		{"max_tokens above 4096", func(c *Config) { c.Query.MaxTokens = 5000 }},
		{"pinecone without host", func(c *Config) { c.VectorStore.Provider = "pinecone" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, domain.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ragapi.yaml")

	content := `
chunking:
  size: 100
  overlap: 100
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig for overlap >= size, got %v", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sub", "ragapi.yaml")

	cfg := DefaultConfig()
	cfg.Query.TopK = 7
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Query.TopK != 7 {
		t.Errorf("expected top_k=7 after reload, got %d", loaded.Query.TopK)
	}
}

func TestLoad_UnreadableFileIsConfigError(t *testing.T) {
	// A directory path fails os.ReadFile with something other than
	// not-exist; it must classify the same as a parse failure.
	_, err := Load(t.TempDir())
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig for unreadable config path, got %v", err)
	}
}
