package cli

import (
	"errors"
	"testing"

	"ragapi/config"
	"ragapi/internal/domain"
)

func resetAskFlags(t *testing.T) {
	t.Helper()

	prevCfg, prevTopK, prevTemp, prevMax := cfg, askTopK, askTemperature, askMaxTokens
	t.Cleanup(func() {
		cfg, askTopK, askTemperature, askMaxTokens = prevCfg, prevTopK, prevTemp, prevMax
	})

	cfg = config.DefaultConfig()
	askTopK = 0
	askTemperature = -1
	askMaxTokens = 0
}

func TestAskOptions_FlagOverridesMerge(t *testing.T) {
	resetAskFlags(t)
	askTopK = 3
	askTemperature = 0.2
	askMaxTokens = 256

	opts, err := askOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.TopK != 3 || opts.Temperature != 0.2 || opts.MaxTokens != 256 {
		t.Errorf("overrides not applied: %+v", opts)
	}
}

func TestAskOptions_DefaultsWithoutFlags(t *testing.T) {
	resetAskFlags(t)

	opts, err := askOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.TopK != cfg.Query.TopK || opts.Temperature != cfg.Query.Temperature || opts.MaxTokens != cfg.Query.MaxTokens {
		t.Errorf("expected configured defaults, got %+v", opts)
	}
}

func TestAskOptions_RejectsOutOfRangeOverrides(t *testing.T) {
	tests := []struct {
		name  string
		apply func()
	}{
		{"temperature above 2", func() { askTemperature = 2.5 }},
		{"max tokens above cap", func() { askMaxTokens = 10000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetAskFlags(t)
			tt.apply()

			_, err := askOptions()
			if !errors.Is(err, domain.ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestNewEmbedder_MockDimensionFromConfig(t *testing.T) {
	resetAskFlags(t)
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = 128

	e, err := newEmbedder()
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimension() != 128 {
		t.Errorf("expected configured dimension 128, got %d", e.Dimension())
	}

	cfg.Embedding.Dimension = 0
	e, err = newEmbedder()
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimension() != 64 {
		t.Errorf("expected fallback dimension 64, got %d", e.Dimension())
	}
}
