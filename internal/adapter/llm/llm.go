// Package llm provides the generation provider adapters. Both
// variants map provider finish-reason vocabulary to the normalized
// set in domain and expose the same synchronous and streaming calls,
// so the orchestrator never sees provider-specific shapes.
package llm

import (
	"fmt"

	"ragapi/config"
	"ragapi/internal/domain"
	"ragapi/internal/port"
)

// New resolves the configured generation provider.
func New(cfg config.LLMConfig) (port.LLM, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAILLM(cfg)
	case "anthropic":
		return NewAnthropicLLM(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfig, cfg.Provider)
	}
}
