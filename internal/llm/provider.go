// Package llm provides text-generation providers for entity extraction.
//
// Providers implement a single Generate call over the vendor chat-completion
// APIs. Provider selection is explicit through configuration; there is no
// process-wide default provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medextract/medextract/api/internal/config"
)

// ErrEmptyCompletion is returned when a provider responds without any
// generated text.
var ErrEmptyCompletion = errors.New("llm: provider returned empty completion")

// Provider is an opaque text-generation capability.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Generate produces a completion for the prompt. Transient network and
	// quota failures surface as errors; callers decide how to degrade.
	Generate(ctx context.Context, prompt string) (string, error)
	// ProviderName returns the backend identifier ("openai", "anthropic").
	ProviderName() string
	// ModelName returns the configured model.
	ModelName() string
}

// New creates a provider from configuration.
func New(cfg config.LLMConfig) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	switch cfg.Provider {
	case "openai":
		return newOpenAI(cfg, timeout), nil
	case "anthropic":
		return newAnthropic(cfg, timeout), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}
