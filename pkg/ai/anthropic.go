package ai

import (
	"context"
	"fmt"
)

// AnthropicConfig placeholder for anthropic integration configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// AnthropicHinter is a stub implementation that can be expanded once the SDK is available.
type AnthropicHinter struct{}

// NewAnthropicHinter constructs a new stub hint generator.
func NewAnthropicHinter(cfg AnthropicConfig) (*AnthropicHinter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	return &AnthropicHinter{}, nil
}

// GenerateHint is not yet implemented for Anthropic models.
func (a *AnthropicHinter) GenerateHint(ctx context.Context, input HintInput) (HintResult, error) {
	return HintResult{}, fmt.Errorf("anthropic hint generator not implemented")
}
