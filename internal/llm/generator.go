// Package llm provides text generation clients for LLM provider APIs, a
// generic retry policy for transient failures, and a gateway that fails over
// from a primary provider to a secondary one.
package llm

import (
	"context"
	"fmt"

	"github.com/casewright/petition-service/internal/domain"
)

// GenerationRequest describes a single text generation call.
type GenerationRequest struct {
	// Prompt is the user prompt. Required.
	Prompt string
	// SystemPrompt is the optional system instruction.
	SystemPrompt string
	// MaxTokens is the maximum number of output tokens. Must be positive.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float64
}

// Validate checks the request before any network call is made.
func (r GenerationRequest) Validate() error {
	if r.Prompt == "" {
		return domain.NewValidationError("prompt", "must not be empty")
	}
	if r.MaxTokens <= 0 {
		return domain.NewValidationError("max_tokens", fmt.Sprintf("must be positive, got %d", r.MaxTokens))
	}
	return nil
}

// GenerationResult is the outcome of a successful generation call.
type GenerationResult struct {
	// Text is the generated text.
	Text string
	// Model is the model that produced the text.
	Model string
	// Provider is the provider that served the request.
	Provider string
	// InputTokens is the prompt token count reported by the API.
	InputTokens int
	// OutputTokens is the completion token count reported by the API.
	OutputTokens int
}

// TextGenerator generates text from a prompt. Implementations make a single
// API call per invocation; retry and failover live above this interface.
type TextGenerator interface {
	// Generate performs one text generation call.
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
	// Provider returns the provider name (e.g. "anthropic").
	Provider() string
	// Model returns the model identifier being used.
	Model() string
	// MaxOutputTokens returns the hard output token limit of the provider's
	// API. Requests above this limit are clamped by callers.
	MaxOutputTokens() int
}
