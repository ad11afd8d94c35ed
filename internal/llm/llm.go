package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrGeneration matches any *GenerationError.
var ErrGeneration = errors.New("generation failed")

// Gateway sends a prompt to a hosted generative model and returns its text.
type Gateway interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GatewayFunc adapts a plain function to a Gateway.
type GatewayFunc func(ctx context.Context, prompt string) (string, error)

func (f GatewayFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config selects and authenticates a provider. It is passed to the
// constructors explicitly; there is no package-level client.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// GenerationError wraps any failure of the remote call: transport, auth,
// quota or an unusable response.
type GenerationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("error generating content: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// New builds the gateway named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Gateway, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiGateway(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIGateway(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
