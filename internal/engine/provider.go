package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Provider names accepted by NewProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ErrUnknownProvider is returned by NewProvider for provider names it does
// not recognize.
var ErrUnknownProvider = errors.New("engine: unknown provider")

// Provider streams a single conversation turn from a model API.
type Provider interface {
	Name() string
	StreamTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
}

// TurnRequest is the input for one model turn.
type TurnRequest struct {
	Model       string
	Temperature float32

	// MaxTokens caps the response length. Nil lets the provider pick its
	// own default.
	MaxTokens *int

	System   string
	Messages []Message
	Tools    []ToolDef

	// OnDelta receives raw text deltas as they arrive from the stream.
	// Nil disables streaming callbacks.
	OnDelta func(delta string)
}

// TurnResult is the outcome of one model turn.
type TurnResult struct {
	Content   string
	ToolCalls []ToolCall
	Usage     TokenUsage
}

// NewProvider constructs a Provider by name. keyEnv overrides the
// environment variable the API key is read from; baseURL overrides the API
// endpoint. Both may be empty.
func NewProvider(name, keyEnv, baseURL string) (Provider, error) {
	switch name {
	case ProviderOpenAI:
		return newOpenAIProvider(resolveKey(keyEnv, "OPENAI_API_KEY"), baseURL), nil
	case ProviderAnthropic:
		return newAnthropicProvider(resolveKey(keyEnv, "ANTHROPIC_API_KEY"), baseURL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// resolveKey reads the API key from keyEnv, falling back to fallbackEnv
// when keyEnv is empty.
func resolveKey(keyEnv, fallbackEnv string) string {
	if keyEnv == "" {
		keyEnv = fallbackEnv
	}
	return os.Getenv(keyEnv)
}
