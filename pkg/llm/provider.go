package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	JSONOutput  bool   // Ask the backend to constrain output to JSON
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithJSONOutput constrains the response to a single JSON value on backends
// that support it. Callers still parse defensively; not every backend honors
// the constraint.
func WithJSONOutput() Option {
	return func(o *Options) {
		o.JSONOutput = true
	}
}

// TokenFunc receives one streamed token. Returning an error tears down the
// stream.
type TokenFunc func(token string) error

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// StreamProvider is implemented by backends that can deliver tokens as they
// are produced. Callers that need streaming type-assert for it and fall back
// to Chat when the backend cannot stream.
type StreamProvider interface {
	LLMProvider

	// Stream sends a chat history and invokes onToken for every token in
	// emission order, returning the accumulated full text. A context
	// cancellation surfaces as ctx.Err(), distinct from transport failures.
	Stream(ctx context.Context, history []Message, onToken TokenFunc, options ...Option) (string, error)
}
