package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrTruncated means the backend stopped at its output limit. A cut-off
// answer cannot hold a complete JSON report.
var ErrTruncated = errors.New("model output truncated")

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
	JSON        bool   // Ask the backend to constrain output to a JSON document
	ContextSize int    // Prompt window in tokens; 0 keeps the backend default
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithContextSize widens the prompt window so long contracts are not
// silently clipped by the backend.
func WithContextSize(tokens int) Option {
	return func(o *Options) {
		o.ContextSize = tokens
	}
}

func WithJSON() Option {
	return func(o *Options) {
		o.JSON = true
	}
}

// StatusError is returned when the backend answers with a non-200 status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
}

// ClientFault reports a 4xx answer: the request itself was rejected.
func (e *StatusError) ClientFault() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 408 && e.StatusCode != 429
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
