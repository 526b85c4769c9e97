// Package llm wraps the model provider behind a small completion interface.
// The service is treated as unreliable: callers are expected to fall back to
// deterministic behavior when a call fails or returns garbage.
package llm

import "context"

// Client is the interface for interacting with an LLM.
type Client interface {
	// Complete sends a system and user prompt and returns the response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error)
}

// Options holds per-call completion options.
type Options struct {
	Model            string // override the client default model
	StructuredOutput bool   // instruct the model to respond with JSON only
}

// Option is a functional option for Complete.
type Option func(*Options)

// WithModel overrides the model for a single call.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithStructuredOutput asks the model for a JSON-only response.
func WithStructuredOutput() Option {
	return func(o *Options) { o.StructuredOutput = true }
}

// ApplyOptions folds a set of options into an Options value.
func ApplyOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
