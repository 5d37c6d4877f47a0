package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature  float64
	MaxTokens    int
	Model        string // Override default model
	SystemPrompt string
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		if maxTokens > 0 {
			o.MaxTokens = maxTokens
		}
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

// ApplyOptions layers opts over base.
func ApplyOptions(base Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// Completion is a finished generation with its token accounting.
type Completion struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
}

// Stream yields text fragments as the upstream produces them.
// Recv returns io.EOF once the answer is complete. A stream cannot be restarted.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	Name() string

	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (*Completion, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (*Completion, error)

	ChatStream(ctx context.Context, history []Message, options ...Option) (Stream, error)
	GenerateStream(ctx context.Context, prompt string, options ...Option) (Stream, error)
}

// ModelNamer is implemented by providers that know the model they use when
// no override is given.
type ModelNamer interface {
	Model() string
}

// ResolveModel returns override when set, else the provider's own default
// model, else "".
func ResolveModel(p LLMProvider, override string) string {
	if override != "" {
		return override
	}
	if n, ok := p.(ModelNamer); ok {
		return n.Model()
	}
	return ""
}

// PromptHistory turns a single prompt into a chat history, prepending the
// system prompt carried by opts when present.
func PromptHistory(prompt string, opts ...Option) []Message {
	o := ApplyOptions(Options{}, opts...)
	history := make([]Message, 0, 2)
	if o.SystemPrompt != "" {
		history = append(history, Message{Role: RoleSystem, Content: o.SystemPrompt})
	}
	return append(history, Message{Role: RoleUser, Content: prompt})
}

// SplitSystem pulls system messages out of history. A system prompt set via
// options wins over system messages in the history.
func SplitSystem(history []Message, o Options) (string, []Message) {
	system := o.SystemPrompt
	rest := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == RoleSystem {
			if o.SystemPrompt == "" {
				if system != "" {
					system += "\n\n"
				}
				system += m.Content
			}
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
