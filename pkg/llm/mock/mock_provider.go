package mock

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"ai-platform-be/pkg/llm"
)

const (
	ProviderName = "mock"
	DefaultModel = "mock"
)

var cannedResponses = []string{
	"Based on my analysis, I can provide you with a comprehensive answer to your question. The key points to consider are: first, understanding the context is essential; second, we should evaluate the available options; and third, implementing a solution requires careful planning.",
	"That's an interesting question! Let me break it down for you. There are several factors at play here, and I'll walk you through each one to give you a complete picture.",
	"I'd be happy to help with that. Here's what I found: the solution involves a multi-step approach that addresses both the immediate concerns and long-term considerations.",
	"Great question! The answer depends on a few variables, but generally speaking, the best approach would be to start with the fundamentals and then build upon them systematically.",
	"Let me analyze this for you. From what I can see, there are three main aspects to consider. I'll explain each one and then provide my recommendation.",
}

// MockProvider answers without network access or credentials. It never fails
// unless the caller cancels.
type MockProvider struct {
	maxLatency time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

var _ llm.LLMProvider = (*MockProvider)(nil)

// NewMockProvider simulates latency between maxLatency/4 and maxLatency. Zero disables it.
func NewMockProvider(maxLatency time.Duration) *MockProvider {
	return &MockProvider{
		maxLatency: maxLatency,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *MockProvider) Name() string {
	return ProviderName
}

func (p *MockProvider) Model() string {
	return DefaultModel
}

func (p *MockProvider) pick() (string, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	text := cannedResponses[p.rnd.Intn(len(cannedResponses))]
	if p.maxLatency <= 0 {
		return text, 0
	}
	low := p.maxLatency / 4
	return text, low + time.Duration(p.rnd.Int63n(int64(p.maxLatency-low)+1))
}

// answer builds the reply for the last user turn.
func (p *MockProvider) answer(history []llm.Message) (string, time.Duration) {
	text, latency := p.pick()

	var prompt string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser {
			prompt = history[i].Content
			break
		}
	}
	return prefixFor(prompt) + text, latency
}

func prefixFor(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(prompt, "?"):
		return "Regarding your question: "
	case containsAny(lower, "create", "generate", "write"):
		return "Here's what I've created for you: "
	case containsAny(lower, "explain", "describe", "what is"):
		return "Let me explain: "
	}
	return ""
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *MockProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	options := llm.ApplyOptions(llm.Options{Model: DefaultModel}, opts...)
	system, rest := llm.SplitSystem(history, options)

	text, latency := p.answer(rest)
	if err := sleep(ctx, latency); err != nil {
		return nil, err
	}

	promptTokens := len(strings.Fields(system))
	for _, m := range rest {
		promptTokens += len(strings.Fields(m.Content))
	}
	completionTokens := len(strings.Fields(text))

	return &llm.Completion{
		Text:             text,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Model:            options.Model,
		Provider:         ProviderName,
	}, nil
}

func (p *MockProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Completion, error) {
	return p.Chat(ctx, llm.PromptHistory(prompt, opts...), opts...)
}

// ChatStream yields the canned answer word by word.
func (p *MockProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	options := llm.ApplyOptions(llm.Options{}, opts...)
	_, rest := llm.SplitSystem(history, options)

	text, latency := p.answer(rest)
	words := strings.Fields(text)
	fragments := make([]string, len(words))
	for i, w := range words {
		if i < len(words)-1 {
			w += " "
		}
		fragments[i] = w
	}

	var delay time.Duration
	if latency > 0 {
		delay = latency / time.Duration(len(fragments))
	}
	return llm.NewFragmentStream(ctx, fragments, delay), nil
}

func (p *MockProvider) GenerateStream(ctx context.Context, prompt string, opts ...llm.Option) (llm.Stream, error) {
	return p.ChatStream(ctx, llm.PromptHistory(prompt, opts...), opts...)
}
