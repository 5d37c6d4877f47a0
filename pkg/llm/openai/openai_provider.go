package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-platform-be/pkg/llm"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4-turbo-preview"
	HuggingFaceRouterURL  = "https://router.huggingface.co/v1"
	defaultMaxTokens      = 4096
	defaultTemperature    = 0.7
	defaultRequestTimeout = 120 * time.Second
)

// OpenAIProvider talks to any OpenAI compatible /chat/completions endpoint.
// The HuggingFace router is served by the same client under its own name.
type OpenAIProvider struct {
	name    string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(name, apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIProvider{
		name:    name,
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Request Payload Structure (OpenAI Compatible)
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) buildRequest(history []llm.Message, opts []llm.Option, stream bool) (chatRequest, llm.Options) {
	options := llm.ApplyOptions(llm.Options{
		Model:       p.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}, opts...)

	system, rest := llm.SplitSystem(history, options)
	messages := make([]llm.Message, 0, len(rest)+1)
	if system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, rest...)

	return chatRequest{
		Model:       options.Model,
		Messages:    messages,
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
		Stream:      stream,
	}, options
}

func (p *OpenAIProvider) send(ctx context.Context, reqBody chatRequest) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, llm.ErrMissingCredentials(p.name)
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, llm.RequestFailed(p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, llm.UpstreamStatus(p.name, resp.StatusCode, bodyBytes)
	}
	return resp, nil
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	reqBody, options := p.buildRequest(history, opts, false)

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, llm.UpstreamStatus(p.name, resp.StatusCode, []byte(chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("empty choices from %s api", p.name)
	}

	text := chatResp.Choices[0].Message.Content
	res := &llm.Completion{
		Text:     text,
		Model:    options.Model,
		Provider: p.name,
	}
	if chatResp.Model != "" {
		res.Model = chatResp.Model
	}
	if chatResp.Usage != nil {
		res.PromptTokens = chatResp.Usage.PromptTokens
		res.CompletionTokens = chatResp.Usage.CompletionTokens
		res.TotalTokens = chatResp.Usage.TotalTokens
	} else {
		res.PromptTokens = llm.EstimateHistoryTokens(reqBody.Messages)
		res.CompletionTokens = llm.EstimateTokens(text)
		res.TotalTokens = res.PromptTokens + res.CompletionTokens
	}
	return res, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Completion, error) {
	return p.Chat(ctx, llm.PromptHistory(prompt, opts...), opts...)
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	reqBody, _ := p.buildRequest(history, opts, true)

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	return llm.NewLineStream(resp.Body, func(line string) (string, bool, error) {
		data, ok := llm.SSEData(line)
		if !ok {
			return "", false, nil
		}
		if data == "[DONE]" {
			return "", true, nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", false, fmt.Errorf("decode %s stream chunk: %w", p.name, err)
		}
		if chunk.Error != nil {
			return "", true, llm.UpstreamStatus(p.name, http.StatusOK, []byte(chunk.Error.Message))
		}
		if len(chunk.Choices) == 0 {
			return "", false, nil
		}
		return chunk.Choices[0].Delta.Content, false, nil
	}), nil
}

func (p *OpenAIProvider) GenerateStream(ctx context.Context, prompt string, opts ...llm.Option) (llm.Stream, error) {
	return p.ChatStream(ctx, llm.PromptHistory(prompt, opts...), opts...)
}
