package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-platform-be/pkg/llm"
)

const (
	ProviderName     = "anthropic"
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-opus-20240229"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

type AnthropicProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*AnthropicProvider)(nil)

func NewAnthropicProvider(apiKey, baseURL, model string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *AnthropicProvider) Name() string {
	return ProviderName
}

func (p *AnthropicProvider) Model() string {
	return p.model
}

func (p *AnthropicProvider) buildRequest(history []llm.Message, opts []llm.Option, stream bool) messagesRequest {
	options := llm.ApplyOptions(llm.Options{
		Model:       p.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.7,
	}, opts...)

	// the messages API takes the system prompt out of band
	system, rest := llm.SplitSystem(history, options)

	return messagesRequest{
		Model:       options.Model,
		MaxTokens:   options.MaxTokens,
		System:      system,
		Messages:    rest,
		Temperature: options.Temperature,
		Stream:      stream,
	}
}

func (p *AnthropicProvider) send(ctx context.Context, reqBody messagesRequest) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, llm.ErrMissingCredentials(ProviderName)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, llm.RequestFailed(ProviderName, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, llm.UpstreamStatus(ProviderName, resp.StatusCode, body)
	}
	return resp, nil
}

func (p *AnthropicProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	reqBody := p.buildRequest(history, opts, false)

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var msg messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	model := msg.Model
	if model == "" {
		model = reqBody.Model
	}
	return &llm.Completion{
		Text:             sb.String(),
		PromptTokens:     msg.Usage.InputTokens,
		CompletionTokens: msg.Usage.OutputTokens,
		TotalTokens:      msg.Usage.InputTokens + msg.Usage.OutputTokens,
		Model:            model,
		Provider:         ProviderName,
	}, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Completion, error) {
	return p.Chat(ctx, llm.PromptHistory(prompt, opts...), opts...)
}

func (p *AnthropicProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	resp, err := p.send(ctx, p.buildRequest(history, opts, true))
	if err != nil {
		return nil, err
	}

	return llm.NewLineStream(resp.Body, func(line string) (string, bool, error) {
		data, ok := llm.SSEData(line)
		if !ok {
			// "event:" lines repeat the type carried in data
			return "", false, nil
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return "", false, fmt.Errorf("decode anthropic event: %w", err)
		}
		switch ev.Type {
		case "content_block_delta":
			return ev.Delta.Text, false, nil
		case "message_stop":
			return "", true, nil
		case "error":
			msg := "stream error"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			return "", true, llm.UpstreamStatus(ProviderName, http.StatusOK, []byte(msg))
		}
		return "", false, nil
	}), nil
}

func (p *AnthropicProvider) GenerateStream(ctx context.Context, prompt string, opts ...llm.Option) (llm.Stream, error) {
	return p.ChatStream(ctx, llm.PromptHistory(prompt, opts...), opts...)
}
