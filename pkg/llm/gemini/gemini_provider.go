package gemini

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
	ProviderName     = "gemini"
	DefaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel     = "gemini-1.5-flash"
	defaultMaxTokens = 2048

	systemAck = "Understood. I'll follow these instructions."
)

type GeminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*GeminiProvider)(nil)

func NewGeminiProvider(apiKey, baseURL, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (p *GeminiProvider) Name() string {
	return ProviderName
}

func (p *GeminiProvider) Model() string {
	return p.model
}

// buildRequest maps the history onto Gemini contents. Gemini has no system
// role, so the system prompt is sent as a user turn followed by a model ack.
func (p *GeminiProvider) buildRequest(history []llm.Message, opts []llm.Option) (generateRequest, string) {
	options := llm.ApplyOptions(llm.Options{
		Model:       p.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.7,
	}, opts...)

	system, rest := llm.SplitSystem(history, options)

	contents := make([]content, 0, len(rest)+2)
	if system != "" {
		contents = append(contents,
			content{Role: "user", Parts: []part{{Text: system}}},
			content{Role: "model", Parts: []part{{Text: systemAck}}},
		)
	}
	for _, msg := range rest {
		role := msg.Role
		if role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}

	return generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}, options.Model
}

func (p *GeminiProvider) send(ctx context.Context, url string, reqBody generateRequest) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, llm.ErrMissingCredentials(ProviderName)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

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

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	reqBody, model := p.buildRequest(history, opts)

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	resp, err := p.send(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	text := genResp.text()
	usage := genResp.UsageMetadata
	completion := &llm.Completion{
		Text:             text,
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
		Model:            model,
		Provider:         ProviderName,
	}
	if completion.TotalTokens == 0 {
		completion.PromptTokens = llm.EstimateHistoryTokens(history)
		completion.CompletionTokens = llm.EstimateTokens(text)
		completion.TotalTokens = completion.PromptTokens + completion.CompletionTokens
	}
	return completion, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Completion, error) {
	return p.Chat(ctx, llm.PromptHistory(prompt, opts...), opts...)
}

func (p *GeminiProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	reqBody, model := p.buildRequest(history, opts)

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, model)
	resp, err := p.send(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	return llm.NewLineStream(resp.Body, func(line string) (string, bool, error) {
		data, ok := llm.SSEData(line)
		if !ok {
			return "", false, nil
		}
		var chunk generateResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", false, fmt.Errorf("decode gemini chunk: %w", err)
		}
		return chunk.text(), false, nil
	}), nil
}

func (p *GeminiProvider) GenerateStream(ctx context.Context, prompt string, opts ...llm.Option) (llm.Stream, error) {
	return p.ChatStream(ctx, llm.PromptHistory(prompt, opts...), opts...)
}
