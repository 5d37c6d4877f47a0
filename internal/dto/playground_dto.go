package dto

type PlaygroundMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

type PlaygroundChatRequest struct {
	Messages     []PlaygroundMessage `json:"messages" validate:"required,min=1,dive"`
	Model        string              `json:"model"`
	Provider     string              `json:"provider"`
	Temperature  float64             `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int                 `json:"max_tokens" validate:"min=1,max=8192"`
	Stream       bool                `json:"stream"`
	SystemPrompt string              `json:"system_prompt,omitempty"`
}

func NewPlaygroundChatRequest(provider, model string) PlaygroundChatRequest {
	return PlaygroundChatRequest{
		Model:       model,
		Provider:    provider,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Stream:      true,
	}
}

type PlaygroundChatResponse struct {
	Content    string  `json:"content"`
	Model      string  `json:"model"`
	Provider   string  `json:"provider"`
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`
	LatencyMs  int64   `json:"latency_ms"`
}

// PlaygroundStreamEvent is a websocket frame: chunk, complete or error.
type PlaygroundStreamEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Done      *bool  `json:"done,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Model     string `json:"model,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Error     string `json:"error,omitempty"`
}
