package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"ai-platform-be/internal/constant"
	"ai-platform-be/internal/dto"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/pkg/llm"
	"ai-platform-be/pkg/metrics"
)

type IPlaygroundService interface {
	Chat(ctx context.Context, req dto.PlaygroundChatRequest) (*dto.PlaygroundChatResponse, error)
	// Stream emits chunk events followed by one complete event. It stops at
	// the first emit error.
	Stream(ctx context.Context, req dto.PlaygroundChatRequest, emit func(dto.PlaygroundStreamEvent) error) error
	Models() []constant.PlaygroundProviderModels
	Presets() []constant.PlaygroundPreset
}

type playgroundService struct {
	providers ProviderResolver
	logger    logger.ILogger
}

func NewPlaygroundService(providers ProviderResolver, log logger.ILogger) IPlaygroundService {
	return &playgroundService{
		providers: providers,
		logger:    log,
	}
}

func (s *playgroundService) prepare(req dto.PlaygroundChatRequest) (llm.LLMProvider, []llm.Message, []llm.Option, error) {
	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, nil, nil, err
	}

	history := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		history = append(history, llm.Message{Role: strings.ToLower(m.Role), Content: m.Content})
	}

	opts := []llm.Option{
		llm.WithModel(req.Model),
		llm.WithTemperature(req.Temperature),
		llm.WithMaxTokens(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		opts = append(opts, llm.WithSystemPrompt(req.SystemPrompt))
	}
	return provider, history, opts, nil
}

func (s *playgroundService) Chat(ctx context.Context, req dto.PlaygroundChatRequest) (*dto.PlaygroundChatResponse, error) {
	provider, history, opts, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	completion, err := provider.Chat(ctx, history, opts...)
	if err != nil {
		s.logger.Error("PLAYGROUND", "Chat failed", map[string]interface{}{
			"provider": provider.Name(),
			"error":    err.Error(),
		})
		return nil, err
	}

	metrics.RecordTokens(completion.Provider, completion.Model, completion.PromptTokens, completion.CompletionTokens)

	return &dto.PlaygroundChatResponse{
		Content:    completion.Text,
		Model:      completion.Model,
		Provider:   provider.Name(),
		TokensUsed: completion.TotalTokens,
		Cost:       EstimateCost(completion.Model, completion.PromptTokens, completion.CompletionTokens),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (s *playgroundService) Stream(ctx context.Context, req dto.PlaygroundChatRequest, emit func(dto.PlaygroundStreamEvent) error) error {
	provider, history, opts, err := s.prepare(req)
	if err != nil {
		return err
	}

	start := time.Now()
	stream, err := provider.ChatStream(ctx, history, opts...)
	if err != nil {
		return err
	}
	defer stream.Close()

	notDone, done := false, true
	var full strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)
		if err := emit(dto.PlaygroundStreamEvent{Type: "chunk", Content: fragment, Done: &notDone}); err != nil {
			return err
		}
	}

	return emit(dto.PlaygroundStreamEvent{
		Type:      "complete",
		Content:   full.String(),
		Done:      &done,
		LatencyMs: time.Since(start).Milliseconds(),
		Model:     req.Model,
		Provider:  provider.Name(),
	})
}

func (s *playgroundService) Models() []constant.PlaygroundProviderModels {
	return constant.PlaygroundModels
}

func (s *playgroundService) Presets() []constant.PlaygroundPreset {
	return constant.PlaygroundPresets
}
