package service

import (
	"context"
	"fmt"

	"ai-platform-be/internal/constant"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	// Consume drains the in-process topic until ctx is done.
	Consume(ctx context.Context) error
	// HandleRemote applies events published by other instances.
	HandleRemote(ctx context.Context, event events.Envelope) error
	HandleEvent(ctx context.Context, event events.Event) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	ragCache   cache.Store
	source     string
	logger     logger.ILogger
}

// NewConsumerService invalidates cached RAG answers when a collection's
// content changes. ragCache must be the rag namespace view.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ragCache cache.Store,
	source string,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		ragCache:   ragCache,
		source:     source,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	env, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to decode event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if err := cs.HandleEvent(ctx, env); err != nil {
		cs.logger.Error("CONSUMER", "Failed to handle event", map[string]interface{}{
			"type":  env.Type,
			"error": err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

func (cs *consumerService) HandleRemote(ctx context.Context, event events.Envelope) error {
	if event.Source == cs.source {
		// already applied through the in-process bus
		return nil
	}
	return cs.HandleEvent(ctx, event)
}

func (cs *consumerService) HandleEvent(ctx context.Context, event events.Event) error {
	switch event.EventType() {
	case events.DocumentIngested, events.DocumentFailed, events.DocumentDeleted, events.CollectionDeleted:
	default:
		return nil
	}

	collection := events.StringField(event, events.KeyCollectionName)
	if collection == "" {
		cs.logger.Warn("CONSUMER", "Event without collection", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	gen, err := cs.ragCache.Increment(ctx, fmt.Sprintf(constant.CollectionGenerationKey, collection), 1)
	if err != nil {
		return fmt.Errorf("bump generation for %s: %w", collection, err)
	}

	cs.logger.Info("CONSUMER", "Collection cache invalidated", map[string]interface{}{
		"type":       event.EventType(),
		"collection": collection,
		"generation": gen,
	})
	return nil
}
