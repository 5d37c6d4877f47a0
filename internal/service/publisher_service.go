package service

import (
	"context"

	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	mirror    events.Publisher
	source    string
	logger    logger.ILogger
}

// NewPublisherService publishes on the in-process bus and, when mirror is
// non-nil, copies every event to it. Mirror failures are logged only.
func NewPublisherService(
	topicName string,
	publisher message.Publisher,
	mirror events.Publisher,
	source string,
	log logger.ILogger,
) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		mirror:    mirror,
		source:    source,
		logger:    log,
	}
}

func (ps *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := events.Encode(event, ps.source)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		return err
	}

	if ps.mirror != nil {
		if err := ps.mirror.Publish(ctx, event); err != nil {
			ps.logger.Warn("EVENTS", "Failed to mirror event to NATS", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}
	return nil
}
