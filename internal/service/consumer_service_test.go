package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ai-platform-be/internal/constant"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "rag_events"

func generation(t *testing.T, store cache.Store, collection string) int64 {
	t.Helper()
	var gen int64
	_, err := store.Get(context.Background(), fmt.Sprintf(constant.CollectionGenerationKey, collection), &gen)
	require.NoError(t, err)
	return gen
}

type mirrorRecorder struct {
	recordingPublisher
	err error
}

func (m *mirrorRecorder) Publish(ctx context.Context, event events.Event) error {
	if m.err != nil {
		return m.err
	}
	return m.recordingPublisher.Publish(ctx, event)
}

func TestConsumerService_InvalidatesThroughBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	ragCache := cache.NewMemoryStore("rag", time.Minute)
	consumer := NewConsumerService(bus, testTopic, ragCache, "node-a", nopLogger{})
	require.NoError(t, consumer.Consume(ctx))

	mirror := &mirrorRecorder{}
	publisher := NewPublisherService(testTopic, bus, mirror, "node-a", nopLogger{})

	require.NoError(t, publisher.Publish(ctx, events.New(events.DocumentIngested, map[string]interface{}{
		events.KeyCollectionName: "docs",
	})))
	require.NoError(t, publisher.Publish(ctx, events.New(events.CollectionDeleted, map[string]interface{}{
		events.KeyCollectionName: "docs",
	})))

	assert.Eventually(t, func() bool {
		return generation(t, ragCache, "docs") == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{events.DocumentIngested, events.CollectionDeleted}, mirror.Types())
}

func TestPublisherService_MirrorFailureIsNotFatal(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	mirror := &mirrorRecorder{err: fmt.Errorf("nats down")}
	publisher := NewPublisherService(testTopic, bus, mirror, "node-a", nopLogger{})

	err := publisher.Publish(context.Background(), events.New(events.DocumentDeleted, map[string]interface{}{
		events.KeyCollectionName: "docs",
	}))
	assert.NoError(t, err)
}

func TestConsumerService_HandleEvent(t *testing.T) {
	ctx := context.Background()
	ragCache := cache.NewMemoryStore("rag", time.Minute)
	consumer := NewConsumerService(nil, testTopic, ragCache, "node-a", nopLogger{})

	for _, eventType := range []string{events.DocumentIngested, events.DocumentFailed, events.DocumentDeleted, events.CollectionDeleted} {
		require.NoError(t, consumer.HandleEvent(ctx, events.New(eventType, map[string]interface{}{
			events.KeyCollectionName: "docs",
		})))
	}
	assert.Equal(t, int64(4), generation(t, ragCache, "docs"))

	require.NoError(t, consumer.HandleEvent(ctx, events.New("user.created", map[string]interface{}{
		events.KeyCollectionName: "docs",
	})))
	require.NoError(t, consumer.HandleEvent(ctx, events.New(events.DocumentIngested, map[string]interface{}{})))
	assert.Equal(t, int64(4), generation(t, ragCache, "docs"))
}

func TestConsumerService_HandleRemoteSkipsOwnEvents(t *testing.T) {
	ctx := context.Background()
	ragCache := cache.NewMemoryStore("rag", time.Minute)
	consumer := NewConsumerService(nil, testTopic, ragCache, "node-a", nopLogger{})

	own := events.Envelope{Type: events.DocumentIngested, Source: "node-a", Data: map[string]interface{}{
		events.KeyCollectionName: "docs",
	}}
	require.NoError(t, consumer.HandleRemote(ctx, own))
	assert.Equal(t, int64(0), generation(t, ragCache, "docs"))

	remote := own
	remote.Source = "node-b"
	require.NoError(t, consumer.HandleRemote(ctx, remote))
	assert.Equal(t, int64(1), generation(t, ragCache, "docs"))
}

func TestConsumerService_AcksUndecodableMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, watermill.NopLogger{})
	defer bus.Close()

	ragCache := cache.NewMemoryStore("rag", time.Minute)
	consumer := NewConsumerService(bus, testTopic, ragCache, "node-a", nopLogger{})
	require.NoError(t, consumer.Consume(ctx))

	done := make(chan error, 1)
	go func() {
		done <- bus.Publish(testTopic, message.NewMessage(watermill.NewUUID(), []byte("not json")))
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("undecodable message was not acked")
	}
}
