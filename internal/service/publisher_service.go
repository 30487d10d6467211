package service

import (
	"context"
	"encoding/json"

	"github.com/wickeddevsupport/bcgpt-sub008/internal/dto"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (p *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(p.topicName, msg)
}

// enginePublisher adapts the publisher service to the engine's hook so
// every invocation emits a QueryExecutedMessage on the bus.
type enginePublisher struct {
	publisher IPublisherService
}

func NewEnginePublisher(publisher IPublisherService) engine.Publisher {
	return &enginePublisher{publisher: publisher}
}

func (e *enginePublisher) QueryExecuted(result *engine.QueryResult) {
	msg := dto.QueryExecutedMessage{
		InvocationID:    result.InvocationID,
		Pattern:         result.Pattern,
		ChainLength:     len(result.Chain),
		ResultCount:     len(result.Results),
		CallsMade:       result.Metrics.CallsMade,
		CacheHitRate:    result.Metrics.CacheHitRate,
		ExecutionTimeMs: result.Metrics.ExecutionTimeMs,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	// Usage accounting is auxiliary, a failed publish never fails the query.
	_ = e.publisher.Publish(context.Background(), payload)
}
