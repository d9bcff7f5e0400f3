package service

import (
	"context"
	"encoding/json"

	"startup-hunter-be/internal/dto"
	"startup-hunter-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventDeliverer receives decoded pipeline events, typically the
// websocket hub.
type EventDeliverer interface {
	DeliverEvent(event dto.PipelineEventMessage)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	deliverer  EventDeliverer
	logger     logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, topicName string, deliverer EventDeliverer, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		deliverer:  deliverer,
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
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var event dto.PipelineEventMessage
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal pipeline event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.deliverer.DeliverEvent(event)
	msg.Ack()
}
