package service

import (
	"context"
	"encoding/json"
	"fmt"

	"startup-hunter-be/internal/dto"
	"startup-hunter-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const PipelineEventsTopic = "pipeline_events"

// EventBusPublisher puts pipeline events on the in-process watermill bus.
type EventBusPublisher struct {
	publisher message.Publisher
	topic     string
}

var _ events.Publisher = (*EventBusPublisher)(nil)

func NewEventBusPublisher(publisher message.Publisher, topic string) *EventBusPublisher {
	return &EventBusPublisher{publisher: publisher, topic: topic}
}

func (p *EventBusPublisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(dto.PipelineEventMessage{
		Type:       event.EventType(),
		SessionId:  events.SessionID(event),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType())
	return p.publisher.Publish(p.topic, msg)
}
