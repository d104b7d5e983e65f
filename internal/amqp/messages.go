package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/notify"
)

// EventMessage is the broker envelope around a budget notification.
type EventMessage struct {
	ID        string       `json:"id"`
	Event     notify.Event `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewEventMessage wraps an event with a fresh message id.
func NewEventMessage(e notify.Event) *EventMessage {
	return &EventMessage{
		ID:        uuid.NewString(),
		Event:     e,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes a message and rejects envelopes without an event type.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Event.Type == "" {
		return nil, fmt.Errorf("message %q has no event type", msg.ID)
	}
	return &msg, nil
}
