// Package messaging publishes domain events to a message broker.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Handler processes one delivered message.
type Handler func(ctx context.Context, msg *Message) error

// Broker defines the interface for message brokers
type Broker interface {
	// Name identifies the broker in logs and metrics.
	Name() string
	Publish(ctx context.Context, msg *Message) error
	// Subscribe delivers messages of topic to handler until ctx is done.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// Message is the envelope published for every outbox event. Topic is the
// event type.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Topic      string          `json:"topic"`
	ClinicID   uuid.UUID       `json:"clinic_id"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
