package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-bot/internal/logger"
)

// Message is one operator notification.
type Message struct {
	EventID   string    `json:"event_id"`
	ChatID    int64     `json:"chat_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink delivers a message once. Errors are reported, never retried.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher is the subset of the Kafka producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// KafkaSink publishes messages as JSON keyed by event id. A relay on the
// other side of the topic delivers them to the operator chat.
type KafkaSink struct {
	Publisher Publisher
}

func NewKafkaSink(p Publisher) *KafkaSink {
	return &KafkaSink{Publisher: p}
}

func (s *KafkaSink) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return s.Publisher.Publish(ctx, msg.EventID, payload)
}

// LogSink writes messages to the application log. Used when Kafka is off.
type LogSink struct {
	Logger *logger.Logger
}

func (s *LogSink) Send(_ context.Context, msg Message) error {
	s.Logger.Info("NOTIFY", fmt.Sprintf("to %d [%s]: %s", msg.ChatID, msg.EventID, msg.Text))
	return nil
}
