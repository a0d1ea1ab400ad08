// Package events publishes settlement notifications after they commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MatchSettled is emitted once per match, after its settlement transaction commits.
type MatchSettled struct {
	MatchID    string    `json:"matchId"`
	Resolution string    `json:"resolution"` // "payout" | "refund"
	WinnerTeam string    `json:"winnerTeam,omitempty"`
	BetCount   int       `json:"betCount"`
	Winners    int       `json:"winners"`
	Pool       int64     `json:"pool"`
	Share      int64     `json:"share"`
	Remainder  int64     `json:"remainder"`
	Entries    int       `json:"entries"`
	SettledAt  time.Time `json:"settledAt"`
}

// Publisher delivers settlement events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishMatchSettled(ctx context.Context, e MatchSettled) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by match id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewWriter builds a writer for topic on the given brokers.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher wraps w.
func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// PublishMatchSettled implements Publisher.
func (p *KafkaPublisher) PublishMatchSettled(ctx context.Context, e MatchSettled) error {
	msg, err := Message(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish match settled %s: %w", e.MatchID, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Message encodes e as a Kafka message keyed by match id, so every event of
// one match lands on the same partition.
func Message(e MatchSettled) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode match settled: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.MatchID),
		Value: payload,
		Time:  e.SettledAt,
	}, nil
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

// PublishMatchSettled implements Publisher.
func (NopPublisher) PublishMatchSettled(context.Context, MatchSettled) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
