// Package kafka publishes completion events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/ghmodels/pkg/eventstream"
	"github.com/papercomputeco/ghmodels/pkg/logger"
)

const defaultWriteTimeout = 5 * time.Second

var (
	// ErrNoBrokers is returned when no broker address is configured.
	ErrNoBrokers = errors.New("kafka: no brokers configured")

	// ErrNoTopic is returned when the topic is empty.
	ErrNoTopic = errors.New("kafka: no topic configured")
)

// Config configures a Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses (host:port).
	Brokers []string

	// Topic receives one message per completion event.
	Topic string

	// WriteTimeout bounds a single publish. Defaults to 5s.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes JSON encoded completion events keyed by request id.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	topic   string
	logger  *slog.Logger
}

// NewPublisher creates a publisher backed by a kafka-go Writer. No
// connection is made until the first publish.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if c.Topic == "" {
		return nil, ErrNoTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}

	return newPublisher(w, c), nil
}

func newPublisher(w messageWriter, c Config) *Publisher {
	timeout := c.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Publisher{
		writer:  w,
		timeout: timeout,
		topic:   c.Topic,
		logger:  log,
	}
}

// PublishCompletion encodes event and writes it synchronously.
func (p *Publisher) PublishCompletion(ctx context.Context, event *eventstream.CompletionEvent) error {
	if event == nil {
		return eventstream.ErrNilCompletionEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding completion event: %w", err)
	}

	key := event.Request.RequestID
	if key == "" {
		key = event.EventID
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(event.SchemaVersion))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to topic %s: %w", p.topic, err)
	}

	p.logger.Debug("published completion event",
		"topic", p.topic,
		"event_id", event.EventID,
		"model", event.Request.Model,
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
