package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/aircheckin/internal/notify"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	brokers []string
	writer  messageWriter
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &Producer{brokers: brokers, writer: writer}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and lists partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ReadPartitions(); err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	return nil
}

// Notifier publishes notification requests to their topics, keyed by
// booking so one booking's messages stay ordered.
type Notifier struct {
	producer           *Producer
	notificationsTopic string
	boardingPassTopic  string
}

func NewNotifier(p *Producer, notificationsTopic, boardingPassTopic string) *Notifier {
	return &Notifier{producer: p, notificationsTopic: notificationsTopic, boardingPassTopic: boardingPassTopic}
}

// NotifierOrFallback returns a kafka Notifier when the brokers answer, and
// fallback otherwise.
func NotifierOrFallback(ctx context.Context, p *Producer, notificationsTopic, boardingPassTopic string, fallback notify.Notifier, log *slog.Logger) notify.Notifier {
	if err := p.CheckConnection(ctx); err != nil {
		log.WarnContext(ctx, "kafka unreachable, notifications fall back", "brokers", p.brokers, "error", err)
		return fallback
	}
	return NewNotifier(p, notificationsTopic, boardingPassTopic)
}

func (n *Notifier) Notify(ctx context.Context, req notify.NotificationRequest) error {
	return n.producer.Publish(ctx, n.notificationsTopic, req.RelatedData.BookingID, req)
}

func (n *Notifier) SendBoardingPassEmail(ctx context.Context, req notify.BoardingPassEmailRequest) error {
	return n.producer.Publish(ctx, n.boardingPassTopic, req.BookingReference, req)
}

var _ notify.Notifier = (*Notifier)(nil)
