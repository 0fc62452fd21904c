// Package amqp is the RabbitMQ notification transport. Requests go to
// durable queues through the default exchange as persistent JSON messages.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Domenick1991/aircheckin/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp.Channel used here.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

type Client struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   channel
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	return &Client{conn: conn, ch: ch}, nil
}

// DeclareQueues declares each queue durable. Declaring is idempotent.
func (c *Client) DeclareQueues(names ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		if _, err := c.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}
	return nil
}

func (c *Client) Publish(ctx context.Context, queue, messageID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Consume delivers messages from queue to handler until ctx is done or the
// channel closes. Handled messages are acked; failures are rejected
// without requeue.
func (c *Client) Consume(ctx context.Context, queue string, log *slog.Logger, handler func(context.Context, []byte) error) error {
	c.mu.Lock()
	if err := c.ch.Qos(50, 0, false); err != nil {
		log.WarnContext(ctx, "rabbitmq qos failed", "error", err)
	}
	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handler(ctx, d.Body); err != nil {
				log.WarnContext(ctx, "rabbitmq message rejected", "queue", queue, "message_id", d.MessageId, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	var errs []error
	if c.ch != nil {
		errs = append(errs, c.ch.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}

type Notifier struct {
	client             *Client
	notificationsQueue string
	boardingPassQueue  string
}

func NewNotifier(c *Client, notificationsQueue, boardingPassQueue string) *Notifier {
	return &Notifier{client: c, notificationsQueue: notificationsQueue, boardingPassQueue: boardingPassQueue}
}

func (n *Notifier) Notify(ctx context.Context, req notify.NotificationRequest) error {
	return n.client.Publish(ctx, n.notificationsQueue, req.ID, req)
}

func (n *Notifier) SendBoardingPassEmail(ctx context.Context, req notify.BoardingPassEmailRequest) error {
	return n.client.Publish(ctx, n.boardingPassQueue, req.ID, req)
}

var _ notify.Notifier = (*Notifier)(nil)
