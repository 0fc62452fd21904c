package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Domenick1991/aircheckin/internal/logging"
	"github.com/Domenick1991/aircheckin/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key string
	msg amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	deliveries chan amqp.Delivery
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, published{key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Qos(int, int, bool) error { return nil }
func (f *fakeChannel) Close() error              { return nil }

func TestNotifier_PublishesToQueues(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{ch: ch}
	require.NoError(t, c.DeclareQueues("n", "e"))
	assert.Equal(t, []string{"n", "e"}, ch.declared)

	n := NewNotifier(c, "n", "e")
	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, notify.NotificationRequest{ID: "id-1", Title: "Checked in"}))
	require.NoError(t, n.SendBoardingPassEmail(ctx, notify.BoardingPassEmailRequest{ID: "id-2", Gate: "B12"}))

	require.Len(t, ch.published, 2)
	assert.Equal(t, "n", ch.published[0].key)
	assert.Equal(t, "id-1", ch.published[0].msg.MessageId)
	assert.Equal(t, amqp.Persistent, ch.published[0].msg.DeliveryMode)
	assert.Equal(t, "e", ch.published[1].key)

	var req notify.BoardingPassEmailRequest
	require.NoError(t, json.Unmarshal(ch.published[1].msg.Body, &req))
	assert.Equal(t, "B12", req.Gate)
}

func TestClient_ConsumeStopsWhenClosed(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 2)}
	ch.deliveries <- amqp.Delivery{Body: []byte(`{"id":"1"}`)}
	close(ch.deliveries)
	c := &Client{ch: ch}

	var got [][]byte
	err := c.Consume(context.Background(), "n", logging.Discard(), func(_ context.Context, body []byte) error {
		got = append(got, body)
		return nil
	})
	assert.EqualError(t, err, "deliveries channel closed")
	assert.Len(t, got, 1)
}

func TestClient_ConsumeStopsOnContext(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	c := &Client{ch: ch}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Consume(ctx, "n", logging.Discard(), func(context.Context, []byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
