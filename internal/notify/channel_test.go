package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkChannel_Send(t *testing.T) {
	ch := LinkChannel{Now: func() time.Time { return fixedNow }}
	h, err := ch.Send(context.Background(), "+54 9 11 1234-5678", "hola")
	require.NoError(t, err)
	assert.Equal(t, ChannelLink, h.Channel)
	assert.Equal(t, "5491112345678", h.Phone)
	assert.Equal(t, "https://wa.me/5491112345678?text=hola", h.Link)
	assert.Equal(t, fixedNow, h.At)
}

func TestLinkChannel_SendErrors(t *testing.T) {
	ch := LinkChannel{}
	_, err := ch.Send(context.Background(), "123", "hola")
	assert.ErrorIs(t, err, ErrInvalidPhone)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ch.Send(ctx, "+54 9 11 1234-5678", "hola")
	assert.ErrorIs(t, err, context.Canceled)
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	calls         int
	err           error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.calls++
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestAMQPChannel_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	ch := &AMQPChannel{Pub: pub, Now: func() time.Time { return fixedNow }}

	h, err := ch.Send(context.Background(), "+54 9 11 1234-5678", "hola")
	require.NoError(t, err)
	assert.Equal(t, ChannelAMQP, h.Channel)
	assert.Equal(t, DefaultExchange, pub.exchange)
	assert.Equal(t, RoutingKey, pub.key)
	assert.Equal(t, "application/json", pub.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), pub.msg.DeliveryMode)

	var body outboundMessage
	require.NoError(t, json.Unmarshal(pub.msg.Body, &body))
	assert.Equal(t, "5491112345678", body.Phone)
	assert.Equal(t, "hola", body.Message)
	assert.Equal(t, h.Link, body.Link)
}

func TestAMQPChannel_Failures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	ch := &AMQPChannel{Pub: pub, Exchange: "x"}

	_, err := ch.Send(context.Background(), "+54 9 11 1234-5678", "hola")
	assert.ErrorIs(t, err, ErrHandoff)

	pub.calls = 0
	_, err = ch.Send(context.Background(), "12", "hola")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Zero(t, pub.calls, "invalid phone must not publish")
}
