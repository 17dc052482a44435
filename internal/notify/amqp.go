package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange notifications are published to.
const DefaultExchange = "shipment.notifications"

// RoutingKey is used for every WhatsApp notification message.
const RoutingKey = "notify.whatsapp"

// Publisher is the subset of *amqp.Channel used for hand-off.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPChannel publishes notifications to RabbitMQ for a sender worker to
// deliver. The deep link is included so consumers can fall back to it.
type AMQPChannel struct {
	Pub      Publisher
	Exchange string
	Now      func() time.Time
}

// outboundMessage is the published payload.
type outboundMessage struct {
	Phone   string    `json:"phone"`
	Message string    `json:"message"`
	Link    string    `json:"link"`
	SentAt  time.Time `json:"sent_at"`
}

// Name implements Channel.
func (*AMQPChannel) Name() string { return ChannelAMQP }

// Send implements Channel.
func (a *AMQPChannel) Send(ctx context.Context, phone, message string) (Handoff, error) {
	link, err := WhatsAppLink(phone, message)
	if err != nil {
		return Handoff{}, err
	}
	digits, _ := NormalizePhone(phone)
	at := nowOr(a.Now)

	body, err := json.Marshal(outboundMessage{Phone: digits, Message: message, Link: link, SentAt: at})
	if err != nil {
		return Handoff{}, fmt.Errorf("%w: %v", ErrHandoff, err)
	}

	exchange := a.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}
	err = a.Pub.PublishWithContext(ctx, exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		Body:         body,
	})
	if err != nil {
		return Handoff{}, fmt.Errorf("%w: %v", ErrHandoff, err)
	}
	return Handoff{Channel: ChannelAMQP, Phone: digits, Link: link, At: at}, nil
}

// DialAMQP connects to url, declares the durable topic exchange, and returns
// a channel ready for Send. The returned func releases the channel and the connection.
func DialAMQP(url, exchange string) (*AMQPChannel, func() error, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	achan, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	err = achan.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = achan.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	closeFn := func() error {
		_ = achan.Close()
		return conn.Close()
	}
	return &AMQPChannel{Pub: achan, Exchange: exchange}, closeFn, nil
}
