package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// AMQPNotifier publishes notification envelopes to a topic exchange,
// routed by recipient user id. A downstream push service owns the
// actual device delivery.
type AMQPNotifier struct {
	conn     *amqp091.Connection
	exchange string
	log      *log.Logger
}

type envelope struct {
	Id     string  `json:"id"`
	UserId string  `json:"user_id"`
	Kind   string  `json:"kind"`
	Data   Payload `json:"data"`
}

func NewAMQPNotifier(url, exchange string, logger *log.Logger) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &AMQPNotifier{
		conn:     conn,
		exchange: exchange,
		log:      logger,
	}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, userId string, payload Payload) error {
	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(envelope{
		Id:     uuid.NewString(),
		UserId: userId,
		Kind:   "chat.message",
		Data:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		n.exchange,
		"notifications.user."+userId,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (n *AMQPNotifier) Close() error {
	return n.conn.Close()
}
