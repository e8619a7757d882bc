package util

import (
	"context"
	"sync"

	"vidtube/internal/config"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQClient struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQClient(cfg *config.Config) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to open RabbitMQ channel")
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: channel,
	}, nil
}

// GetChannel returns the underlying channel (for declaring topology and consuming)
func (r *RabbitMQClient) GetChannel() *amqp.Channel {
	return r.channel
}

// DeclareQueue declares a durable direct exchange and a durable queue bound to it.
func (r *RabbitMQClient) DeclareQueue(exchange, queue, routingKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "declare exchange %s", exchange)
	}
	if _, err := r.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "declare queue %s", queue)
	}
	if err := r.channel.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return errors.Wrapf(err, "bind queue %s", queue)
	}
	return nil
}

// Publish sends a persistent JSON message.
func (r *RabbitMQClient) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Close closes the channel and connection
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
