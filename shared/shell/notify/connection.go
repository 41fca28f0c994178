package notify

import (
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection owns the broker connection and channel behind a dialed gateway.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects to the broker at url and builds a gateway publishing to queue.
// Close the returned Connection on shutdown.
func Dial(url, queue string, opts ...Option) (*RabbitMQGateway, *Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	gateway, err := NewRabbitMQGateway(channel, queue, opts...)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()

		return nil, nil, err
	}

	return gateway, &Connection{conn: conn, channel: channel}, nil
}

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	return errors.Join(c.channel.Close(), c.conn.Close())
}
