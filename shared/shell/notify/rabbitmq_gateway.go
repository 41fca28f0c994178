// Package notify publishes user notifications to RabbitMQ. Delivery to the user (mail, push)
// is done by consumers of the queue and is not part of the lending engine.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

const contentTypeJSON = "application/json"

var (
	// ErrEmptyQueueName is returned when the gateway is built without a queue name.
	ErrEmptyQueueName = errors.New("notification queue name must not be empty")

	// ErrPublishFailed wraps broker errors while publishing a notification.
	ErrPublishFailed = errors.New("publishing notification failed")
)

// Channel is the part of *amqp.Channel the gateway needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message is the JSON body of a published notification.
type Message struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Text           string `json:"text"`
	CreatedAt      string `json:"created_at"`
}

// RabbitMQGateway implements lending.NotificationGateway by publishing persistent JSON messages
// to a durable queue on the default exchange.
type RabbitMQGateway struct {
	channel Channel
	queue   string
	now     func() time.Time
	newID   func() (uuid.UUID, error)
}

// Option configures a RabbitMQGateway.
type Option func(*RabbitMQGateway)

// WithClock overrides the clock used for CreatedAt and the AMQP timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *RabbitMQGateway) {
		g.now = now
	}
}

// NewRabbitMQGateway declares the durable queue on channel and returns the gateway.
func NewRabbitMQGateway(channel Channel, queue string, opts ...Option) (*RabbitMQGateway, error) {
	if queue == "" {
		return nil, ErrEmptyQueueName
	}

	g := &RabbitMQGateway{
		channel: channel,
		queue:   queue,
		now:     time.Now,
		newID:   uuid.NewV7,
	}

	for _, opt := range opts {
		opt(g)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, errors.Join(ErrPublishFailed, err)
	}

	return g, nil
}

// Notify publishes message for userID. Errors are returned so the caller can report them;
// the lending engine treats them as best-effort side effect failures.
func (g *RabbitMQGateway) Notify(ctx context.Context, userID uuid.UUID, message string) error {
	id, err := g.newID()
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	now := g.now().UTC()

	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(Message{
		NotificationID: id.String(),
		UserID:         userID.String(),
		Text:           message,
		CreatedAt:      now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	publishing := amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    id.String(),
		Timestamp:    now,
		Body:         body,
	}

	if err = g.channel.PublishWithContext(ctx, "", g.queue, false, false, publishing); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}

	return nil
}

var _ lending.NotificationGateway = (*RabbitMQGateway)(nil)
