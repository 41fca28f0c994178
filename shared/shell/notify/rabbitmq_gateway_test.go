package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/notify"
)

func Test_NewRabbitMQGateway_DeclaresDurableQueue(t *testing.T) {
	// arrange
	channel := &channelSpy{}

	// act
	_, err := notify.NewRabbitMQGateway(channel, "lending.notifications")

	// assert
	require.NoError(t, err)
	require.Len(t, channel.declared, 1)
	assert.Equal(t, declaredQueue{name: "lending.notifications", durable: true}, channel.declared[0])
}

func Test_NewRabbitMQGateway_Rejects(t *testing.T) {
	t.Run("empty queue name", func(t *testing.T) {
		_, err := notify.NewRabbitMQGateway(&channelSpy{}, "")

		assert.ErrorIs(t, err, notify.ErrEmptyQueueName)
	})

	t.Run("queue declare failure", func(t *testing.T) {
		channel := &channelSpy{declareErr: amqp.ErrClosed}

		_, err := notify.NewRabbitMQGateway(channel, "lending.notifications")

		assert.ErrorIs(t, err, notify.ErrPublishFailed)
		assert.ErrorIs(t, err, amqp.ErrClosed)
	})
}

func Test_RabbitMQGateway_Notify_PublishesPersistentJSON(t *testing.T) {
	// arrange
	channel := &channelSpy{}
	sentAt := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	gateway, err := notify.NewRabbitMQGateway(channel, "lending.notifications",
		notify.WithClock(func() time.Time { return sentAt }))
	require.NoError(t, err)

	userID := uuid.New()

	// act
	err = gateway.Notify(context.Background(), userID, "Your reserved book is available for pickup")

	// assert
	require.NoError(t, err)
	require.Len(t, channel.published, 1)

	published := channel.published[0]
	assert.Empty(t, published.exchange)
	assert.Equal(t, "lending.notifications", published.key)
	assert.Equal(t, "application/json", published.msg.ContentType)
	assert.Equal(t, amqp.Persistent, published.msg.DeliveryMode)
	assert.Equal(t, sentAt, published.msg.Timestamp)
	assert.NotEmpty(t, published.msg.MessageId)

	var body notify.Message
	require.NoError(t, jsoniter.Unmarshal(published.msg.Body, &body))
	assert.Equal(t, published.msg.MessageId, body.NotificationID)
	assert.Equal(t, userID.String(), body.UserID)
	assert.Equal(t, "Your reserved book is available for pickup", body.Text)
	assert.Equal(t, "2025-03-03T09:00:00Z", body.CreatedAt)
}

func Test_RabbitMQGateway_Notify_ReportsPublishFailure(t *testing.T) {
	// arrange
	brokerErr := errors.New("channel/connection is not open")
	channel := &channelSpy{publishErr: brokerErr}
	gateway, err := notify.NewRabbitMQGateway(channel, "lending.notifications")
	require.NoError(t, err)

	// act
	err = gateway.Notify(context.Background(), uuid.New(), "hello")

	// assert
	assert.ErrorIs(t, err, notify.ErrPublishFailed)
	assert.ErrorIs(t, err, brokerErr)
}

type declaredQueue struct {
	name    string
	durable bool
}

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type channelSpy struct {
	declareErr error
	publishErr error
	declared   []declaredQueue
	published  []publishedMessage
}

func (c *channelSpy) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.declared = append(c.declared, declaredQueue{name: name, durable: durable})

	return amqp.Queue{Name: name}, c.declareErr
}

func (c *channelSpy) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}

	c.published = append(c.published, publishedMessage{exchange: exchange, key: key, msg: msg})

	return nil
}
