// Package service publishes domain events to RabbitMQ. Publishing is best
// effort: errors are logged and returned so callers can ignore them without
// interrupting the request.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/classroom-seating/internal/queue"
)

var logger = log.New("rabbitmq")

// Publisher sends arrangement events.
type Publisher interface {
	PublishArrangementCompleted(ctx context.Context, ev q.ArrangementCompletedEvent) error
}

// AMQPPublisher dials the broker per publish. Arrangements are rare enough
// that a pooled connection is not worth its reconnect handling.
type AMQPPublisher struct {
	URL string
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url}
}

// PublishArrangementCompleted sends ev to the arrangement queue as a
// persistent JSON message.
func (p *AMQPPublisher) PublishArrangementCompleted(ctx context.Context, ev q.ArrangementCompletedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		logger.Warnf("dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Warnf("channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// idempotent; durable so events survive broker restarts
	if _, err := ch.QueueDeclare(
		q.ArrangementQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	); err != nil {
		logger.Warnf("queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		logger.Warnf("marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.ArrangementQueue, false, false, pub); err != nil {
		logger.Warnf("publish failed: %v", err)
		return err
	}
	return nil
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishArrangementCompleted(context.Context, q.ArrangementCompletedEvent) error {
	return nil
}
