// Package service publishes domain events to RabbitMQ.  Errors are logged
// and returned so callers can ignore failures without interrupting the
// request flow.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/conference-timetable/internal/config"
	q "github.com/iliyamo/conference-timetable/internal/queue"
)

// QueuePublisher dials the broker for every message.
type QueuePublisher struct {
	url   string
	queue string
}

// NewQueuePublisher returns a publisher for cfg.  It does not connect.
func NewQueuePublisher(cfg config.QueueConfig) *QueuePublisher {
	name := cfg.Queue
	if name == "" {
		name = q.TimetableChangedQueue
	}
	return &QueuePublisher{url: cfg.URL, queue: name}
}

// PublishTimetableChanged publishes event as a persistent JSON message to
// the durable timetable queue.
func (p *QueuePublisher) PublishTimetableChanged(ctx context.Context, event q.TimetableChangedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
