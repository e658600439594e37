package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes dispatch jobs to RabbitMQ
type Publisher struct {
	conn      *Connection
	queueName string
}

// DeliveryJob tells the worker which snapshot batch of which message to
// deliver. The batch carries everything else; the job stays small so a
// redelivered job is harmless.
type DeliveryJob struct {
	MessageID int    `json:"message_id"`
	BatchID   string `json:"batch_id"`
}

// NewPublisher creates a new publisher instance
func NewPublisher(conn *Connection, queueName string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	// Declare queue (durable, non-auto-delete, non-exclusive)
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{
		conn:      conn,
		queueName: queueName,
	}, nil
}

// PublishDispatch publishes a delivery job for a dispatched batch. A nil
// publisher reports an error instead of panicking, so callers that treat
// publishing as best-effort keep working without a broker.
func (p *Publisher) PublishDispatch(messageID int, batchID string) error {
	if p == nil {
		return errors.New("publisher is not configured")
	}

	job := DeliveryJob{
		MessageID: messageID,
		BatchID:   batchID,
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery job: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	// Persistent delivery so jobs survive a broker restart
	err = ch.Publish(
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish delivery job: %w", err)
	}

	return nil
}

// Close closes the publisher (no-op, connection managed externally)
func (p *Publisher) Close() error {
	// Connection is closed separately
	return nil
}
