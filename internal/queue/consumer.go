package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer consumes delivery jobs from the RabbitMQ queue
type Consumer struct {
	conn      *Connection
	queueName string
	handler   DeliveryHandler
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// DeliveryHandler processes one delivery job. Returning an error requeues
// the job; permanent failures must be absorbed by the handler itself (it
// records them on the message) so they are not redelivered forever.
type DeliveryHandler func(job *DeliveryJob) error

// NewConsumer creates a new consumer instance
func NewConsumer(conn *Connection, queueName string, handler DeliveryHandler) (*Consumer, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	// Declare queue (same settings as publisher: durable, non-auto-delete)
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

	return &Consumer{
		conn:      conn,
		queueName: queueName,
		handler:   handler,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}, nil
}

// Start starts consuming delivery jobs from the queue
func (c *Consumer) Start() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	// One unacked job at a time; a batch send can take a while
	err = ch.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual acknowledgement)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		defer close(c.doneChan)

		for {
			select {
			case <-c.stopChan:
				log.Println("Consumer stopping...")
				return
			case d, ok := <-msgs:
				if !ok {
					log.Println("Delivery channel closed")
					return
				}

				if err := c.processDelivery(d); err != nil {
					log.Printf("Error processing delivery job: %v", err)
					// Requeue for retry
					d.Nack(false, true)
				} else {
					d.Ack(false)
				}
			}
		}
	}()

	log.Printf("Consumer started, listening on queue: %s", c.queueName)
	return nil
}

// Stop stops consuming messages gracefully
func (c *Consumer) Stop() error {
	close(c.stopChan)
	<-c.doneChan

	log.Println("Consumer stopped successfully")
	return nil
}

// processDelivery parses and handles a single delivery
func (c *Consumer) processDelivery(d amqp.Delivery) error {
	var job DeliveryJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		return fmt.Errorf("failed to unmarshal delivery job: %w", err)
	}

	if err := c.handler(&job); err != nil {
		return fmt.Errorf("handler failed: %w", err)
	}

	return nil
}
