// Package queue consumes analysis requests from RabbitMQ and publishes
// their results and progress.
package queue

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/config"
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// TopicExchange carries progress events, routed by "analysis.<id>".
const TopicExchange = "pubsub_exchange"

// Channel is the part of *amqp091.Channel used for declaring and
// publishing.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func Init(cfg config.QueueConfig) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares the progress exchange and, for every name, a
// durable work queue with its dead-letter queue (name_dlq) and a retry
// queue (name_retry) that returns messages to the work queue after
// retryDelay.
func SetupQueues(ch Channel, queueNames []string, retryDelay time.Duration) error {
	err := ch.ExchangeDeclare(
		TopicExchange, // name
		"topic",       // type
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("ExchangeDeclare failed: %w", err)
	}

	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("QueueDeclare %s failed: %w", name, err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("QueueDeclare %s failed: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryDelay.Milliseconds()),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("QueueDeclare %s failed: %w", retryName, err)
		}
		logger.Debug("[Queue] Declared queue", "queue", name, "retry_delay", retryDelay)
	}

	return nil
}

func PublishFIFO(ch Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		publishing,
	)
}

// PublishTopic publishes a transient event on TopicExchange. Events with
// no bound queue are dropped.
func PublishTopic(ch Channel, topic string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Transient,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		TopicExchange,
		topic,
		false,
		false,
		publishing,
	)
}
