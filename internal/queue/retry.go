package queue

import (
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// RetryHeader counts how often a message went through the retry queue.
const RetryHeader = "x-retries"

// Retries returns the retry count recorded on msg.
func Retries(msg amqp091.Delivery) int {
	switch v := msg.Headers[RetryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	default:
		return 0
	}
}

// HandleProcessingError sends a failed message to queueName_retry, or to
// queueName_dlq once it was retried maxRetries times. The original
// delivery is acked after the copy is published and requeued otherwise.
func HandleProcessingError(ch Channel, msg amqp091.Delivery, queueName string, maxRetries int) {
	retries := Retries(msg)

	if retries >= maxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName, "retries", retries)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp091.Publishing{
				ContentType:  msg.ContentType,
				Body:         msg.Body,
				Headers:      msg.Headers,
				DeliveryMode: amqp091.Persistent,
			},
		)
		if pubErr != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			if err := msg.Nack(false, true); err != nil {
				logger.Error("[Queue] Failed to nack message", "err", err)
			}
			return
		}
		if err := msg.Ack(false); err != nil {
			logger.Error("[Queue] Failed to ack message", "err", err)
		}
		return
	}

	retryName := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[RetryHeader] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		if err := msg.Nack(false, true); err != nil {
			logger.Error("[Queue] Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}
