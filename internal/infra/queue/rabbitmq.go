package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"feed-engine/internal/domain"
)

// RabbitInteractionQueue передаёт события взаимодействий через AMQP.
type RabbitInteractionQueue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

// NewRabbitInteractionQueue подключается к RabbitMQ и объявляет очередь.
func NewRabbitInteractionQueue(amqpURL, queueName string) (*RabbitInteractionQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queueName == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitInteractionQueue{conn: conn, channel: ch, queue: queueName}, nil
}

// Publish отправляет событие в очередь.
func (q *RabbitInteractionQueue) Publish(ctx context.Context, event domain.InteractionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Pop блокирующе читает событие из очереди.
func (q *RabbitInteractionQueue) Pop(ctx context.Context) (domain.InteractionEvent, error) {
	if q.deliveries == nil {
		deliveries, err := q.channel.ConsumeWithContext(ctx, q.queue, "", true, false, false, false, nil)
		if err != nil {
			return domain.InteractionEvent{}, fmt.Errorf("consume queue: %w", err)
		}
		q.deliveries = deliveries
	}
	select {
	case <-ctx.Done():
		return domain.InteractionEvent{}, ctx.Err()
	case msg, ok := <-q.deliveries:
		if !ok {
			return domain.InteractionEvent{}, errors.New("amqp queue: канал доставки закрыт")
		}
		var event domain.InteractionEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return domain.InteractionEvent{}, fmt.Errorf("decode event: %w", err)
		}
		return event, nil
	}
}

// Close освобождает соединение.
func (q *RabbitInteractionQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
