package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"sentiment_aggregator/internal/logger"
	"sentiment_aggregator/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer публикует итоги запусков.
type Producer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewProducer(url, queue string) (*Producer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := declare(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, ch: ch, queue: queue}, nil
}

// PublishSummary кладёт итог запуска в очередь итогов в виде JSON.
func (p *Producer) PublishSummary(ctx context.Context, summary models.RunSummary) error {
	msg, err := summaryMessage(summary)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (имя очереди)
		false,   // mandatory
		false,   // immediate
		msg,
	)
}

func (p *Producer) Close() {
	p.ch.Close()
	p.conn.Close()
}

func summaryMessage(summary models.RunSummary) (amqp.Publishing, error) {
	body, err := json.Marshal(summary)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode run summary: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent, // Сохранять сообщения при перезапуске
		ContentType:  "application/json",
		MessageId:    summary.RunID,
		Timestamp:    summary.FinishedAt,
		Body:         body,
	}, nil
}

// Consumer читает запросы на запуск конвейера.
type Consumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	workers int
}

func NewConsumer(url, queue string, workers int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if workers <= 0 {
		workers = 1
	}

	return &Consumer{
		conn:    conn,
		ch:      ch,
		queue:   queue,
		workers: workers,
	}, nil
}

// Handler обрабатывает тело сообщения. ctx отменяется при остановке процесса.
type Handler func(ctx context.Context, body []byte) error

// Consume запускает workers обработчиков. Сообщение, на котором handler
// вернул ошибку, отклоняется без повторной доставки.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	if err := declare(c.ch, c.queue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := c.ch.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	logger.For("queue").Infof("Consuming queue: %s", c.queue)

	for i := 0; i < c.workers; i++ {
		go func() {
			for msg := range msgs {
				Dispatch(ctx, msg, handler)
			}
		}()
	}
	return nil
}

func (c *Consumer) Close() {
	c.ch.Close()
	c.conn.Close()
}

// Acknowledger — подмножество amqp.Delivery, нужное для подтверждения.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Dispatch передаёт тело сообщения в handler и подтверждает его по результату.
func Dispatch(ctx context.Context, msg amqp.Delivery, handler Handler) {
	dispatch(ctx, msg, msg.Body, handler)
}

func dispatch(ctx context.Context, ack Acknowledger, body []byte, handler Handler) {
	log := logger.For("queue")

	if err := handler(ctx, body); err != nil {
		log.Errorf("Task failed: %v", err)
		if err := ack.Nack(false, false); err != nil {
			log.Errorf("Nack failed: %v", err)
		}
		return
	}
	if err := ack.Ack(false); err != nil {
		log.Errorf("Ack failed: %v", err)
	}
}

// Явно объявляем очередь с durable=true
func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return err
}
