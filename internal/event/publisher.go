package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	PublishLessonEvent(ctx context.Context, event *LessonEvent) error
	PublishHomeworkEvent(ctx context.Context, event *HomeworkEvent) error
	PublishStudentEvent(ctx context.Context, event *StudentEvent) error
	PublishImportEvent(ctx context.Context, event *ImportEvent) error
	PublishMaintenanceEvent(ctx context.Context, event *MaintenanceEvent) error
	Close() error
}

type EventPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
}

func NewEventPublisher(rabbitURI, exchangeName string) (*EventPublisher, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{
			enabled: false,
		}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		enabled:      true,
	}, nil
}

func (p *EventPublisher) publishEvent(ctx context.Context, routingKey EventType, event any) error {
	if !p.enabled {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName,     // exchange
		string(routingKey), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("Published event: %s", routingKey)
	return nil
}

func (p *EventPublisher) PublishLessonEvent(ctx context.Context, event *LessonEvent) error {
	return p.publishEvent(ctx, event.Type, event)
}

func (p *EventPublisher) PublishHomeworkEvent(ctx context.Context, event *HomeworkEvent) error {
	return p.publishEvent(ctx, event.Type, event)
}

func (p *EventPublisher) PublishStudentEvent(ctx context.Context, event *StudentEvent) error {
	return p.publishEvent(ctx, event.Type, event)
}

func (p *EventPublisher) PublishImportEvent(ctx context.Context, event *ImportEvent) error {
	return p.publishEvent(ctx, event.Type, event)
}

func (p *EventPublisher) PublishMaintenanceEvent(ctx context.Context, event *MaintenanceEvent) error {
	return p.publishEvent(ctx, event.Type, event)
}

// Close releases resources
func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if err := p.channel.Close(); err != nil {
		log.Printf("Error closing channel: %v", err)
	}
	return p.conn.Close()
}
