package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/models"
)

// EventPublisher announces committed floor transitions
type EventPublisher interface {
	PublishFloorEvent(ctx context.Context, event *models.FloorEvent) error
}

// NopPublisher drops every event; used when RabbitMQ is disabled
type NopPublisher struct{}

func (NopPublisher) PublishFloorEvent(context.Context, *models.FloorEvent) error { return nil }

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishFloorEvent publishes event to the floor events exchange
func (p *Publisher) PublishFloorEvent(ctx context.Context, event *models.FloorEvent) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Headers: amqp091.Table{
			"x-source": "floor-service",
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	routingKey := event.RoutingKey()
	err = p.conn.Channel().PublishWithContext(
		ctx,
		FloorExchange, // exchange
		routingKey,    // routing key
		false,         // mandatory
		false,         // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", FloorExchange),
		logger.RequestID(ctx), map[string]interface{}{
			"routing_key":  routingKey,
			"message_size": len(body),
		})

	return nil
}
