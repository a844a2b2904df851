package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"restaurant-floor/internal/config"
	"restaurant-floor/internal/logger"
)

// Topology names
const (
	FloorExchange    = "floor_events"
	FloorQueue       = "floor_events_queue"
	FloorBindingKey  = "floor.#"
	floorMessageTTL  = 300000 // 5 minutes
	maxConnectTrials = 5
)

// Connection wraps RabbitMQ connection with reconnection logic
type Connection struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *logger.Logger
	url     string
}

// New creates a new RabbitMQ connection and declares the floor topology
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		logger: log,
		url:    cfg.RabbitMQURL(),
	}

	if err := conn.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}

	return conn, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Connection) connect() error {
	var err error

	for i := 0; i < maxConnectTrials; i++ {
		if err = c.dial(); err == nil {
			return nil
		}

		if i < maxConnectTrials-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"startup", err, nil)
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxConnectTrials, err)
}

func (c *Connection) dial() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := setupTopology(channel); err != nil {
		c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", err, nil)
		channel.Close()
		conn.Close()
		return err
	}
	c.conn = conn
	c.channel = channel
	return nil
}

// setupTopology declares the floor events exchange and the subscriber queue
func setupTopology(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		FloorExchange, // name
		"topic",       // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", FloorExchange, err)
	}

	_, err = ch.QueueDeclare(
		FloorQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		amqp091.Table{
			"x-message-ttl": floorMessageTTL,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", FloorQueue, err)
	}

	if err := ch.QueueBind(FloorQueue, FloorBindingKey, FloorExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s with routing key %s: %w", FloorQueue, FloorBindingKey, err)
	}
	return nil
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsClosed checks if the connection is closed
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect attempts to reconnect to RabbitMQ
func (c *Connection) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
	return c.connect()
}
