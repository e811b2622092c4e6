package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/franzego/uninotify/internal/config"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys published on the events exchange.
const (
	DraftCreated          = "draft.created"
	DraftUpdated          = "draft.updated"
	DraftDeleted          = "draft.deleted"
	TemplateCreated       = "template.created"
	TemplateUpdated       = "template.updated"
	TemplateDeleted       = "template.deleted"
	NotificationGenerated = "notification.generated"
)

type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

func NewEvent(eventType, correlationID string, data map[string]interface{}) Event {
	return Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		CorrelationID: correlationID,
		Data:          data,
		Timestamp:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	IsConnected() bool
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) IsConnected() bool                    { return true }

type RabbitMqClient struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
}

func NewRabbitMqService(cfg config.RabbitMQConfig) (*RabbitMqClient, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	r := &RabbitMqClient{conn: conn, channel: channel, config: cfg}
	if err := r.SetUpExchange(); err != nil {
		r.CloseConnection()
		return nil, err
	}
	return r, nil
}

func (r *RabbitMqClient) CloseConnection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel.Close()
	r.conn.Close()
}

func (r *RabbitMqClient) IsConnected() bool {
	return r.conn != nil && !r.conn.IsClosed()
}

// SetUpExchange declares the durable topic exchange events are published on.
func (r *RabbitMqClient) SetUpExchange() error {
	if err := r.channel.ExchangeDeclare(
		r.config.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", r.config.Exchange, err)
	}
	return nil
}

func (r *RabbitMqClient) Publish(ctx context.Context, event Event) error {
	by, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	// amqp channels are not safe for concurrent publishing
	r.mu.Lock()
	defer r.mu.Unlock()
	err = r.channel.PublishWithContext(
		ctx,
		r.config.Exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          by,
			DeliveryMode:  amqp.Persistent,
			MessageId:     event.ID,
			CorrelationId: event.CorrelationID,
			Timestamp:     event.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}
