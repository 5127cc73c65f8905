package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends domain events to a topic exchange.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
	Close() error
}

type RabbitMQ struct {
	url      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitMQ(url, exchange string, log *zap.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		url:      url,
		exchange: exchange,
		log:      log.With(zap.String("component", "rabbitmq")),
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(r.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", r.exchange, err)
	}

	r.conn = conn
	r.ch = ch
	return nil
}

func (r *RabbitMQ) isAlive() bool {
	return r.conn != nil && !r.conn.IsClosed() && r.ch != nil && !r.ch.IsClosed()
}

// PublishJSON marshals v and publishes it persistently. A dropped connection
// is re-established once before giving up.
func (r *RabbitMQ) PublishJSON(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", routingKey, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAlive() {
		r.log.Warn("RabbitMQ connection lost, reconnecting")
		if err := r.connect(); err != nil {
			return err
		}
	}

	err = r.ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

// Noop drops every event. Used when no broker is configured.
type Noop struct {
	log *zap.Logger
}

func NewNoop(log *zap.Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) PublishJSON(_ context.Context, routingKey string, _ any) error {
	n.log.Debug("Event dropped, no broker configured", zap.String("routing_key", routingKey))
	return nil
}

func (n *Noop) Close() error { return nil }
