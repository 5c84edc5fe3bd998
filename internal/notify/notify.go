// Package notify publishes backend availability transitions.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"wakewatch/internal/config"
	"wakewatch/internal/logging"
	"wakewatch/internal/models"
)

// LogNotifier writes transitions to the structured log.
type LogNotifier struct{}

// Notify implements monitor.Notifier.
func (LogNotifier) Notify(_ context.Context, t models.Transition) error {
	state := "offline"
	if t.Online {
		state = "online"
	}
	logging.Info("backend is now "+state, logging.Fields{
		"transition":       t.ID,
		"wake_up_attempts": t.WakeUpAttempts,
		"error":            t.Error,
	})
	return nil
}

// AMQPNotifier publishes transitions as JSON to a topic exchange.
type AMQPNotifier struct {
	exchange   string
	routingKey string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPNotifier dials the broker and declares the exchange.
func NewAMQPNotifier(cfg config.Notify) (*AMQPNotifier, error) {
	if cfg.AMQPURL == "" {
		return nil, errors.New("amqp url is required")
	}
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &AMQPNotifier{
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		conn:       conn,
		channel:    ch,
	}, nil
}

// Notify implements monitor.Notifier.
func (n *AMQPNotifier) Notify(ctx context.Context, t models.Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := newPublishing(t)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channel == nil {
		return errors.New("amqp notifier is closed")
	}
	if err := n.channel.Publish(n.exchange, n.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish transition %s: %w", t.ID, err)
	}
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channel == nil {
		return nil
	}
	chErr := n.channel.Close()
	connErr := n.conn.Close()
	n.channel = nil
	n.conn = nil
	if chErr != nil {
		return chErr
	}
	return connErr
}

func newPublishing(t models.Transition) (amqp.Publishing, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode transition: %w", err)
	}
	ts := t.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    t.ID,
		Timestamp:    ts,
		Type:         "backend.availability.transition",
		Body:         body,
	}, nil
}
