package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"todo_api/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher delivers task events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev TaskEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev TaskEvent) error { return nil }

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// RabbitPublisher publishes persistent JSON messages to a durable queue on the
// default exchange. One channel is shared and reopened when it closes.
type RabbitPublisher struct {
	queueName string
	open      func() (publishChannel, error)
	metrics   *observability.Metrics

	mu sync.Mutex
	ch publishChannel
}

// NewRabbitPublisher declares queueName and returns a publisher bound to it.
func NewRabbitPublisher(conn *amqp.Connection, queueName string, metrics *observability.Metrics) (*RabbitPublisher, error) {
	ch, err := CreateChannel(conn)
	if err != nil {
		return nil, err
	}
	if _, err := DeclareQueue(ch, queueName); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &RabbitPublisher{
		queueName: queueName,
		metrics:   metrics,
		ch:        ch,
		open: func() (publishChannel, error) {
			return CreateChannel(conn)
		},
	}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev TaskEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal task event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         "task." + string(ev.Action),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.open()
		if err != nil {
			p.recordFailure()
			return err
		}
		p.ch = ch
	}

	if err := p.ch.PublishWithContext(ctx, "", p.queueName, false, false, pub); err != nil {
		p.recordFailure()
		return fmt.Errorf("publish task event: %w", err)
	}

	if p.metrics != nil {
		p.metrics.QueueMessagesPublished.WithLabelValues(p.queueName).Inc()
	}
	logrus.WithFields(logrus.Fields{
		"task_id": ev.TaskID,
		"action":  ev.Action,
	}).Debug("Task event published")
	return nil
}

func (p *RabbitPublisher) recordFailure() {
	if p.metrics != nil {
		p.metrics.QueuePublishFailures.WithLabelValues(p.queueName).Inc()
	}
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
