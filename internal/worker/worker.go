package worker

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"todo_api/internal/activity"
	"todo_api/internal/observability"
	"todo_api/internal/queue"
	"todo_api/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries       = 3
	retryHeader      = "x-retry-count"
	republishTimeout = 5 * time.Second
)

// ErrDeliveriesClosed is returned by Run when the broker closes the consumer.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Channel is the part of *amqp.Channel a worker uses.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type republisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Worker consumes task events and appends them to the activity log.
type Worker struct {
	id        int
	queueName string
	db        utils.TxBeginner
	repo      activity.ActivityRepositoryInterface
	metrics   *observability.Metrics
}

// NewWorker creates a consumer for queueName. A nil metrics records into a
// private registry that nothing scrapes.
func NewWorker(id int, queueName string, db *sql.DB, repo activity.ActivityRepositoryInterface, metrics *observability.Metrics) *Worker {
	if metrics == nil {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	return &Worker{
		id:        id,
		queueName: queueName,
		db:        db,
		repo:      repo,
		metrics:   metrics,
	}
}

// Run consumes from the worker's queue on ch until ctx is done or the
// deliveries channel closes. Messages are acknowledged manually, one at a time.
func (w *Worker) Run(ctx context.Context, ch Channel) error {
	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := ch.Consume(
		w.queueName,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	logrus.WithField("worker_id", w.id).Infof("Worker started on queue %s", w.queueName)

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("worker_id", w.id).Info("Worker stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			w.handle(ctx, ch, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, ch republisher, msg amqp.Delivery) {
	w.metrics.QueueMessagesConsumed.WithLabelValues(w.queueName).Inc()

	ev, err := queue.DecodeTaskEvent(msg.Body)
	if err != nil {
		logrus.WithError(err).WithField("worker_id", w.id).Error("Invalid task event payload")
		w.metrics.EventsFailedTotal.WithLabelValues("invalid_payload").Inc()
		_ = msg.Nack(false, false)
		return
	}

	retryCount := retryCountOf(msg.Headers)
	log := logrus.WithFields(logrus.Fields{
		"worker_id": w.id,
		"task_id":   ev.TaskID,
		"user_id":   ev.UserID,
		"action":    ev.Action,
		"retry":     retryCount,
	})
	log.Debug("Processing task event")

	start := time.Now()
	procErr := w.process(ctx, ev)
	w.metrics.EventProcessingDuration.WithLabelValues(string(ev.Action)).Observe(time.Since(start).Seconds())

	if procErr == nil {
		w.metrics.EventsProcessedTotal.WithLabelValues(string(ev.Action), "success").Inc()
		_ = msg.Ack(false)
		return
	}

	log.WithError(procErr).Error("Failed to record task event")
	w.metrics.EventsProcessedTotal.WithLabelValues(string(ev.Action), "failed").Inc()

	if retryCount >= maxRetries {
		w.metrics.EventsFailedTotal.WithLabelValues("max_retries").Inc()
		_ = msg.Nack(false, false)
		return
	}

	log.Infof("Requeuing task event (retry %d/%d)", retryCount+1, maxRetries)
	if err := republishWithRetry(ctx, ch, &msg, retryCount+1); err != nil {
		log.WithError(err).Error("Failed to republish task event")
		w.metrics.EventsFailedTotal.WithLabelValues("republish_error").Inc()
		_ = msg.Nack(false, false)
		return
	}

	w.metrics.QueueMessagesPublished.WithLabelValues(w.queueName).Inc()
	_ = msg.Ack(false)
}

// republishWithRetry sends a copy of msg back to its queue with the retry
// counter set to retryCount.
func republishWithRetry(ctx context.Context, ch republisher, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), republishTimeout)
	defer cancel()

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryHeader] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Type:         msg.Type,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

// retryCountOf reads the retry header. The broker may hand integers back in any
// width, so all of them are accepted.
func retryCountOf(headers amqp.Table) int32 {
	switch v := headers[retryHeader].(type) {
	case int8:
		return int32(v)
	case int16:
		return int32(v)
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	case uint8:
		return int32(v)
	case uint16:
		return int32(v)
	case uint32:
		return int32(v)
	default:
		return 0
	}
}
