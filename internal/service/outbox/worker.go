// Package outbox доставляет события заказов из transactional outbox в брокер.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

const (
	// DefaultPollInterval — период опроса таблицы outbox.
	DefaultPollInterval = time.Second
	// DefaultBatchSize — сколько pending-сообщений забирается за цикл.
	DefaultBatchSize = 100
	// DefaultMaxAttempts — попытки доставки до перевода в failed/DLQ.
	DefaultMaxAttempts = 3
	// DefaultRetryBaseDelay — базовая задержка между попытками, удваивается.
	DefaultRetryBaseDelay = 50 * time.Millisecond
)

var (
	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecom_outbox_deliveries_total",
		Help: "Outbox delivery attempts by result.",
	}, []string{"result"})
	backlogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ecom_outbox_backlog",
		Help: "Pending messages currently sitting in the outbox.",
	})
	backlogOldestAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ecom_outbox_backlog_oldest_seconds",
		Help: "Age of the oldest pending outbox message in seconds.",
	})
)

// Config задаёт параметры доставки outbox-сообщений.
type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// DefaultConfig возвращает конфигурацию доставки по умолчанию.
func DefaultConfig() Config {
	return Config{
		PollInterval:   DefaultPollInterval,
		BatchSize:      DefaultBatchSize,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBaseDelay < 0 {
		c.RetryBaseDelay = 0
	}
	return c
}

// Worker перекладывает pending-сообщения из outbox в брокер. Сообщение,
// которое не удалось доставить за MaxAttempts попыток, помечается failed
// и, при настроенном DLQ, уходит в dead letter topic.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	cfg       Config
	logger    *log.Entry
}

// NewWorker создаёт воркер доставки outbox-сообщений.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, cfg Config, logger *log.Entry) *Worker {
	if logger == nil {
		logger = log.WithField("component", "outbox-worker")
	}
	return &Worker{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// WithDLQ подключает publisher для сообщений, исчерпавших попытки доставки.
func (w *Worker) WithDLQ(publisher domain.OutboxPublisher) *Worker {
	w.dlq = publisher
	return w
}

// Run крутит цикл доставки до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.Drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain выполняет один цикл: забирает батч pending и доставляет каждое
// сообщение. Ошибка MarkSent не повторяет доставку — publisher обязан
// быть идемпотентным, дубль на стороне брокера безопаснее потери.
func (w *Worker) Drain(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.cfg.BatchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return
	}

	for _, msg := range batch {
		if ctx.Err() != nil {
			return
		}
		w.deliver(ctx, msg)
	}

	if len(batch) > 0 {
		w.observeBacklog(ctx)
	}
}

func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) {
	err := w.attemptPublish(ctx, msg)
	if err == nil {
		if markErr := w.repo.MarkSent(ctx, msg.ID); markErr != nil {
			w.logger.WithError(markErr).WithField("outbox_id", msg.ID).Warn("failed to mark outbox message as sent")
		}
		return
	}

	w.logger.WithError(err).WithFields(log.Fields{
		"outbox_id":  msg.ID,
		"event_type": msg.EventType,
	}).Error("outbox delivery exhausted retries")
	deliveriesTotal.WithLabelValues("failed").Inc()

	if dlqErr := w.sendToDLQ(msg, err); dlqErr != nil {
		w.logger.WithError(dlqErr).WithField("outbox_id", msg.ID).Warn("failed to forward message to DLQ")
		deliveriesTotal.WithLabelValues("dlq_failed").Inc()
	}
	if markErr := w.repo.MarkFailed(ctx, msg.ID); markErr != nil {
		w.logger.WithError(markErr).WithField("outbox_id", msg.ID).Warn("failed to mark outbox message as failed")
	}
}

// attemptPublish доставляет сообщение с экспоненциальной паузой между
// попытками: base, 2*base, 4*base и так далее.
func (w *Worker) attemptPublish(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error

	delay := w.cfg.RetryBaseDelay
	for attempt := 1; ; attempt++ {
		err := w.publisher.Publish(msg)
		if err == nil {
			deliveriesTotal.WithLabelValues("sent").Inc()
			return nil
		}
		lastErr = err
		deliveriesTotal.WithLabelValues("retry_error").Inc()

		if attempt >= w.cfg.MaxAttempts {
			return fmt.Errorf("publish failed after %d attempts: %w", w.cfg.MaxAttempts, lastErr)
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if delay < time.Minute {
				delay *= 2
			}
		}
	}
}

func (w *Worker) sendToDLQ(msg domain.OutboxMessage, cause error) error {
	if w.dlq == nil {
		return nil
	}

	wrapped, err := json.Marshal(map[string]any{
		"source_id":      msg.ID,
		"aggregate_type": msg.AggregateType,
		"aggregate_id":   msg.AggregateID,
		"event_type":     msg.EventType,
		"original":       json.RawMessage(msg.Payload),
		"failure":        cause.Error(),
		"failed_at":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq envelope: %w", err)
	}

	dead := msg
	dead.Payload = wrapped
	if err := w.dlq.Publish(dead); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	backlogSize.Set(float64(stats.PendingCount))
	switch {
	case stats.PendingCount == 0 || stats.OldestPendingAt.IsZero():
		backlogOldestAge.Set(0)
	default:
		age := time.Since(stats.OldestPendingAt).Seconds()
		if age < 0 {
			age = 0
		}
		backlogOldestAge.Set(age)
	}
}
