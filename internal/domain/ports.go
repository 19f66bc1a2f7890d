package domain

import (
	"context"
	"time"
)

// DeclineReason уточняет, почему резервирование не состоялось.
type DeclineReason string

const (
	// DeclineReasonInsufficientStock — на складе меньше, чем запрошено.
	DeclineReasonInsufficientStock DeclineReason = "insufficient_stock"
	// DeclineReasonLockTimeout — не удалось получить блокировку за отведённые попытки.
	DeclineReasonLockTimeout DeclineReason = "lock_timeout"
)

// ReservationOutcome — результат одной попытки резервирования.
// Отказ — это значение, а не ошибка: ошибки оставлены за сбоями I/O.
type ReservationOutcome struct {
	Committed bool
	Reason    DeclineReason
}

// StockReserver описывает движок резервирования, который вызывает checkout
// для каждой позиции заказа.
type StockReserver interface {
	// Reserve выполняет ровно одно списание стока либо возвращает отказ.
	Reserve(ctx context.Context, productID string, quantity int64, cartID string) (ReservationOutcome, error)
	// Release возвращает сток на склад (компенсация при прерванном оформлении).
	Release(ctx context.Context, productID string, quantity int64, cartID string) error
}

// DiscountCalculator считает сумму скидки по коду для набора позиций.
type DiscountCalculator interface {
	ComputeDiscount(ctx context.Context, code, userID, shopID string, items []PricedItem) (DiscountAmount, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID    string
	Kind       string
	Note       string
	OccurredAt time.Time
}
