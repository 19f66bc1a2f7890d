package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

type outboxRecord struct {
	msg       domain.OutboxMessage
	delivered bool
	failed    bool
	attempts  int
	createdAt time.Time
}

func (rec *outboxRecord) pending() bool { return !rec.delivered && !rec.failed }

// outboxRepositoryInMemory хранит сообщения в порядке постановки: слайс
// даёт FIFO для PullPending, карта — доступ по id для MarkSent/MarkFailed.
type outboxRepositoryInMemory struct {
	mu    sync.RWMutex
	queue []*outboxRecord
	byID  map[string]*outboxRecord
}

// NewOutboxRepository создаёт in-memory реализацию transactional outbox.
func NewOutboxRepository() *outboxRepositoryInMemory {
	return &outboxRepositoryInMemory{byID: make(map[string]*outboxRecord)}
}

func (r *outboxRepositoryInMemory) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	rec := &outboxRecord{msg: msg, createdAt: time.Now().UTC()}
	r.queue = append(r.queue, rec)
	r.byID[msg.ID] = rec
	return msg, nil
}

func (r *outboxRepositoryInMemory) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	batch := make([]domain.OutboxMessage, 0, limit)
	for _, rec := range r.queue {
		if !rec.pending() {
			continue
		}
		batch = append(batch, rec.msg)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

func (r *outboxRepositoryInMemory) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, rec := range r.queue {
		if !rec.pending() {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() {
			// Очередь упорядочена по времени постановки.
			stats.OldestPendingAt = rec.createdAt
		}
	}
	return stats, nil
}

func (r *outboxRepositoryInMemory) MarkSent(_ context.Context, id string) error {
	return r.resolve(id, true)
}

func (r *outboxRepositoryInMemory) MarkFailed(_ context.Context, id string) error {
	return r.resolve(id, false)
}

func (r *outboxRepositoryInMemory) resolve(id string, delivered bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	rec.delivered = delivered
	rec.failed = !delivered
	rec.attempts++
	return nil
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
