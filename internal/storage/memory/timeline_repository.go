package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// timelineRepositoryInMemory группирует события жизненного цикла по заказу.
type timelineRepositoryInMemory struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{byOrder: make(map[string][]domain.TimelineEvent)}
}

func (r *timelineRepositoryInMemory) Append(_ context.Context, event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byOrder[event.OrderID] = append(r.byOrder[event.OrderID], event)
	return nil
}

// List возвращает копию хронологии заказа, упорядоченную по OccurredAt.
// События с одинаковым временем сохраняют порядок добавления.
func (r *timelineRepositoryInMemory) List(_ context.Context, orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	timeline := append([]domain.TimelineEvent(nil), r.byOrder[orderID]...)
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].OccurredAt.Before(timeline[j].OccurredAt)
	})
	return timeline, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
