package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// orderRepositoryInMemory держит заказы в карте под RWMutex. Каждая операция
// работает с копией агрегата: ссылки наружу не утекают.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий заказов для локальной
// разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{orders: make(map[string]domain.Order)}
}

func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.orders[order.ID]; taken {
		return domain.ErrOrderVersionConflict
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByUser отдаёт заказы покупателя от новых к старым. При равном времени
// создания порядок стабилизируется по убыванию ID.
func (r *orderRepositoryInMemory) ListByUser(_ context.Context, userID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			result = append(result, cloneOrder(order))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// Save перезаписывает заказ по правилам optimistic locking: версия в запросе
// должна совпасть с сохранённой, после записи версия увеличивается.
func (r *orderRepositoryInMemory) Save(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	order.Version++
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	if src.Groups == nil {
		return dst
	}
	dst.Groups = make([]domain.OrderGroup, len(src.Groups))
	for i, g := range src.Groups {
		group := g
		if g.Items != nil {
			group.Items = append([]domain.OrderItem(nil), g.Items...)
		}
		if g.Discounts != nil {
			group.Discounts = append([]domain.AppliedDiscount(nil), g.Discounts...)
		}
		dst.Groups[i] = group
	}
	return dst
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
