package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// discountRepositoryInMemory — in-memory реализация DiscountRepository.
type discountRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Discount // key: discount ID
}

// NewDiscountRepository возвращает in-memory хранилище кодов скидок.
func NewDiscountRepository() domain.DiscountRepository {
	return &discountRepositoryInMemory{
		items: make(map[string]domain.Discount),
	}
}

// Create сохраняет код скидки; активный дубликат кода в магазине — ошибка.
func (r *discountRepositoryInMemory) Create(_ context.Context, discount domain.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.ShopID == discount.ShopID && existing.Code == discount.Code && existing.IsActive {
			return domain.ErrDiscountExists
		}
	}
	if discount.ID == "" {
		discount.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	discount.CreatedAt = now
	discount.UpdatedAt = now
	r.items[discount.ID] = cloneDiscount(discount)
	return nil
}

// GetByCode возвращает код скидки магазина.
func (r *discountRepositoryInMemory) GetByCode(_ context.Context, shopID, code string) (domain.Discount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, discount := range r.items {
		if discount.ShopID == shopID && discount.Code == code {
			return cloneDiscount(discount), nil
		}
	}
	return domain.Discount{}, domain.ErrDiscountNotFound
}

// Delete удаляет код скидки магазина.
func (r *discountRepositoryInMemory) Delete(_ context.Context, shopID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, discount := range r.items {
		if discount.ShopID == shopID && discount.Code == code {
			delete(r.items, id)
			return nil
		}
	}
	return domain.ErrDiscountNotFound
}

// RecordUse списывает одно применение кода и помечает пользователя.
func (r *discountRepositoryInMemory) RecordUse(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	discount, ok := r.items[id]
	if !ok {
		return domain.ErrDiscountNotFound
	}
	discount.MaxUses--
	discount.UsesCount++
	discount.UsersUsed = append(cloneStrings(discount.UsersUsed), userID)
	discount.UpdatedAt = time.Now().UTC()
	r.items[id] = discount
	return nil
}

func cloneDiscount(src domain.Discount) domain.Discount {
	dst := src
	dst.UsersUsed = cloneStrings(src.UsersUsed)
	dst.ProductIDs = cloneStrings(src.ProductIDs)
	return dst
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

var _ domain.DiscountRepository = (*discountRepositoryInMemory)(nil)
