package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// cartRepositoryInMemory — in-memory реализация CartRepository.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Cart // key: cart ID
}

// NewCartRepository возвращает in-memory хранилище корзин.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		items: make(map[string]domain.Cart),
	}
}

// GetActive возвращает корзину по ID, только если она активна.
func (r *cartRepositoryInMemory) GetActive(_ context.Context, cartID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.items[cartID]
	if !ok || cart.State != domain.CartStateActive {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cloneCart(cart), nil
}

// GetByUser возвращает корзину пользователя.
func (r *cartRepositoryInMemory) GetByUser(_ context.Context, userID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cart := range r.items {
		if cart.UserID == userID {
			return cloneCart(cart), nil
		}
	}
	return domain.Cart{}, domain.ErrCartNotFound
}

// Upsert создаёт или перезаписывает корзину целиком.
func (r *cartRepositoryInMemory) Upsert(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if cart.ID == "" {
		cart.ID = uuid.NewString()
		cart.CreatedAt = now
	}
	if cart.State == "" {
		cart.State = domain.CartStateActive
	}
	cart.RecalculateCount()
	cart.UpdatedAt = now
	r.items[cart.ID] = cloneCart(cart)
	return cloneCart(cart), nil
}

// IncrementItemQuantity атомарно меняет количество позиции в активной корзине
// пользователя. Количество <= 0 удаляет позицию.
func (r *cartRepositoryInMemory) IncrementItemQuantity(_ context.Context, userID, productID string, delta int64) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, cart := range r.items {
		if cart.UserID != userID || cart.State != domain.CartStateActive {
			continue
		}

		updated := cloneCart(cart)
		found := false
		for i := range updated.Items {
			if updated.Items[i].ProductID != productID {
				continue
			}
			found = true
			updated.Items[i].Quantity += delta
			if updated.Items[i].Quantity <= 0 {
				updated.Items = append(updated.Items[:i], updated.Items[i+1:]...)
			}
			break
		}
		if !found {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		updated.RecalculateCount()
		updated.UpdatedAt = time.Now().UTC()
		r.items[id] = cloneCart(updated)
		return updated, nil
	}

	return domain.Cart{}, domain.ErrCartNotFound
}

// RemoveItems удаляет перечисленные товары из корзины.
func (r *cartRepositoryInMemory) RemoveItems(_ context.Context, cartID string, productIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.items[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}

	remove := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		remove[id] = struct{}{}
	}

	kept := cart.Items[:0:0]
	for _, item := range cart.Items {
		if _, drop := remove[item.ProductID]; !drop {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	cart.RecalculateCount()
	cart.UpdatedAt = time.Now().UTC()
	r.items[cartID] = cloneCart(cart)
	return nil
}

func cloneCart(src domain.Cart) domain.Cart {
	dst := src
	if src.Items != nil {
		dst.Items = make([]domain.CartItem, len(src.Items))
		copy(dst.Items, src.Items)
	}
	return dst
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
