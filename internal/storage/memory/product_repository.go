package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// productRepositoryInMemory — in-memory реализация ProductRepository.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory каталог.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Create сохраняет новую карточку товара.
func (r *productRepositoryInMemory) Create(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[product.ID] = cloneProduct(product)
	return nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return cloneProduct(product), nil
}

// Update перезаписывает карточку товара.
func (r *productRepositoryInMemory) Update(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	product.UpdatedAt = time.Now().UTC()
	r.items[product.ID] = cloneProduct(product)
	return nil
}

// SetPublished публикует или снимает с публикации товар магазина.
func (r *productRepositoryInMemory) SetPublished(_ context.Context, shopID, productID string, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok || product.ShopID != shopID {
		return domain.ErrProductNotFound
	}
	product.IsPublished = published
	product.IsDraft = !published
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return nil
}

// AdjustQuantity атомарно меняет каталожное количество.
func (r *productRepositoryInMemory) AdjustQuantity(_ context.Context, productID string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Quantity += delta
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return nil
}

func cloneProduct(src domain.Product) domain.Product {
	dst := src
	if src.Attributes != nil {
		dst.Attributes = make(map[string]interface{}, len(src.Attributes))
		for k, v := range src.Attributes {
			dst.Attributes[k] = v
		}
	}
	return dst
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
