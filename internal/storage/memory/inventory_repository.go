package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// inventoryRepositoryInMemory — in-memory реализация InventoryRepository.
// Условное списание выполняется под mutex'ом, поэтому проверка stock >= qty
// и декремент атомарны, как single-document update в документной БД.
type inventoryRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Inventory
}

// NewInventoryRepository возвращает in-memory склад для локальной разработки и тестов.
func NewInventoryRepository() domain.InventoryRepository {
	return &inventoryRepositoryInMemory{
		items: make(map[string]domain.Inventory),
	}
}

// Get возвращает складскую запись или ErrInventoryNotFound.
func (r *inventoryRepositoryInMemory) Get(_ context.Context, productID string) (domain.Inventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.items[productID]
	if !ok {
		return domain.Inventory{}, domain.ErrInventoryNotFound
	}
	return cloneInventory(inv), nil
}

// AddStock пополняет остаток, создавая запись при первом пополнении.
func (r *inventoryRepositoryInMemory) AddStock(_ context.Context, productID, shopID string, quantity int64, location string) (domain.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	inv, ok := r.items[productID]
	if !ok {
		inv = domain.Inventory{
			ProductID: productID,
			ShopID:    shopID,
			Location:  location,
			CreatedAt: now,
		}
	}
	inv.Stock += quantity
	if location != "" {
		inv.Location = location
	}
	inv.UpdatedAt = now
	r.items[productID] = inv
	return cloneInventory(inv), nil
}

// ReserveStock атомарно списывает сток и дописывает запись в журнал
// резервирований. false — условия stock >= quantity нет, запись не изменена.
func (r *inventoryRepositoryInMemory) ReserveStock(_ context.Context, productID string, quantity int64, cartID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.items[productID]
	if !ok || inv.Stock < quantity {
		return false, nil
	}

	inv.Stock -= quantity
	inv.Reservations = append(cloneReservations(inv.Reservations), domain.ReservationEntry{
		Quantity:  quantity,
		CartID:    cartID,
		CreatedAt: time.Now().UTC(),
	})
	inv.UpdatedAt = time.Now().UTC()
	r.items[productID] = inv
	return true, nil
}

// ReleaseStock возвращает ранее списанный сток (компенсация прерванного
// оформления). Без записи резервирования этой корзины на то же количество
// остаток не меняется: повторная компенсация безопасна.
func (r *inventoryRepositoryInMemory) ReleaseStock(_ context.Context, productID string, quantity int64, cartID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.items[productID]
	if !ok {
		return false, nil
	}

	// Ищем последнюю запись резервирования этой корзины на то же количество.
	matched := -1
	for i := len(inv.Reservations) - 1; i >= 0; i-- {
		if inv.Reservations[i].CartID == cartID && inv.Reservations[i].Quantity == quantity {
			matched = i
			break
		}
	}
	if matched < 0 {
		return false, nil
	}

	reservations := cloneReservations(inv.Reservations)
	inv.Reservations = append(reservations[:matched], reservations[matched+1:]...)
	inv.Stock += quantity
	inv.UpdatedAt = time.Now().UTC()
	r.items[productID] = inv
	return true, nil
}

func cloneInventory(src domain.Inventory) domain.Inventory {
	dst := src
	dst.Reservations = cloneReservations(src.Reservations)
	return dst
}

func cloneReservations(src []domain.ReservationEntry) []domain.ReservationEntry {
	if src == nil {
		return nil
	}
	dst := make([]domain.ReservationEntry, len(src))
	copy(dst, src)
	return dst
}

var _ domain.InventoryRepository = (*inventoryRepositoryInMemory)(nil)
