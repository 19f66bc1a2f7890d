package domain

import "time"

// CartState отражает жизненный цикл корзины.
type CartState string

const (
	// CartStateActive — корзина наполняется; только её можно оформить.
	CartStateActive CartState = "active"
	// CartStateCompleted — корзина оформлена в заказ.
	CartStateCompleted CartState = "completed"
	// CartStateFailed — оформление завершилось ошибкой.
	CartStateFailed CartState = "failed"
	// CartStatePending — корзина в процессе оформления.
	CartStatePending CartState = "pending"
)

// CartItem — одна позиция корзины с клиентской ценой на момент добавления.
// При оформлении цена перечитывается с сервера и клиентская игнорируется.
type CartItem struct {
	ProductID  string
	ShopID     string
	Quantity   int64
	PriceMinor int64
}

// Cart хранит позиции пользователя до оформления заказа.
type Cart struct {
	ID     string
	UserID string
	State  CartState
	Items  []CartItem
	// Count — суммарное количество единиц товара в корзине.
	Count     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecalculateCount пересчитывает суммарное количество единиц по позициям.
func (c *Cart) RecalculateCount() {
	var total int64
	for _, item := range c.Items {
		total += item.Quantity
	}
	c.Count = total
}

// FindItem возвращает позицию по товару или nil.
func (c *Cart) FindItem(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
