package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События заказа
	EventTypeOrderPlaced    EventType = "order.placed"
	EventTypeOrderConfirmed EventType = "order.confirmed"
	EventTypeOrderShipped   EventType = "order.shipped"
	EventTypeOrderDelivered EventType = "order.delivered"
	EventTypeOrderCancelled EventType = "order.cancelled"

	// События оформления
	EventTypeCheckoutDeclined EventType = "checkout.declined"

	// События склада
	EventTypeStockReserved EventType = "stock.reserved"
	EventTypeStockReleased EventType = "stock.released"
	EventTypeStockAdded    EventType = "stock.added"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "ecom.order.events"
	TopicInventoryEvents = "ecom.inventory.events"
	TopicDeadLetterQueue = "ecom.dlq"
)

// OrderEvent представляет событие жизненного цикла заказа
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	UserID    string                 `json:"user_id"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// InventoryEvent представляет событие изменения складского остатка
type InventoryEvent struct {
	EventType EventType `json:"event_type"`
	ProductID string    `json:"product_id"`
	CartID    string    `json:"cart_id,omitempty"`
	Quantity  int64     `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, userID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewInventoryEvent создает новое событие склада
func NewInventoryEvent(eventType EventType, productID, cartID string, quantity int64) *InventoryEvent {
	return &InventoryEvent{
		EventType: eventType,
		ProductID: productID,
		CartID:    cartID,
		Quantity:  quantity,
		Timestamp: time.Now(),
	}
}
