package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, ожидает подтверждения магазином.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — магазин подтвердил заказ.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен покупателю.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён; допустимо только из pending.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderStatusRank задаёт порядок прямых переходов pending → confirmed → shipped → delivered.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusShipped:   2,
	OrderStatusDelivered: 3,
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// CanTransitionTo проверяет допустимость перехода. Переходы монотонны по
// последовательности статусов; cancelled достижим только из pending.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderStatusCancelled {
		return s == OrderStatusPending
	}
	from, ok := orderStatusRank[s]
	if !ok {
		// Из cancelled пути назад нет.
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to == from+1
}

// OrderItem представляет одну позицию заказа: товар, количество и серверную цену.
type OrderItem struct {
	ProductID  string
	Quantity   int64
	PriceMinor int64
}

// AppliedDiscount — ссылка на применённый код скидки внутри группы магазина.
type AppliedDiscount struct {
	ShopID string
	Code   string
}

// OrderGroup объединяет позиции заказа одного магазина вместе с его скидками.
type OrderGroup struct {
	ShopID string
	// Discounts — применённые коды; по соглашению учитывается первый.
	Discounts []AppliedDiscount
	// PriceRawMinor — сумма по позициям до скидки.
	PriceRawMinor int64
	// PriceAppliedMinor — сумма к оплате после скидки, не меньше нуля.
	PriceAppliedMinor int64
	Items             []OrderItem
}

// CheckoutTotals агрегирует итоги по всем группам заказа.
type CheckoutTotals struct {
	// TotalPriceMinor — сумма PriceRawMinor по всем группам.
	TotalPriceMinor int64
	FeeShipMinor    int64
	// TotalDiscountMinor — сумма скидок по всем группам.
	TotalDiscountMinor int64
	// TotalCheckoutMinor — итог к оплате, сумма PriceAppliedMinor по группам.
	TotalCheckoutMinor int64
}

// ShippingInfo хранит адрес доставки заказа.
type ShippingInfo struct {
	Street  string
	City    string
	State   string
	Country string
}

// PaymentInfo хранит выбранный способ оплаты. Само проведение платежа
// выполняется внешним провайдером и в заказе не отражается.
type PaymentInfo struct {
	Method   string
	Provider string
}

// Order агрегирует состояние заказа: группы магазинов, итоги и статус.
type Order struct {
	ID     string
	UserID string
	// CartID — корзина, из которой оформлен заказ; под ним же
	// записаны резервы склада.
	CartID         string
	Checkout       CheckoutTotals
	Shipping       ShippingInfo
	Payment        PaymentInfo
	Groups         []OrderGroup
	TrackingNumber string
	Status         OrderStatus
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BelongsToShop сообщает, содержит ли заказ группу указанного магазина.
func (o *Order) BelongsToShop(shopID string) bool {
	for _, g := range o.Groups {
		if g.ShopID == shopID {
			return true
		}
	}
	return false
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Groups) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	// Сверяем итоги заказа с суммами групп.
	var raw, applied int64
	for _, group := range o.Groups {
		if len(group.Items) == 0 {
			errs = append(errs, ErrItemsRequired)
		}
		var groupRaw int64
		for _, item := range group.Items {
			if item.Quantity <= 0 {
				errs = append(errs, ErrItemQtyInvalid)
			}
			if item.PriceMinor < 0 {
				errs = append(errs, ErrItemPriceInvalid)
			}
			groupRaw += item.Quantity * item.PriceMinor
		}
		if groupRaw != group.PriceRawMinor {
			errs = append(errs, ErrItemPriceInvalid)
		}
		raw += group.PriceRawMinor
		applied += group.PriceAppliedMinor
	}
	if raw != o.Checkout.TotalPriceMinor || applied != o.Checkout.TotalCheckoutMinor {
		errs = append(errs, ErrItemPriceInvalid)
	}

	return errs
}
