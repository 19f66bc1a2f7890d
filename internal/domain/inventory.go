package domain

import "time"

// ReservationEntry — запись журнала резервирований складской позиции.
// Добавляется только вместе с успешным списанием стока.
type ReservationEntry struct {
	Quantity  int64
	CartID    string
	CreatedAt time.Time
}

// Inventory описывает складской остаток одного товара в одном магазине.
type Inventory struct {
	ProductID string
	ShopID    string
	// Stock — доступный остаток; после любой зафиксированной мутации >= 0.
	Stock    int64
	Location string
	// Reservations — append-only журнал успешных резервирований.
	Reservations []ReservationEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate проверяет, корректно ли заполнена складская запись.
func (i *Inventory) Validate() []error {
	var errs []error

	if i.ProductID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if i.ShopID == "" {
		errs = append(errs, ErrShopIDRequired)
	}
	if i.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
