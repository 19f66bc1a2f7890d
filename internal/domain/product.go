package domain

import "time"

// ProductType — закрытое множество типов товара. Вариативные атрибуты
// обрабатываются реестром обработчиков по тегу типа, а не наследованием.
type ProductType string

const (
	ProductTypeClothing    ProductType = "clothing"
	ProductTypeElectronics ProductType = "electronics"
	ProductTypeFurniture   ProductType = "furniture"
)

// Valid проверяет, что тип товара известен.
func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeClothing, ProductTypeElectronics, ProductTypeFurniture:
		return true
	default:
		return false
	}
}

// Product — каталожная карточка товара. Checkout использует только
// read-контракт: идентификатор, магазин и серверную цену.
type Product struct {
	ID          string
	ShopID      string
	Name        string
	Type        ProductType
	Description string
	PriceMinor  int64
	// Quantity — каталожное количество; зеркалируется при пополнении склада.
	Quantity int64
	// Attributes — вариативные поля конкретного типа (бренд, размер, модель...).
	Attributes  map[string]interface{}
	IsDraft     bool
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PricedItem — позиция с подтверждённой серверной ценой, результат
// разрешения клиентских позиций через каталог.
type PricedItem struct {
	ProductID  string
	Quantity   int64
	PriceMinor int64
}
