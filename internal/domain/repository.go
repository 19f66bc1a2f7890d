package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы покупателя с опциональным ограничением на количество.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
}

// CartRepository описывает хранилище корзин.
type CartRepository interface {
	// GetActive возвращает активную корзину по ID или ErrCartNotFound.
	GetActive(ctx context.Context, cartID string) (Cart, error)
	// GetByUser возвращает корзину пользователя или ErrCartNotFound.
	GetByUser(ctx context.Context, userID string) (Cart, error)
	// Upsert создаёт или перезаписывает корзину целиком.
	Upsert(ctx context.Context, cart Cart) (Cart, error)
	// IncrementItemQuantity атомарно меняет количество позиции в активной корзине.
	IncrementItemQuantity(ctx context.Context, userID, productID string, delta int64) (Cart, error)
	// RemoveItems удаляет перечисленные товары из корзины (best-effort при оформлении).
	RemoveItems(ctx context.Context, cartID string, productIDs []string) error
}

// ProductRepository описывает read/write контракт каталога.
// Checkout использует только Get: серверную цену и принадлежность магазину.
type ProductRepository interface {
	Create(ctx context.Context, product Product) error
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	Update(ctx context.Context, product Product) error
	// SetPublished публикует или снимает с публикации товар магазина.
	SetPublished(ctx context.Context, shopID, productID string, published bool) error
	// AdjustQuantity атомарно меняет каталожное количество (зеркало склада).
	AdjustQuantity(ctx context.Context, productID string, delta int64) error
}

// DiscountRepository описывает хранилище кодов скидок.
type DiscountRepository interface {
	Create(ctx context.Context, discount Discount) error
	// GetByCode возвращает код скидки магазина или ErrDiscountNotFound.
	GetByCode(ctx context.Context, shopID, code string) (Discount, error)
	Delete(ctx context.Context, shopID, code string) error
	// RecordUse атомарно списывает одно применение кода и помечает пользователя.
	RecordUse(ctx context.Context, id, userID string) error
}

// InventoryRepository описывает складское хранилище. Это единственный
// санкционированный способ мутации остатков: условное списание,
// компенсирующий возврат и пополнение.
type InventoryRepository interface {
	// Get возвращает складскую запись товара или ErrInventoryNotFound.
	Get(ctx context.Context, productID string) (Inventory, error)
	// AddStock пополняет остаток (upsert записи при первом пополнении).
	AddStock(ctx context.Context, productID, shopID string, quantity int64, location string) (Inventory, error)
	// ReserveStock атомарно проверяет stock >= quantity, списывает и дописывает
	// запись в журнал резервирований. false — условие не выполнено, сток не тронут.
	ReserveStock(ctx context.Context, productID string, quantity int64, cartID string) (bool, error)
	// ReleaseStock возвращает ранее списанный сток (компенсация).
	ReleaseStock(ctx context.Context, productID string, quantity int64, cartID string) (bool, error)
}
