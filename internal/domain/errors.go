package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отрицательного остатка на складе.
	ErrStockNegative = errors.New("inventory stock must be non-negative")
	// Ошибка отсутствующего товара в записи склада.
	ErrProductIDRequired = errors.New("product_id is required")
	// Ошибка отсутствующего магазина в записи склада.
	ErrShopIDRequired = errors.New("shop_id is required")

	// ErrCartNotFound возвращается, если активная корзина не найдена.
	ErrCartNotFound = errors.New("cart not found")
	// ErrOrderNotFound возвращается, если заказ не найден или не принадлежит запрашивающему.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderTransitionInvalid — попытка перевести заказ в недопустимый статус.
	ErrOrderTransitionInvalid = errors.New("order status transition is not allowed")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderGroupInvalid — хотя бы одна позиция группы не разрешилась в реальный товар.
	ErrOrderGroupInvalid = errors.New("order group contains unresolvable items")
	// ErrItemsUnavailable — часть позиций не удалось зарезервировать; пользователь должен вернуться в корзину.
	ErrItemsUnavailable = errors.New("some items have been updated, please return to your cart")
	// ErrInventoryNotFound возвращается, если складская запись по товару отсутствует.
	ErrInventoryNotFound = errors.New("inventory record not found")

	// ErrDiscountNotFound — код скидки не существует для магазина.
	ErrDiscountNotFound = errors.New("discount does not exist")
	// ErrDiscountInactive — код скидки деактивирован.
	ErrDiscountInactive = errors.New("discount is not active")
	// ErrDiscountExpired — дата действия кода скидки прошла или ещё не наступила.
	ErrDiscountExpired = errors.New("discount code has expired")
	// ErrDiscountExhausted — лимит использований кода скидки исчерпан.
	ErrDiscountExhausted = errors.New("discount is out of uses")
	// ErrDiscountMinOrder — сумма заказа меньше минимальной для применения скидки.
	ErrDiscountMinOrder = errors.New("order total is below discount minimum")
	// ErrDiscountExists — активный код скидки уже существует в магазине.
	ErrDiscountExists = errors.New("discount already exists")

	// ErrProductTypeUnknown — тип товара не зарегистрирован в реестре вариантов.
	ErrProductTypeUnknown = errors.New("unknown product type")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyHashMismatch — по ключу уже есть запись с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency request hash mismatch")
	// ErrIdempotencyKeyAlreadyExists — ключ уже обрабатывается или обработан.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound проверяет, относится ли ошибка к классу "сущность не найдена".
// Транспортный слой переводит такие ошибки в 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInventoryNotFound) ||
		errors.Is(err, ErrDiscountNotFound)
}

// IsBadRequest проверяет, относится ли ошибка к классу некорректного запроса.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrOrderGroupInvalid) ||
		errors.Is(err, ErrItemsUnavailable) ||
		errors.Is(err, ErrOrderTransitionInvalid) ||
		errors.Is(err, ErrDiscountInactive) ||
		errors.Is(err, ErrDiscountExpired) ||
		errors.Is(err, ErrDiscountExhausted) ||
		errors.Is(err, ErrDiscountMinOrder) ||
		errors.Is(err, ErrDiscountExists) ||
		errors.Is(err, ErrProductTypeUnknown)
}
