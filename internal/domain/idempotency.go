package domain

import "time"

// IdempotencyStatus — этап обработки запроса с ключом Idempotency-Key.
// Ключ живёт от первого запроса до истечения TTL: повтор в статусе done
// получает сохранённый ответ, повтор в processing — отказ «ещё выполняется».
type IdempotencyStatus string

const (
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	IdempotencyStatusDone       IdempotencyStatus = "done"
	IdempotencyStatusFailed     IdempotencyStatus = "failed"
)

// Valid сообщает, что значение относится к известным статусам.
func (s IdempotencyStatus) Valid() bool {
	return s == IdempotencyStatusProcessing || s == IdempotencyStatusDone || s == IdempotencyStatusFailed
}

// Terminal сообщает, что обработка завершена и ответ зафиксирован.
func (s IdempotencyStatus) Terminal() bool {
	return s == IdempotencyStatusDone || s == IdempotencyStatusFailed
}

// IdempotencyRecord — след обработки одного запроса оформления заказа.
// RequestHash связывает ключ с телом запроса: тот же ключ с другим телом
// означает ошибку клиента, а не повтор.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	Status      IdempotencyStatus

	// Сохранённый ответ, который воспроизводится при повторе.
	HTTPStatus   int
	ResponseBody []byte

	TTLAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired сообщает, что TTL записи прошёл к моменту at и её можно убирать.
func (r IdempotencyRecord) Expired(at time.Time) bool {
	return !r.TTLAt.IsZero() && !r.TTLAt.After(at)
}

// Matches проверяет, что повторный запрос принёс то же тело.
func (r IdempotencyRecord) Matches(requestHash string) bool {
	return r.RequestHash == requestHash
}
