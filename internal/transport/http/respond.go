package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// errorBody — единый формат ошибки API.
type errorBody struct {
	Error string `json:"error"`
}

// respondDomainError переводит доменные sentinel-ошибки в HTTP-статусы.
// Всё, что не распознано, уходит как 500 без деталей внутренней ошибки.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case domain.IsVersionConflict(err):
		c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case domain.IsBadRequest(err), isValidationError(err):
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrUserRequired) ||
		errors.Is(err, domain.ErrItemsRequired) ||
		errors.Is(err, domain.ErrItemQtyInvalid) ||
		errors.Is(err, domain.ErrItemPriceInvalid) ||
		errors.Is(err, domain.ErrProductIDRequired) ||
		errors.Is(err, domain.ErrShopIDRequired) ||
		errors.Is(err, domain.ErrStockNegative) ||
		errors.Is(err, domain.ErrIdempotencyKeyRequired)
}

// userID достаёт идентификатор покупателя из заголовка. Аутентификация
// вне границ сервиса: апстрим-шлюз уже проверил токен и проставил заголовок.
func userID(c *gin.Context) string {
	return c.GetHeader("X-User-Id")
}

// shopID достаёт идентификатор магазина для операций продавца.
func shopID(c *gin.Context) string {
	return c.GetHeader("X-Shop-Id")
}
