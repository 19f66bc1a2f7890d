package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/checkout"
)

const idempotencyHeader = "Idempotency-Key"

// CheckoutHandler обслуживает предпросмотр и оформление заказа.
type CheckoutHandler struct {
	orchestrator *checkout.Orchestrator
	idempotency  domain.IdempotencyRepository
	logger       *log.Entry
}

// NewCheckoutHandler создаёт handler оформления. idempotency может быть nil —
// тогда повтор запроса оформления обрабатывается как новый.
func NewCheckoutHandler(orchestrator *checkout.Orchestrator, idempotency domain.IdempotencyRepository, logger *log.Entry) *CheckoutHandler {
	if logger == nil {
		logger = log.New().WithField("component", "http_checkout")
	}
	return &CheckoutHandler{orchestrator: orchestrator, idempotency: idempotency, logger: logger}
}

type checkoutReviewRequest struct {
	CartID string          `json:"cart_id"`
	Groups []groupInputDTO `json:"shop_order_ids"`
}

type placeOrderRequest struct {
	CartID   string          `json:"cart_id"`
	Groups   []groupInputDTO `json:"shop_order_ids"`
	Shipping shippingDTO     `json:"user_address"`
	Payment  paymentDTO      `json:"user_payment"`
}

// Review — POST /v1/checkout/review.
func (h *CheckoutHandler) Review(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	var req checkoutReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	review, err := h.orchestrator.ReviewCheckout(c.Request.Context(), uid, req.CartID, toGroupInputs(req.Groups))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviewResponseDTO{
		Groups: toGroupDTOs(review.Groups),
		Totals: toTotalsDTO(review.Totals),
	})
}

// Place — POST /v1/checkout/order. Повтор с тем же Idempotency-Key получает
// сохранённый ответ: резервы и заказ не дублируются.
func (h *CheckoutHandler) Place(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "cannot read request body"})
		return
	}

	var req placeOrderRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	key := c.GetHeader(idempotencyHeader)
	if key != "" && h.idempotency != nil {
		if done := h.beginIdempotent(c, key, uid, raw); done {
			return
		}
	}

	order, err := h.orchestrator.PlaceOrder(
		c.Request.Context(),
		uid,
		req.CartID,
		toGroupInputs(req.Groups),
		domain.ShippingInfo(req.Shipping),
		domain.PaymentInfo(req.Payment),
	)
	if err != nil {
		if key != "" && h.idempotency != nil {
			h.finishIdempotent(c, key, errorBody{Error: err.Error()}, statusForError(err), false)
		}
		respondDomainError(c, err)
		return
	}

	response := toOrderResponse(order)
	if key != "" && h.idempotency != nil {
		h.finishIdempotent(c, key, response, http.StatusCreated, true)
	}
	c.JSON(http.StatusCreated, response)
}

// beginIdempotent регистрирует ключ. true — ответ уже отдан (повтор или конфликт).
func (h *CheckoutHandler) beginIdempotent(c *gin.Context, key, uid string, body []byte) bool {
	hash := requestHash(uid, body)
	ttl := time.Now().UTC().Add(24 * time.Hour)

	record, err := h.idempotency.CreateProcessing(c.Request.Context(), key, hash, ttl)
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return true
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		if record.Status == domain.IdempotencyStatusProcessing {
			c.JSON(http.StatusConflict, errorBody{Error: "request is already being processed"})
			return true
		}
		// Реплей сохранённого ответа.
		c.Data(record.HTTPStatus, "application/json", record.ResponseBody)
		return true
	default:
		h.logger.WithError(err).Warn("idempotency check failed, proceeding without replay")
		return false
	}
}

func (h *CheckoutHandler) finishIdempotent(c *gin.Context, key string, response interface{}, status int, ok bool) {
	body, err := json.Marshal(response)
	if err != nil {
		h.logger.WithError(err).Warn("marshal idempotent response")
		return
	}

	if ok {
		err = h.idempotency.MarkDone(c.Request.Context(), key, body, status)
	} else {
		err = h.idempotency.MarkFailed(c.Request.Context(), key, body, status)
	}
	if err != nil {
		h.logger.WithError(err).WithField("key", key).Warn("store idempotent response")
	}
}

func statusForError(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsVersionConflict(err):
		return http.StatusConflict
	case domain.IsBadRequest(err), isValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requestHash связывает ключ идемпотентности с пользователем и телом запроса.
func requestHash(uid string, body []byte) string {
	sum := sha256.Sum256(append([]byte(uid+"\n"), body...))
	return hex.EncodeToString(sum[:])
}
