package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/checkout"
)

// OrderHandler обслуживает просмотр и жизненный цикл заказов.
type OrderHandler struct {
	orchestrator *checkout.Orchestrator
	timeline     domain.TimelineRepository
}

// NewOrderHandler создаёт handler заказов.
func NewOrderHandler(orchestrator *checkout.Orchestrator, timeline domain.TimelineRepository) *OrderHandler {
	return &OrderHandler{orchestrator: orchestrator, timeline: timeline}
}

// List — GET /v1/orders?limit=N.
func (h *OrderHandler) List(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	orders, err := h.orchestrator.GetOrders(c.Request.Context(), uid, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": toOrderResponses(orders)})
}

// Get — GET /v1/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	order, err := h.orchestrator.GetOrder(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Cancel — PATCH /v1/orders/:id/cancel. Доступно только владельцу и только
// из pending; сток возвращается на склад.
func (h *OrderHandler) Cancel(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	order, err := h.orchestrator.CancelOrder(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus — PATCH /v1/orders/:id/status. Операция магазина: переходы
// только вперёд по цепочке pending → confirmed → shipped → delivered.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	sid := shopID(c)
	if sid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrShopIDRequired.Error()})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	next := domain.OrderStatus(req.Status)
	if !next.Valid() {
		c.JSON(http.StatusBadRequest, errorBody{Error: "unknown order status"})
		return
	}

	order, err := h.orchestrator.UpdateOrderStatus(c.Request.Context(), c.Param("id"), sid, next)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Timeline — GET /v1/orders/:id/timeline.
func (h *OrderHandler) Timeline(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	// Владелец проверяется через GetOrder: чужой заказ неотличим от отсутствующего.
	if _, err := h.orchestrator.GetOrder(c.Request.Context(), c.Param("id"), uid); err != nil {
		respondDomainError(c, err)
		return
	}

	events, err := h.timeline.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	out := make([]timelineEventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, timelineEventDTO{
			OrderID:    event.OrderID,
			Kind:       event.Kind,
			Note:       event.Note,
			OccurredAt: event.OccurredAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}
