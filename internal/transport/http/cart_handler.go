package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/cart"
)

// CartHandler обслуживает корзину покупателя.
type CartHandler struct {
	carts *cart.Service
}

// NewCartHandler создаёт handler корзины.
func NewCartHandler(carts *cart.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartItemDTO struct {
	ProductID string `json:"productId"`
	ShopID    string `json:"shopId"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}

type cartResponseDTO struct {
	ID    string        `json:"id"`
	State string        `json:"cart_state"`
	Items []cartItemDTO `json:"cart_products"`
	Count int64         `json:"cart_count_product"`
}

func toCartResponse(c domain.Cart) cartResponseDTO {
	items := make([]cartItemDTO, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, cartItemDTO{
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Quantity:  item.Quantity,
			Price:     item.PriceMinor,
		})
	}
	return cartResponseDTO{
		ID:    c.ID,
		State: string(c.State),
		Items: items,
		Count: c.Count,
	}
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// Add — POST /v1/cart. Первая позиция создаёт корзину.
func (h *CartHandler) Add(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	updated, err := h.carts.AddToCart(c.Request.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCartResponse(updated))
}

type updateCartItemRequest struct {
	ProductID string `json:"productId"`
	Delta     int64  `json:"delta"`
}

// UpdateItem — PATCH /v1/cart. Дельта количества; уход в ноль удаляет позицию.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	updated, err := h.carts.UpdateItemQuantity(c.Request.Context(), uid, req.ProductID, req.Delta)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCartResponse(updated))
}

// Get — GET /v1/cart.
func (h *CartHandler) Get(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	current, err := h.carts.GetCart(c.Request.Context(), uid)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCartResponse(current))
}
