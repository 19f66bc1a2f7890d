package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/discount"
)

// DiscountHandler обслуживает коды скидок магазина.
type DiscountHandler struct {
	discounts *discount.Service
}

// NewDiscountHandler создаёт handler скидок.
func NewDiscountHandler(discounts *discount.Service) *DiscountHandler {
	return &DiscountHandler{discounts: discounts}
}

type createDiscountRequest struct {
	Code           string    `json:"discount_code"`
	Name           string    `json:"discount_name"`
	Description    string    `json:"discount_description"`
	Type           string    `json:"discount_type"`
	Value          int64     `json:"discount_value"`
	StartDate      time.Time `json:"discount_start_date"`
	EndDate        time.Time `json:"discount_end_date"`
	MaxUses        int64     `json:"discount_max_uses"`
	MaxUsesPerUser int64     `json:"discount_max_uses_per_user"`
	MinOrderValue  int64     `json:"discount_min_order_value"`
	AppliesTo      string    `json:"discount_applies_to"`
	ProductIDs     []string  `json:"discount_product_ids"`
}

type discountResponseDTO struct {
	ID        string `json:"id"`
	ShopID    string `json:"discount_shopId"`
	Code      string `json:"discount_code"`
	Type      string `json:"discount_type"`
	Value     int64  `json:"discount_value"`
	IsActive  bool   `json:"discount_is_active"`
	MaxUses   int64  `json:"discount_max_uses"`
	AppliesTo string `json:"discount_applies_to"`
}

func toDiscountResponse(d domain.Discount) discountResponseDTO {
	return discountResponseDTO{
		ID:        d.ID,
		ShopID:    d.ShopID,
		Code:      d.Code,
		Type:      string(d.Type),
		Value:     d.Value,
		IsActive:  d.IsActive,
		MaxUses:   d.MaxUses,
		AppliesTo: d.AppliesTo,
	}
}

// Create — POST /v1/discounts.
func (h *DiscountHandler) Create(c *gin.Context) {
	sid := shopID(c)
	if sid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrShopIDRequired.Error()})
		return
	}

	var req createDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	created, err := h.discounts.CreateDiscount(c.Request.Context(), domain.Discount{
		ShopID:             sid,
		Code:               req.Code,
		Name:               req.Name,
		Description:        req.Description,
		Type:               domain.DiscountType(req.Type),
		Value:              req.Value,
		IsActive:           true,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		MaxUses:            req.MaxUses,
		MaxUsesPerUser:     req.MaxUsesPerUser,
		MinOrderValueMinor: req.MinOrderValue,
		AppliesTo:          req.AppliesTo,
		ProductIDs:         req.ProductIDs,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toDiscountResponse(created))
}

// Delete — DELETE /v1/discounts/:code.
func (h *DiscountHandler) Delete(c *gin.Context) {
	sid := shopID(c)
	if sid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrShopIDRequired.Error()})
		return
	}

	if err := h.discounts.DeleteDiscount(c.Request.Context(), sid, c.Param("code")); err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("code")})
}

type computeDiscountRequest struct {
	Code   string    `json:"discount_code"`
	ShopID string    `json:"shop_id"`
	Items  []itemDTO `json:"item_products"`
}

// Compute — POST /v1/discounts/amount. Предпросмотр суммы скидки по набору
// позиций; применение не фиксируется.
func (h *DiscountHandler) Compute(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrUserRequired.Error()})
		return
	}

	var req computeDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	items := make([]domain.PricedItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.PricedItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceMinor: item.Price,
		})
	}

	amount, err := h.discounts.ComputeDiscount(c.Request.Context(), req.Code, uid, req.ShopID, items)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalOrder": amount.TotalOrderMinor,
		"discount":   amount.DiscountMinor,
		"totalPrice": amount.TotalPriceMinor,
	})
}
