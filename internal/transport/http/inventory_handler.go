package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/inventorymgr"
)

// InventoryHandler обслуживает складские операции магазина.
type InventoryHandler struct {
	inventory *inventorymgr.Service
}

// NewInventoryHandler создаёт handler склада.
func NewInventoryHandler(inventory *inventorymgr.Service) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

type addStockRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"stock"`
	Location  string `json:"location"`
}

type inventoryResponseDTO struct {
	ProductID    string `json:"inventory_productId"`
	ShopID       string `json:"inventory_shopId"`
	Stock        int64  `json:"inventory_stock"`
	Location     string `json:"inventory_location"`
	Reservations int    `json:"inventory_reservations_count"`
}

func toInventoryResponse(inv domain.Inventory) inventoryResponseDTO {
	return inventoryResponseDTO{
		ProductID:    inv.ProductID,
		ShopID:       inv.ShopID,
		Stock:        inv.Stock,
		Location:     inv.Location,
		Reservations: len(inv.Reservations),
	}
}

// AddStock — POST /v1/inventory. Пополнение остатка товара магазина.
func (h *InventoryHandler) AddStock(c *gin.Context) {
	sid := shopID(c)
	if sid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrShopIDRequired.Error()})
		return
	}

	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	inv, err := h.inventory.AddStock(c.Request.Context(), sid, req.ProductID, req.Quantity, req.Location)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toInventoryResponse(inv))
}

// Get — GET /v1/inventory/:productId.
func (h *InventoryHandler) Get(c *gin.Context) {
	inv, err := h.inventory.GetInventory(c.Request.Context(), c.Param("productId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toInventoryResponse(inv))
}
