package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/product"
)

// ProductHandler обслуживает каталог: операции продавца и чтение карточки.
type ProductHandler struct {
	products *product.Service
}

// NewProductHandler создаёт handler каталога.
func NewProductHandler(products *product.Service) *ProductHandler {
	return &ProductHandler{products: products}
}

type productRequest struct {
	Name        string                 `json:"product_name"`
	Type        string                 `json:"product_type"`
	Description string                 `json:"product_description"`
	Price       int64                  `json:"product_price"`
	Attributes  map[string]interface{} `json:"product_attributes"`
}

type productResponseDTO struct {
	ID          string                 `json:"id"`
	ShopID      string                 `json:"product_shop"`
	Name        string                 `json:"product_name"`
	Type        string                 `json:"product_type"`
	Description string                 `json:"product_description"`
	Price       int64                  `json:"product_price"`
	Quantity    int64                  `json:"product_quantity"`
	Attributes  map[string]interface{} `json:"product_attributes"`
	IsDraft     bool                   `json:"isDraft"`
	IsPublished bool                   `json:"isPublished"`
}

func toProductResponse(p domain.Product) productResponseDTO {
	return productResponseDTO{
		ID:          p.ID,
		ShopID:      p.ShopID,
		Name:        p.Name,
		Type:        string(p.Type),
		Description: p.Description,
		Price:       p.PriceMinor,
		Quantity:    p.Quantity,
		Attributes:  p.Attributes,
		IsDraft:     p.IsDraft,
		IsPublished: p.IsPublished,
	}
}

// Create — POST /v1/products. Новая карточка всегда черновик.
func (h *ProductHandler) Create(c *gin.Context) {
	sid := shopID(c)
	if sid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrShopIDRequired.Error()})
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	created, err := h.products.CreateProduct(c.Request.Context(), domain.Product{
		ShopID:      sid,
		Name:        req.Name,
		Type:        domain.ProductType(req.Type),
		Description: req.Description,
		PriceMinor:  req.Price,
		Attributes:  req.Attributes,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProductResponse(created))
}

// Update — PATCH /v1/products/:id. Ненулевые поля перекрывают, атрибуты сливаются.
func (h *ProductHandler) Update(c *gin.Context) {
	sid := shopID(c)
	if sid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrShopIDRequired.Error()})
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	updated, err := h.products.UpdateProduct(c.Request.Context(), sid, c.Param("id"), domain.Product{
		Name:        req.Name,
		Type:        domain.ProductType(req.Type),
		Description: req.Description,
		PriceMinor:  req.Price,
		Attributes:  req.Attributes,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(updated))
}

// Publish — PATCH /v1/products/:id/publish.
func (h *ProductHandler) Publish(c *gin.Context) {
	h.setPublished(c, true)
}

// Unpublish — PATCH /v1/products/:id/unpublish.
func (h *ProductHandler) Unpublish(c *gin.Context) {
	h.setPublished(c, false)
}

func (h *ProductHandler) setPublished(c *gin.Context, published bool) {
	sid := shopID(c)
	if sid == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: domain.ErrShopIDRequired.Error()})
		return
	}

	var err error
	if published {
		err = h.products.PublishProduct(c.Request.Context(), sid, c.Param("id"))
	} else {
		err = h.products.UnpublishProduct(c.Request.Context(), sid, c.Param("id"))
	}
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"published": published})
}

// Get — GET /v1/products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	found, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(found))
}
