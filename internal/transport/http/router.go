// Package http — REST-слой сервиса: маршрутизация, DTO и перевод доменных
// ошибок в HTTP-статусы. Аутентификации здесь нет: пользователь и магазин
// приходят в заголовках от вышестоящего шлюза.
package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/health"
)

// Handlers агрегирует все HTTP-handlers сервиса.
type Handlers struct {
	Checkout  *CheckoutHandler
	Orders    *OrderHandler
	Cart      *CartHandler
	Products  *ProductHandler
	Discounts *DiscountHandler
	Inventory *InventoryHandler
	Health    *health.Handler
}

// NewRouter собирает gin-маршрутизатор сервиса.
func NewRouter(h Handlers, logger *log.Entry) *gin.Engine {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	if h.Health != nil {
		router.GET("/health", gin.WrapH(h.Health))
		router.GET("/health/live", gin.WrapF(health.Liveness))
		router.GET("/health/ready", gin.WrapF(h.Health.Readiness))
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		if h.Checkout != nil {
			v1.POST("/checkout/review", h.Checkout.Review)
			v1.POST("/checkout/order", h.Checkout.Place)
		}
		if h.Orders != nil {
			v1.GET("/orders", h.Orders.List)
			v1.GET("/orders/:id", h.Orders.Get)
			v1.GET("/orders/:id/timeline", h.Orders.Timeline)
			v1.PATCH("/orders/:id/cancel", h.Orders.Cancel)
			v1.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
		}
		if h.Cart != nil {
			v1.POST("/cart", h.Cart.Add)
			v1.PATCH("/cart", h.Cart.UpdateItem)
			v1.GET("/cart", h.Cart.Get)
		}
		if h.Products != nil {
			v1.POST("/products", h.Products.Create)
			v1.GET("/products/:id", h.Products.Get)
			v1.PATCH("/products/:id", h.Products.Update)
			v1.PATCH("/products/:id/publish", h.Products.Publish)
			v1.PATCH("/products/:id/unpublish", h.Products.Unpublish)
		}
		if h.Discounts != nil {
			v1.POST("/discounts", h.Discounts.Create)
			v1.POST("/discounts/amount", h.Discounts.Compute)
			v1.DELETE("/discounts/:code", h.Discounts.Delete)
		}
		if h.Inventory != nil {
			v1.POST("/inventory", h.Inventory.AddStock)
			v1.GET("/inventory/:productId", h.Inventory.Get)
		}
	}

	return router
}

// requestLogger пишет строку на каждый запрос. Метрики живут отдельно,
// поэтому здесь только структурный лог.
func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request handled")
	}
}
