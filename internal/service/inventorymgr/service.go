// Package inventorymgr управляет пополнением склада и чтением остатков.
package inventorymgr

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/messaging/kafka"
)

// Service пополняет склад и зеркалирует остаток в каталоге.
type Service struct {
	inventory domain.InventoryRepository
	products  domain.ProductRepository
	producer  *kafka.Producer // опциональный Kafka producer
	logger    *log.Entry
}

// NewService создаёт сервис склада.
func NewService(inventory domain.InventoryRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "inventory")
	}
	return &Service{
		inventory: inventory,
		products:  products,
		logger:    logger,
	}
}

// WithKafka подключает публикацию складских событий.
func (s *Service) WithKafka(producer *kafka.Producer) *Service {
	s.producer = producer
	return s
}

// AddStock пополняет складской остаток товара и зеркалирует изменение
// в каталожном количестве. Товар должен существовать и принадлежать магазину.
func (s *Service) AddStock(ctx context.Context, shopID, productID string, quantity int64, location string) (domain.Inventory, error) {
	if shopID == "" {
		return domain.Inventory{}, domain.ErrShopIDRequired
	}
	if productID == "" {
		return domain.Inventory{}, domain.ErrProductIDRequired
	}
	if quantity <= 0 {
		return domain.Inventory{}, domain.ErrItemQtyInvalid
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.Inventory{}, err
	}
	if product.ShopID != shopID {
		return domain.Inventory{}, domain.ErrProductNotFound
	}

	inv, err := s.inventory.AddStock(ctx, productID, shopID, quantity, location)
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("add stock for %s: %w", productID, err)
	}

	// Зеркало в каталоге; расхождение логируется, сток остаётся источником истины.
	if err := s.products.AdjustQuantity(ctx, productID, quantity); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
			"shop_id":    shopID,
		}).Warn("catalog quantity mirror failed")
	}

	if s.producer != nil {
		event := kafka.NewInventoryEvent(kafka.EventTypeStockAdded, productID, "", quantity)
		if err := s.producer.PublishEvent(kafka.TopicInventoryEvents, productID, event); err != nil {
			// Kafka опциональна: пополнение состоялось, ошибка только логируется.
			s.logger.WithError(err).WithField("product_id", productID).
				Warn("failed to publish stock added event to kafka")
		}
	}

	s.logger.WithFields(log.Fields{
		"product_id": productID,
		"shop_id":    shopID,
		"quantity":   quantity,
		"stock":      inv.Stock,
	}).Info("stock added")
	return inv, nil
}

// GetInventory возвращает складскую запись товара.
func (s *Service) GetInventory(ctx context.Context, productID string) (domain.Inventory, error) {
	if productID == "" {
		return domain.Inventory{}, domain.ErrProductIDRequired
	}
	return s.inventory.Get(ctx, productID)
}
