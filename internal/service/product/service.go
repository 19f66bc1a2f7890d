// Package product управляет каталогом товаров магазинов. Вариативные
// атрибуты типов обрабатываются через реестр обработчиков по тегу типа.
package product

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// Service реализует операции каталога.
type Service struct {
	products domain.ProductRepository
	registry Registry
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт сервис каталога с переданным реестром типов.
func NewService(products domain.ProductRepository, registry Registry, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "product")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		products: products,
		registry: registry,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateProduct создаёт карточку товара. Новая карточка — черновик,
// в выдаче и оформлении не участвует до публикации.
func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ShopID == "" {
		return domain.Product{}, domain.ErrShopIDRequired
	}
	if p.Name == "" || p.PriceMinor <= 0 {
		return domain.Product{}, fmt.Errorf("%w: name and positive price are required", domain.ErrItemPriceInvalid)
	}
	handler, err := s.registry.Resolve(p.Type)
	if err != nil {
		return domain.Product{}, err
	}
	if err := handler.ValidateAttributes(p.Attributes); err != nil {
		return domain.Product{}, fmt.Errorf("%s attributes: %w", p.Type, err)
	}

	p.ID = uuid.NewString()
	p.IsDraft = true
	p.IsPublished = false
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt

	if err := s.products.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.logger.WithFields(log.Fields{
		"product_id": p.ID,
		"shop_id":    p.ShopID,
		"type":       string(p.Type),
	}).Info("product created")
	return p, nil
}

// UpdateProduct обновляет карточку товара магазина. Тип товара неизменен;
// ненулевые поля затирают существующие, атрибуты сливаются по ключам.
func (s *Service) UpdateProduct(ctx context.Context, shopID, productID string, updates domain.Product) (domain.Product, error) {
	existing, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if existing.ShopID != shopID {
		return domain.Product{}, domain.ErrProductNotFound
	}

	if updates.Name != "" {
		existing.Name = updates.Name
	}
	if updates.Description != "" {
		existing.Description = updates.Description
	}
	if updates.PriceMinor > 0 {
		existing.PriceMinor = updates.PriceMinor
	}
	if len(updates.Attributes) > 0 {
		if existing.Attributes == nil {
			existing.Attributes = make(map[string]interface{}, len(updates.Attributes))
		}
		for k, v := range updates.Attributes {
			existing.Attributes[k] = v
		}
	}

	handler, err := s.registry.Resolve(existing.Type)
	if err != nil {
		return domain.Product{}, err
	}
	if err := handler.ValidateAttributes(existing.Attributes); err != nil {
		return domain.Product{}, fmt.Errorf("%s attributes: %w", existing.Type, err)
	}

	existing.UpdatedAt = s.now()
	if err := s.products.Update(ctx, existing); err != nil {
		return domain.Product{}, err
	}
	return existing, nil
}

// PublishProduct делает товар видимым для покупателей и оформления.
func (s *Service) PublishProduct(ctx context.Context, shopID, productID string) error {
	return s.products.SetPublished(ctx, shopID, productID, true)
}

// UnpublishProduct возвращает товар в черновики.
func (s *Service) UnpublishProduct(ctx context.Context, shopID, productID string) error {
	return s.products.SetPublished(ctx, shopID, productID, false)
}

// GetProduct возвращает карточку товара.
func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, domain.ErrProductIDRequired
	}
	return s.products.Get(ctx, productID)
}
