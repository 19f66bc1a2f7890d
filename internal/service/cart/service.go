// Package cart управляет корзинами покупателей до оформления заказа.
package cart

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// Service реализует операции с корзиной поверх CartRepository.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис корзин.
func NewService(carts domain.CartRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// AddToCart кладёт товар в корзину пользователя. Первая покупка создаёт
// корзину; повторное добавление того же товара увеличивает количество.
// Цена позиции фиксируется каталожной на момент добавления.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int64) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	if quantity <= 0 {
		return domain.Cart{}, domain.ErrItemQtyInvalid
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		if !domain.IsNotFound(err) {
			return domain.Cart{}, err
		}
		// Корзины ещё нет: создаём с первой позицией.
		return s.carts.Upsert(ctx, domain.Cart{
			UserID: userID,
			State:  domain.CartStateActive,
			Items: []domain.CartItem{{
				ProductID:  product.ID,
				ShopID:     product.ShopID,
				Quantity:   quantity,
				PriceMinor: product.PriceMinor,
			}},
		})
	}

	if cart.FindItem(productID) != nil {
		return s.carts.IncrementItemQuantity(ctx, userID, productID, quantity)
	}

	cart.Items = append(cart.Items, domain.CartItem{
		ProductID:  product.ID,
		ShopID:     product.ShopID,
		Quantity:   quantity,
		PriceMinor: product.PriceMinor,
	})
	return s.carts.Upsert(ctx, cart)
}

// UpdateItemQuantity меняет количество позиции на delta; ноль и меньше
// убирает позицию из корзины.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID string, delta int64) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	return s.carts.IncrementItemQuantity(ctx, userID, productID, delta)
}

// RemoveItems удаляет перечисленные товары из корзины.
func (s *Service) RemoveItems(ctx context.Context, cartID string, productIDs []string) error {
	return s.carts.RemoveItems(ctx, cartID, productIDs)
}

// GetCart возвращает корзину пользователя.
func (s *Service) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	return s.carts.GetByUser(ctx, userID)
}
