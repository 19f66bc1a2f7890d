// Package discount реализует управление кодами скидок магазинов
// и расчёт суммы скидки при оформлении заказа.
package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// Service управляет кодами скидок одного магазина.
type Service struct {
	discounts domain.DiscountRepository
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт сервис скидок.
func NewService(discounts domain.DiscountRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "discount")
	}
	return &Service{
		discounts: discounts,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateDiscount регистрирует новый код скидки магазина.
func (s *Service) CreateDiscount(ctx context.Context, d domain.Discount) (domain.Discount, error) {
	if d.ShopID == "" {
		return domain.Discount{}, domain.ErrShopIDRequired
	}
	if d.Code == "" || d.Value <= 0 {
		return domain.Discount{}, fmt.Errorf("%w: code and positive value are required", domain.ErrDiscountInactive)
	}
	switch d.Type {
	case domain.DiscountTypeFixedAmount, domain.DiscountTypePercentage:
	default:
		return domain.Discount{}, fmt.Errorf("unsupported discount type %q", d.Type)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.AppliesTo == "" {
		d.AppliesTo = "all"
	}
	d.CreatedAt = s.now()
	d.UpdatedAt = d.CreatedAt

	if err := s.discounts.Create(ctx, d); err != nil {
		return domain.Discount{}, err
	}
	s.logger.WithFields(log.Fields{
		"shop_id": d.ShopID,
		"code":    d.Code,
	}).Info("discount created")
	return d, nil
}

// DeleteDiscount удаляет код скидки магазина.
func (s *Service) DeleteDiscount(ctx context.Context, shopID, code string) error {
	if shopID == "" {
		return domain.ErrShopIDRequired
	}
	return s.discounts.Delete(ctx, shopID, code)
}

// ComputeDiscount проверяет применимость кода и считает сумму скидки
// для набора позиций одного магазина. Итог к оплате никогда не уходит
// ниже нуля.
func (s *Service) ComputeDiscount(ctx context.Context, code, userID, shopID string, items []domain.PricedItem) (domain.DiscountAmount, error) {
	d, err := s.discounts.GetByCode(ctx, shopID, code)
	if err != nil {
		return domain.DiscountAmount{}, err
	}

	if !d.IsActive {
		return domain.DiscountAmount{}, domain.ErrDiscountInactive
	}
	if d.MaxUses <= 0 {
		return domain.DiscountAmount{}, domain.ErrDiscountExhausted
	}
	now := s.now()
	if now.Before(d.StartDate) || now.After(d.EndDate) {
		return domain.DiscountAmount{}, domain.ErrDiscountExpired
	}

	var totalOrder int64
	for _, item := range items {
		if item.Quantity <= 0 {
			return domain.DiscountAmount{}, domain.ErrItemQtyInvalid
		}
		totalOrder += item.PriceMinor * item.Quantity
	}

	if d.MinOrderValueMinor > 0 && totalOrder < d.MinOrderValueMinor {
		return domain.DiscountAmount{}, domain.ErrDiscountMinOrder
	}

	if d.MaxUsesPerUser > 0 {
		var used int64
		for _, u := range d.UsersUsed {
			if u == userID {
				used++
			}
		}
		if used >= d.MaxUsesPerUser {
			return domain.DiscountAmount{}, domain.ErrDiscountExhausted
		}
	}

	var amount int64
	switch d.Type {
	case domain.DiscountTypeFixedAmount:
		amount = d.Value
	case domain.DiscountTypePercentage:
		amount = totalOrder * d.Value / 100
	default:
		return domain.DiscountAmount{}, fmt.Errorf("unsupported discount type %q", d.Type)
	}

	totalPrice := totalOrder - amount
	if totalPrice < 0 {
		// Скидка не может превышать сумму заказа.
		amount = totalOrder
		totalPrice = 0
	}

	return domain.DiscountAmount{
		TotalOrderMinor: totalOrder,
		DiscountMinor:   amount,
		TotalPriceMinor: totalPrice,
	}, nil
}

// RecordUse фиксирует фактическое применение кода после создания заказа.
func (s *Service) RecordUse(ctx context.Context, shopID, code, userID string) error {
	d, err := s.discounts.GetByCode(ctx, shopID, code)
	if err != nil {
		return err
	}
	return s.discounts.RecordUse(ctx, d.ID, userID)
}

var _ domain.DiscountCalculator = (*Service)(nil)
