// Package checkout оформляет заказы: серверная переоценка позиций,
// расчёт скидок, резервирование стока с компенсацией и создание заказа.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ecom/internal/metrics"
)

// ItemInput — позиция группы в запросе оформления. Клиентская цена
// принимается, но игнорируется: действительна только цена каталога.
type ItemInput struct {
	ProductID  string
	Quantity   int64
	PriceMinor int64
}

// GroupInput — группа позиций одного магазина с его кодами скидок.
type GroupInput struct {
	ShopID        string
	DiscountCodes []string
	Items         []ItemInput
}

// Review — результат предпросмотра оформления.
type Review struct {
	Groups []domain.OrderGroup
	Totals domain.CheckoutTotals
}

// DiscountService — контракт сервиса скидок, нужный оформлению.
type DiscountService interface {
	domain.DiscountCalculator
	// RecordUse фиксирует применение кода после создания заказа.
	RecordUse(ctx context.Context, shopID, code, userID string) error
}

// Orchestrator управляет полным циклом оформления заказа.
type Orchestrator struct {
	orders    domain.OrderRepository
	carts     domain.CartRepository
	products  domain.ProductRepository
	discounts DiscountService
	reserver  domain.StockReserver
	outbox    domain.OutboxRepository
	timeline  domain.TimelineRepository
	logger    *log.Entry
	metrics   *metrics.CheckoutMetrics
	producer  *kafka.Producer // опциональный Kafka producer
	now       func() time.Time
}

// NewOrchestrator создаёт оркестратор оформления.
func NewOrchestrator(
	orders domain.OrderRepository,
	carts domain.CartRepository,
	products domain.ProductRepository,
	discounts DiscountService,
	reserver domain.StockReserver,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Orchestrator{
		orders:    orders,
		carts:     carts,
		products:  products,
		discounts: discounts,
		reserver:  reserver,
		outbox:    outbox,
		timeline:  timeline,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics подключает метрики.
func (o *Orchestrator) WithMetrics(m *metrics.CheckoutMetrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithKafka подключает публикацию событий заказов в Kafka.
func (o *Orchestrator) WithKafka(producer *kafka.Producer) *Orchestrator {
	o.producer = producer
	return o
}

// ReviewCheckout пересчитывает группы заказа серверными ценами и скидками.
// Операция только читает: ни сток, ни корзина не меняются.
func (o *Orchestrator) ReviewCheckout(ctx context.Context, userID, cartID string, groups []GroupInput) (Review, error) {
	if userID == "" {
		return Review{}, domain.ErrUserRequired
	}
	if len(groups) == 0 {
		return Review{}, domain.ErrItemsRequired
	}

	cart, err := o.carts.GetActive(ctx, cartID)
	if err != nil {
		return Review{}, err
	}
	if cart.UserID != userID {
		// Чужая корзина неотличима от отсутствующей.
		return Review{}, domain.ErrCartNotFound
	}

	review := Review{Groups: make([]domain.OrderGroup, 0, len(groups))}
	for i, group := range groups {
		priced, err := o.resolveGroup(ctx, i, group)
		if err != nil {
			return Review{}, err
		}

		orderGroup := domain.OrderGroup{ShopID: group.ShopID}
		var raw int64
		for _, item := range priced {
			raw += item.PriceMinor * item.Quantity
			orderGroup.Items = append(orderGroup.Items, domain.OrderItem{
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				PriceMinor: item.PriceMinor,
			})
		}
		orderGroup.PriceRawMinor = raw
		orderGroup.PriceAppliedMinor = raw

		// По соглашению применяется первый код группы.
		if len(group.DiscountCodes) > 0 && group.DiscountCodes[0] != "" {
			code := group.DiscountCodes[0]
			amount, err := o.discounts.ComputeDiscount(ctx, code, userID, group.ShopID, priced)
			if err != nil {
				return Review{}, fmt.Errorf("discount %q for shop %s: %w", code, group.ShopID, err)
			}
			orderGroup.Discounts = append(orderGroup.Discounts, domain.AppliedDiscount{
				ShopID: group.ShopID,
				Code:   code,
			})
			orderGroup.PriceAppliedMinor = amount.TotalPriceMinor
			review.Totals.TotalDiscountMinor += amount.DiscountMinor
		}

		review.Totals.TotalPriceMinor += orderGroup.PriceRawMinor
		review.Totals.TotalCheckoutMinor += orderGroup.PriceAppliedMinor
		review.Groups = append(review.Groups, orderGroup)
	}

	return review, nil
}

// resolveGroup проверяет группу и возвращает позиции с ценами каталога.
func (o *Orchestrator) resolveGroup(ctx context.Context, index int, group GroupInput) ([]domain.PricedItem, error) {
	if group.ShopID == "" {
		return nil, fmt.Errorf("%w: group %d has no shop", domain.ErrOrderGroupInvalid, index)
	}
	if len(group.Items) == 0 {
		return nil, fmt.Errorf("%w: group %d has no items", domain.ErrOrderGroupInvalid, index)
	}

	priced := make([]domain.PricedItem, 0, len(group.Items))
	for _, item := range group.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: group %d product %s", domain.ErrItemQtyInvalid, index, item.ProductID)
		}
		product, err := o.products.Get(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: group %d product %s is not available", domain.ErrOrderGroupInvalid, index, item.ProductID)
		}
		if product.ShopID != group.ShopID || !product.IsPublished {
			return nil, fmt.Errorf("%w: group %d product %s is not available", domain.ErrOrderGroupInvalid, index, item.ProductID)
		}
		priced = append(priced, domain.PricedItem{
			ProductID:  product.ID,
			Quantity:   item.Quantity,
			PriceMinor: product.PriceMinor,
		})
	}
	return priced, nil
}

// PlaceOrder оформляет заказ: повторяет review, резервирует сток по каждой
// позиции и создаёт заказ в статусе pending. Любой отказ резервирования
// откатывает уже сделанные резервы и возвращает ErrItemsUnavailable.
func (o *Orchestrator) PlaceOrder(ctx context.Context, userID, cartID string, groups []GroupInput, shipping domain.ShippingInfo, payment domain.PaymentInfo) (domain.Order, error) {
	start := o.now()
	if o.metrics != nil {
		o.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordCheckoutFinished()
			o.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	review, err := o.ReviewCheckout(ctx, userID, cartID, groups)
	if err != nil {
		return domain.Order{}, err
	}

	reserved, err := o.reserveAll(ctx, cartID, review.Groups)
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordCheckoutDeclined()
		}
		if errors.Is(err, domain.ErrItemsUnavailable) {
			o.publishCheckoutDeclined(userID, cartID)
		}
		return domain.Order{}, err
	}

	now := o.now()
	order := domain.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		CartID:         cartID,
		Checkout:       review.Totals,
		Shipping:       shipping,
		Payment:        payment,
		Groups:         review.Groups,
		TrackingNumber: uuid.NewString(),
		Status:         domain.OrderStatusPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := o.orders.Create(ctx, order); err != nil {
		// Заказ не создан: возвращаем сток.
		o.releaseReserved(ctx, cartID, reserved)
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	o.recordDiscountUses(ctx, &order)
	o.emitEvent(ctx, &order, "OrderPlaced", map[string]interface{}{
		"status":         string(order.Status),
		"total_checkout": order.Checkout.TotalCheckoutMinor,
		"ts":             now.Format(time.RFC3339Nano),
	})
	o.publishOrderEvent(kafka.EventTypeOrderPlaced, &order, nil)

	// Убираем оформленные товары из корзины; неудача не отменяет заказ.
	o.pruneCart(ctx, cartID, reserved)

	if o.metrics != nil {
		o.metrics.RecordOrderPlaced()
	}
	o.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"groups":   len(order.Groups),
	}).Info("order placed")
	return order, nil
}

// reservedItem — успешно зарезервированная позиция, кандидат на компенсацию.
type reservedItem struct {
	productID string
	quantity  int64
}

// reserveAll резервирует позиции последовательно. Первый отказ откатывает
// все уже сделанные резервы и возвращает ErrItemsUnavailable.
func (o *Orchestrator) reserveAll(ctx context.Context, cartID string, groups []domain.OrderGroup) ([]reservedItem, error) {
	var reserved []reservedItem
	for _, group := range groups {
		for _, item := range group.Items {
			outcome, err := o.reserver.Reserve(ctx, item.ProductID, item.Quantity, cartID)
			if err != nil {
				o.releaseReserved(ctx, cartID, reserved)
				return nil, fmt.Errorf("reserve %s: %w", item.ProductID, err)
			}
			if !outcome.Committed {
				o.logger.WithFields(log.Fields{
					"cart_id":    cartID,
					"product_id": item.ProductID,
					"reason":     string(outcome.Reason),
				}).Warn("checkout declined by reservation")
				o.releaseReserved(ctx, cartID, reserved)
				return nil, domain.ErrItemsUnavailable
			}
			reserved = append(reserved, reservedItem{productID: item.ProductID, quantity: item.Quantity})
			o.publishInventoryEvent(kafka.EventTypeStockReserved, item.ProductID, cartID, item.Quantity)
		}
	}
	return reserved, nil
}

// releaseReserved компенсирует зарезервированные позиции в обратном порядке.
func (o *Orchestrator) releaseReserved(ctx context.Context, cartID string, reserved []reservedItem) {
	for i := len(reserved) - 1; i >= 0; i-- {
		item := reserved[i]
		if err := o.reserver.Release(ctx, item.productID, item.quantity, cartID); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"cart_id":    cartID,
				"product_id": item.productID,
			}).Error("compensation release failed")
			continue
		}
		o.publishInventoryEvent(kafka.EventTypeStockReleased, item.productID, cartID, item.quantity)
	}
}

// recordDiscountUses списывает применения кодов скидок; неудача логируется.
func (o *Orchestrator) recordDiscountUses(ctx context.Context, order *domain.Order) {
	for _, group := range order.Groups {
		for _, d := range group.Discounts {
			if err := o.discounts.RecordUse(ctx, d.ShopID, d.Code, order.UserID); err != nil {
				o.logger.WithError(err).WithFields(log.Fields{
					"order_id": order.ID,
					"shop_id":  d.ShopID,
					"code":     d.Code,
				}).Warn("record discount use failed")
			}
		}
	}
}

// pruneCart убирает оформленные товары из корзины (best-effort).
func (o *Orchestrator) pruneCart(ctx context.Context, cartID string, reserved []reservedItem) {
	ids := make([]string, 0, len(reserved))
	for _, item := range reserved {
		ids = append(ids, item.productID)
	}
	if err := o.carts.RemoveItems(ctx, cartID, ids); err != nil {
		o.logger.WithError(err).WithField("cart_id", cartID).Warn("prune cart failed")
	}
}

// GetOrders возвращает заказы покупателя, новые первыми.
func (o *Orchestrator) GetOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return o.orders.ListByUser(ctx, userID, limit)
}

// GetOrder возвращает заказ покупателя по идентификатору.
func (o *Orchestrator) GetOrder(ctx context.Context, orderID, userID string) (domain.Order, error) {
	order, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// CancelOrder отменяет заказ покупателя. Допустимо только из pending;
// зарезервированный сток возвращается на склад.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderID, userID string) (domain.Order, error) {
	order, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID || order.Status != domain.OrderStatusPending {
		// Не-pending заказ для отмены ведёт себя как отсутствующий.
		return domain.Order{}, domain.ErrOrderNotFound
	}

	if err := o.updateStatus(ctx, &order, domain.OrderStatusCancelled); err != nil {
		return domain.Order{}, err
	}

	// Возвращаем сток по каждой позиции; неудача логируется.
	releaseScope := order.CartID
	if releaseScope == "" {
		releaseScope = order.ID
	}
	for _, group := range order.Groups {
		for _, item := range group.Items {
			if err := o.reserver.Release(ctx, item.ProductID, item.Quantity, releaseScope); err != nil {
				o.logger.WithError(err).WithFields(log.Fields{
					"order_id":   order.ID,
					"product_id": item.ProductID,
				}).Warn("restock on cancel failed")
				continue
			}
			o.publishInventoryEvent(kafka.EventTypeStockReleased, item.ProductID, releaseScope, item.Quantity)
		}
	}

	o.publishOrderEvent(kafka.EventTypeOrderCancelled, &order, map[string]interface{}{
		"cancelled_by": "user",
	})
	if o.metrics != nil {
		o.metrics.RecordOrderCancelled()
	}
	o.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
	}).Info("order cancelled")
	return order, nil
}

// UpdateOrderStatus выполняет переход статуса со стороны магазина.
// Переходы строго по порядку жизненного цикла.
func (o *Orchestrator) UpdateOrderStatus(ctx context.Context, orderID, shopID string, next domain.OrderStatus) (domain.Order, error) {
	if !next.Valid() {
		return domain.Order{}, domain.ErrOrderTransitionInvalid
	}

	order, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.BelongsToShop(shopID) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(next) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrOrderTransitionInvalid, order.Status, next)
	}

	if err := o.updateStatus(ctx, &order, next); err != nil {
		return domain.Order{}, err
	}

	o.publishOrderEvent(eventTypeForStatus(next), &order, map[string]interface{}{
		"shop_id": shopID,
	})
	return order, nil
}

func eventTypeForStatus(status domain.OrderStatus) kafka.EventType {
	switch status {
	case domain.OrderStatusConfirmed:
		return kafka.EventTypeOrderConfirmed
	case domain.OrderStatusShipped:
		return kafka.EventTypeOrderShipped
	case domain.OrderStatusDelivered:
		return kafka.EventTypeOrderDelivered
	case domain.OrderStatusCancelled:
		return kafka.EventTypeOrderCancelled
	default:
		return kafka.EventTypeOrderPlaced
	}
}

// updateStatus меняет статус заказа с retry при version conflict.
func (o *Orchestrator) updateStatus(ctx context.Context, order *domain.Order, next domain.OrderStatus) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		previous := order.Status
		order.Status = next
		order.UpdatedAt = o.now()
		prevVersion := order.Version

		if err := o.orders.Save(ctx, *order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				o.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
					"version":  order.Version,
				}).Warn("version conflict detected, retrying")

				fresh, loadErr := o.orders.Get(ctx, order.ID)
				if loadErr != nil {
					order.Status = previous
					return loadErr
				}
				if !fresh.Status.CanTransitionTo(next) {
					order.Status = previous
					return fmt.Errorf("%w: %s -> %s", domain.ErrOrderTransitionInvalid, fresh.Status, next)
				}
				*order = fresh

				delay := baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			order.Status = previous
			return err
		}

		order.Version = prevVersion + 1
		o.emitEvent(ctx, order, "OrderStatusChanged", map[string]interface{}{
			"status":     string(order.Status),
			"updated_at": order.UpdatedAt.Format(time.RFC3339Nano),
			"ts":         order.UpdatedAt.Format(time.RFC3339Nano),
		})
		return nil
	}

	return domain.ErrOrderVersionConflict
}

// emitEvent записывает событие в outbox и timeline.
func (o *Orchestrator) emitEvent(ctx context.Context, order *domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := o.outbox.Enqueue(ctx, msg); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if o.metrics != nil {
		o.metrics.RecordOutboxEvent()
	}

	if o.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderID:    order.ID,
		Kind:       eventType,
		OccurredAt: o.now(),
	}
	if reason, ok := payload["reason"].(string); ok {
		event.Note = reason
	}
	if err := o.timeline.Append(ctx, event); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Warn("append timeline event failed")
	} else if o.metrics != nil {
		o.metrics.RecordTimelineEvent()
	}
}

// publishOrderEvent публикует событие заказа в Kafka (если producer настроен).
func (o *Orchestrator) publishOrderEvent(eventType kafka.EventType, order *domain.Order, metadata map[string]interface{}) {
	if o.producer == nil {
		return
	}
	event := kafka.NewOrderEvent(eventType, order.ID, order.UserID, string(order.Status), metadata)
	if err := o.producer.PublishEvent(kafka.TopicOrderEvents, order.ID, event); err != nil {
		// Kafka опциональна: ошибка публикации не прерывает оформление.
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event to kafka")
	}
}

// publishCheckoutDeclined сообщает об отказе оформления: заказа ещё нет,
// ключом служит корзина.
func (o *Orchestrator) publishCheckoutDeclined(userID, cartID string) {
	if o.producer == nil {
		return
	}
	event := kafka.NewOrderEvent(kafka.EventTypeCheckoutDeclined, "", userID, "declined", map[string]interface{}{
		"cart_id": cartID,
	})
	if err := o.producer.PublishEvent(kafka.TopicOrderEvents, cartID, event); err != nil {
		o.logger.WithError(err).WithField("cart_id", cartID).
			Warn("failed to publish checkout declined event to kafka")
	}
}

// publishInventoryEvent публикует движение стока (если producer настроен).
func (o *Orchestrator) publishInventoryEvent(eventType kafka.EventType, productID, cartID string, quantity int64) {
	if o.producer == nil {
		return
	}
	event := kafka.NewInventoryEvent(eventType, productID, cartID, quantity)
	if err := o.producer.PublishEvent(kafka.TopicInventoryEvents, productID, event); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"product_id": productID,
		}).Warn("failed to publish inventory event to kafka")
	}
}
