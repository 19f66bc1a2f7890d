package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/lock"
	"github.com/vladislavdragonenkov/ecom/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ecom/internal/service/discount"
	"github.com/vladislavdragonenkov/ecom/internal/service/reservation"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
)

type fixture struct {
	orchestrator *Orchestrator
	orders       domain.OrderRepository
	carts        domain.CartRepository
	products     domain.ProductRepository
	inventory    domain.InventoryRepository
	discounts    *discount.Service
	outbox       domain.OutboxRepository
	timeline     domain.TimelineRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	entry := logger.WithField("component", "checkout-test")

	orders := memory.NewOrderRepository()
	carts := memory.NewCartRepository()
	products := memory.NewProductRepository()
	inventory := memory.NewInventoryRepository()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	discounts := discount.NewService(memory.NewDiscountRepository(), entry)
	reserver := reservation.NewEngine(inventory, lock.NewMemoryProvider(), reservation.DefaultConfig(), entry)

	return &fixture{
		orchestrator: NewOrchestrator(orders, carts, products, discounts, reserver, outbox, timeline, entry),
		orders:       orders,
		carts:        carts,
		products:     products,
		inventory:    inventory,
		discounts:    discounts,
		outbox:       outbox,
		timeline:     timeline,
	}
}

func (f *fixture) seedProduct(t *testing.T, id, shopID string, priceMinor, stock int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.products.Create(ctx, domain.Product{
		ID:          id,
		ShopID:      shopID,
		Name:        "product " + id,
		Type:        domain.ProductTypeElectronics,
		PriceMinor:  priceMinor,
		Quantity:    stock,
		IsPublished: true,
	}))
	_, err := f.inventory.AddStock(ctx, id, shopID, stock, "warehouse-a")
	require.NoError(t, err)
}

func (f *fixture) seedCart(t *testing.T, userID string, items ...domain.CartItem) domain.Cart {
	t.Helper()
	cart, err := f.carts.Upsert(context.Background(), domain.Cart{
		UserID: userID,
		State:  domain.CartStateActive,
		Items:  items,
	})
	require.NoError(t, err)
	return cart
}

func TestReviewCheckout_RepricesAndSums(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 10)
	f.seedProduct(t, "p-2", "shop-1", 2500, 10)
	f.seedProduct(t, "p-3", "shop-2", 400, 10)
	cart := f.seedCart(t, "user-1",
		domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 2, PriceMinor: 1},
		domain.CartItem{ProductID: "p-2", ShopID: "shop-1", Quantity: 1, PriceMinor: 1},
		domain.CartItem{ProductID: "p-3", ShopID: "shop-2", Quantity: 3, PriceMinor: 1},
	)

	review, err := f.orchestrator.ReviewCheckout(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{
			{ProductID: "p-1", Quantity: 2, PriceMinor: 1}, // клиентская цена игнорируется
			{ProductID: "p-2", Quantity: 1},
		}},
		{ShopID: "shop-2", Items: []ItemInput{
			{ProductID: "p-3", Quantity: 3},
		}},
	})
	require.NoError(t, err)

	require.Len(t, review.Groups, 2)
	assert.Equal(t, int64(4500), review.Groups[0].PriceRawMinor, "server prices, not client prices")
	assert.Equal(t, int64(1200), review.Groups[1].PriceRawMinor)
	assert.Equal(t, int64(5700), review.Totals.TotalPriceMinor, "totals sum across groups")
	assert.Equal(t, int64(5700), review.Totals.TotalCheckoutMinor)
	assert.Equal(t, int64(0), review.Totals.TotalDiscountMinor)

	// Review ничего не меняет.
	inv, err := f.inventory.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), inv.Stock)
}

func TestReviewCheckout_AppliesDiscountPerGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 10)
	f.seedProduct(t, "p-2", "shop-2", 1000, 10)
	cart := f.seedCart(t, "user-1",
		domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 2},
		domain.CartItem{ProductID: "p-2", ShopID: "shop-2", Quantity: 1},
	)
	_, err := f.discounts.CreateDiscount(ctx, domain.Discount{
		ShopID: "shop-1", Code: "TEN", Type: domain.DiscountTypePercentage, Value: 10,
		IsActive: true, MaxUses: 5,
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	review, err := f.orchestrator.ReviewCheckout(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", DiscountCodes: []string{"TEN"}, Items: []ItemInput{{ProductID: "p-1", Quantity: 2}}},
		{ShopID: "shop-2", Items: []ItemInput{{ProductID: "p-2", Quantity: 1}}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2000), review.Groups[0].PriceRawMinor)
	assert.Equal(t, int64(1800), review.Groups[0].PriceAppliedMinor)
	assert.Equal(t, int64(200), review.Totals.TotalDiscountMinor)
	assert.Equal(t, int64(3000), review.Totals.TotalPriceMinor)
	assert.Equal(t, int64(2800), review.Totals.TotalCheckoutMinor)
}

func TestReviewCheckout_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 10)
	cart := f.seedCart(t, "user-1", domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 1})

	// Чужая корзина.
	_, err := f.orchestrator.ReviewCheckout(ctx, "user-2", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{{ProductID: "p-1", Quantity: 1}}},
	})
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	// Несуществующий товар.
	_, err = f.orchestrator.ReviewCheckout(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{{ProductID: "ghost", Quantity: 1}}},
	})
	assert.ErrorIs(t, err, domain.ErrOrderGroupInvalid)

	// Товар чужого магазина.
	_, err = f.orchestrator.ReviewCheckout(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-2", Items: []ItemInput{{ProductID: "p-1", Quantity: 1}}},
	})
	assert.ErrorIs(t, err, domain.ErrOrderGroupInvalid)

	// Пустая группа.
	_, err = f.orchestrator.ReviewCheckout(ctx, "user-1", cart.ID, []GroupInput{{ShopID: "shop-1"}})
	assert.ErrorIs(t, err, domain.ErrOrderGroupInvalid)
}

func TestPlaceOrder_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 5)
	f.seedProduct(t, "p-2", "shop-1", 500, 5)
	cart := f.seedCart(t, "user-1",
		domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 2},
		domain.CartItem{ProductID: "p-2", ShopID: "shop-1", Quantity: 1},
	)

	order, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{
			{ProductID: "p-1", Quantity: 2},
			{ProductID: "p-2", Quantity: 1},
		}},
	}, domain.ShippingInfo{City: "Moscow"}, domain.PaymentInfo{Method: "card"})
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.NotEmpty(t, order.TrackingNumber)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(2500), order.Checkout.TotalCheckoutMinor)
	assert.Empty(t, order.ValidateInvariants())

	// Сток списан ровно один раз на позицию.
	inv1, _ := f.inventory.Get(ctx, "p-1")
	inv2, _ := f.inventory.Get(ctx, "p-2")
	assert.Equal(t, int64(3), inv1.Stock)
	assert.Equal(t, int64(4), inv2.Stock)

	// Заказ сохранён и виден в выдаче пользователя.
	saved, err := f.orchestrator.GetOrder(ctx, order.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, saved.ID)

	list, err := f.orchestrator.GetOrders(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Событие оформления встало в outbox.
	pending, err := f.outbox.PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "OrderPlaced", pending[0].EventType)
	assert.Equal(t, order.ID, pending[0].AggregateID)

	// Оформленные позиции удалены из корзины.
	got, err := f.carts.GetActive(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestPlaceOrder_DeclineCompensatesReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-ok", "shop-1", 1000, 10)
	f.seedProduct(t, "p-short", "shop-1", 1000, 1)
	cart := f.seedCart(t, "user-1",
		domain.CartItem{ProductID: "p-ok", ShopID: "shop-1", Quantity: 2},
		domain.CartItem{ProductID: "p-short", ShopID: "shop-1", Quantity: 5},
	)

	_, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{
			{ProductID: "p-ok", Quantity: 2},
			{ProductID: "p-short", Quantity: 5},
		}},
	}, domain.ShippingInfo{}, domain.PaymentInfo{})
	require.ErrorIs(t, err, domain.ErrItemsUnavailable)

	// Успевший резерв по p-ok откатился.
	invOK, _ := f.inventory.Get(ctx, "p-ok")
	invShort, _ := f.inventory.Get(ctx, "p-short")
	assert.Equal(t, int64(10), invOK.Stock, "committed reservation must be compensated")
	assert.Equal(t, int64(1), invShort.Stock)
	assert.Empty(t, invOK.Reservations)

	// Заказ не создан.
	list, err := f.orchestrator.GetOrders(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// expectKafkaEvent добавляет ожидание публикации с проверкой event_type.
func expectKafkaEvent(t *testing.T, mock *mocks.SyncProducer, want string) {
	t.Helper()
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(raw []byte) error {
		var event struct {
			EventType string `json:"event_type"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			return err
		}
		if event.EventType != want {
			return fmt.Errorf("event_type %q, want %q", event.EventType, want)
		}
		return nil
	})
}

func TestPlaceOrder_DeclinePublishesCheckoutDeclined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mock := mocks.NewSyncProducer(t, nil)
	f.orchestrator = f.orchestrator.WithKafka(kafka.NewProducerWith(mock, "checkout-test"))

	f.seedProduct(t, "p-ok", "shop-1", 1000, 10)
	f.seedProduct(t, "p-short", "shop-1", 1000, 1)
	cart := f.seedCart(t, "user-1",
		domain.CartItem{ProductID: "p-ok", ShopID: "shop-1", Quantity: 2},
		domain.CartItem{ProductID: "p-short", ShopID: "shop-1", Quantity: 5},
	)

	// Резерв p-ok, его компенсация после отказа p-short, затем сам отказ.
	expectKafkaEvent(t, mock, "stock.reserved")
	expectKafkaEvent(t, mock, "stock.released")
	expectKafkaEvent(t, mock, "checkout.declined")

	_, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{
			{ProductID: "p-ok", Quantity: 2},
			{ProductID: "p-short", Quantity: 5},
		}},
	}, domain.ShippingInfo{}, domain.PaymentInfo{})
	require.ErrorIs(t, err, domain.ErrItemsUnavailable)

	require.NoError(t, mock.Close(), "all expected events must be published")
}

func TestCancelOrder_PublishesRestockEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mock := mocks.NewSyncProducer(t, nil)
	f.orchestrator = f.orchestrator.WithKafka(kafka.NewProducerWith(mock, "checkout-test"))

	f.seedProduct(t, "p-1", "shop-1", 1000, 5)
	cart := f.seedCart(t, "user-1", domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 2})

	expectKafkaEvent(t, mock, "stock.reserved")
	expectKafkaEvent(t, mock, "order.placed")

	order, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{{ProductID: "p-1", Quantity: 2}}},
	}, domain.ShippingInfo{}, domain.PaymentInfo{})
	require.NoError(t, err)

	expectKafkaEvent(t, mock, "stock.released")
	expectKafkaEvent(t, mock, "order.cancelled")

	_, err = f.orchestrator.CancelOrder(ctx, order.ID, "user-1")
	require.NoError(t, err)

	require.NoError(t, mock.Close(), "all expected events must be published")
}

func TestPlaceOrder_RecordsDiscountUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 5)
	cart := f.seedCart(t, "user-1", domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 1})
	_, err := f.discounts.CreateDiscount(ctx, domain.Discount{
		ShopID: "shop-1", Code: "ONCE", Type: domain.DiscountTypeFixedAmount, Value: 100,
		IsActive: true, MaxUses: 1, MaxUsesPerUser: 1,
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	order, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", DiscountCodes: []string{"ONCE"}, Items: []ItemInput{{ProductID: "p-1", Quantity: 1}}},
	}, domain.ShippingInfo{}, domain.PaymentInfo{})
	require.NoError(t, err)
	assert.Equal(t, int64(900), order.Checkout.TotalCheckoutMinor)

	// Код исчерпан после применения.
	_, err = f.discounts.ComputeDiscount(ctx, "ONCE", "user-1", "shop-1", []domain.PricedItem{
		{ProductID: "p-1", Quantity: 1, PriceMinor: 1000},
	})
	assert.ErrorIs(t, err, domain.ErrDiscountExhausted)
}

func TestCancelOrder_PendingOnlyAndRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 5)
	cart := f.seedCart(t, "user-1", domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 2})

	order, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{{ProductID: "p-1", Quantity: 2}}},
	}, domain.ShippingInfo{}, domain.PaymentInfo{})
	require.NoError(t, err)

	inv, _ := f.inventory.Get(ctx, "p-1")
	require.Equal(t, int64(3), inv.Stock)

	cancelled, err := f.orchestrator.CancelOrder(ctx, order.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	// Сток вернулся.
	inv, _ = f.inventory.Get(ctx, "p-1")
	assert.Equal(t, int64(5), inv.Stock)

	// Повторная отмена — уже не pending.
	_, err = f.orchestrator.CancelOrder(ctx, order.ID, "user-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelOrder_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 5)
	cart := f.seedCart(t, "user-1", domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 1})
	order, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{{ProductID: "p-1", Quantity: 1}}},
	}, domain.ShippingInfo{}, domain.PaymentInfo{})
	require.NoError(t, err)

	_, err = f.orchestrator.CancelOrder(ctx, order.ID, "user-2")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateOrderStatus_ForwardOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 5)
	cart := f.seedCart(t, "user-1", domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 1})
	order, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{{ProductID: "p-1", Quantity: 1}}},
	}, domain.ShippingInfo{}, domain.PaymentInfo{})
	require.NoError(t, err)

	// Скачок через статус запрещён.
	_, err = f.orchestrator.UpdateOrderStatus(ctx, order.ID, "shop-1", domain.OrderStatusShipped)
	assert.ErrorIs(t, err, domain.ErrOrderTransitionInvalid)

	updated, err := f.orchestrator.UpdateOrderStatus(ctx, order.ID, "shop-1", domain.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)

	updated, err = f.orchestrator.UpdateOrderStatus(ctx, order.ID, "shop-1", domain.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)

	// Назад пути нет.
	_, err = f.orchestrator.UpdateOrderStatus(ctx, order.ID, "shop-1", domain.OrderStatusPending)
	assert.ErrorIs(t, err, domain.ErrOrderTransitionInvalid)

	// Чужой магазин не видит заказ.
	_, err = f.orchestrator.UpdateOrderStatus(ctx, order.ID, "shop-2", domain.OrderStatusDelivered)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// Отмена магазином после подтверждения запрещена.
	_, err = f.orchestrator.UpdateOrderStatus(ctx, order.ID, "shop-1", domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrOrderTransitionInvalid)
}

func TestUpdateOrderStatus_EmitsTimeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "p-1", "shop-1", 1000, 5)
	cart := f.seedCart(t, "user-1", domain.CartItem{ProductID: "p-1", ShopID: "shop-1", Quantity: 1})
	order, err := f.orchestrator.PlaceOrder(ctx, "user-1", cart.ID, []GroupInput{
		{ShopID: "shop-1", Items: []ItemInput{{ProductID: "p-1", Quantity: 1}}},
	}, domain.ShippingInfo{}, domain.PaymentInfo{})
	require.NoError(t, err)

	_, err = f.orchestrator.UpdateOrderStatus(ctx, order.ID, "shop-1", domain.OrderStatusConfirmed)
	require.NoError(t, err)

	events, err := f.timeline.List(ctx, order.ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	var sawStatusChange bool
	for _, e := range events {
		if e.Kind == "OrderStatusChanged" {
			sawStatusChange = true
		}
	}
	assert.True(t, sawStatusChange, "timeline must record status changes")
}
