package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

const ordersCollection = "orders"

type orderItemDocument struct {
	ProductID  string `bson:"productId"`
	Quantity   int64  `bson:"quantity"`
	PriceMinor int64  `bson:"price"`
}

type appliedDiscountDocument struct {
	ShopID string `bson:"shopId"`
	Code   string `bson:"codeId"`
}

type orderGroupDocument struct {
	ShopID            string                    `bson:"shopId"`
	Discounts         []appliedDiscountDocument `bson:"shop_discounts"`
	PriceRawMinor     int64                     `bson:"priceRaw"`
	PriceAppliedMinor int64                     `bson:"priceApplied"`
	Items             []orderItemDocument       `bson:"item_products"`
}

type checkoutTotalsDocument struct {
	TotalPriceMinor    int64 `bson:"totalPrice"`
	FeeShipMinor       int64 `bson:"feeShip"`
	TotalDiscountMinor int64 `bson:"totalDiscount"`
	TotalCheckoutMinor int64 `bson:"totalCheckout"`
}

type shippingDocument struct {
	Street  string `bson:"street"`
	City    string `bson:"city"`
	State   string `bson:"state"`
	Country string `bson:"country"`
}

type paymentDocument struct {
	Method   string `bson:"method"`
	Provider string `bson:"provider"`
}

type orderDocument struct {
	ID             string                 `bson:"_id"`
	UserID         string                 `bson:"order_userId"`
	CartID         string                 `bson:"order_cartId"`
	Checkout       checkoutTotalsDocument `bson:"order_checkout"`
	Shipping       shippingDocument       `bson:"order_shipping"`
	Payment        paymentDocument        `bson:"order_payment"`
	Groups         []orderGroupDocument   `bson:"order_products"`
	TrackingNumber string                 `bson:"order_trackingNumber"`
	Status         string                 `bson:"order_status"`
	Version        int64                  `bson:"version"`
	CreatedAt      time.Time              `bson:"createdAt"`
	UpdatedAt      time.Time              `bson:"updatedAt"`
}

func toOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		ID:     order.ID,
		UserID: order.UserID,
		CartID: order.CartID,
		Checkout: checkoutTotalsDocument{
			TotalPriceMinor:    order.Checkout.TotalPriceMinor,
			FeeShipMinor:       order.Checkout.FeeShipMinor,
			TotalDiscountMinor: order.Checkout.TotalDiscountMinor,
			TotalCheckoutMinor: order.Checkout.TotalCheckoutMinor,
		},
		Shipping: shippingDocument{
			Street:  order.Shipping.Street,
			City:    order.Shipping.City,
			State:   order.Shipping.State,
			Country: order.Shipping.Country,
		},
		Payment: paymentDocument{
			Method:   order.Payment.Method,
			Provider: order.Payment.Provider,
		},
		TrackingNumber: order.TrackingNumber,
		Status:         string(order.Status),
		Version:        order.Version,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	for _, group := range order.Groups {
		groupDoc := orderGroupDocument{
			ShopID:            group.ShopID,
			PriceRawMinor:     group.PriceRawMinor,
			PriceAppliedMinor: group.PriceAppliedMinor,
		}
		for _, d := range group.Discounts {
			groupDoc.Discounts = append(groupDoc.Discounts, appliedDiscountDocument{ShopID: d.ShopID, Code: d.Code})
		}
		for _, item := range group.Items {
			groupDoc.Items = append(groupDoc.Items, orderItemDocument{
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				PriceMinor: item.PriceMinor,
			})
		}
		doc.Groups = append(doc.Groups, groupDoc)
	}
	return doc
}

func (d orderDocument) toDomain() domain.Order {
	order := domain.Order{
		ID:     d.ID,
		UserID: d.UserID,
		CartID: d.CartID,
		Checkout: domain.CheckoutTotals{
			TotalPriceMinor:    d.Checkout.TotalPriceMinor,
			FeeShipMinor:       d.Checkout.FeeShipMinor,
			TotalDiscountMinor: d.Checkout.TotalDiscountMinor,
			TotalCheckoutMinor: d.Checkout.TotalCheckoutMinor,
		},
		Shipping: domain.ShippingInfo{
			Street:  d.Shipping.Street,
			City:    d.Shipping.City,
			State:   d.Shipping.State,
			Country: d.Shipping.Country,
		},
		Payment: domain.PaymentInfo{
			Method:   d.Payment.Method,
			Provider: d.Payment.Provider,
		},
		TrackingNumber: d.TrackingNumber,
		Status:         domain.OrderStatus(d.Status),
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, groupDoc := range d.Groups {
		group := domain.OrderGroup{
			ShopID:            groupDoc.ShopID,
			PriceRawMinor:     groupDoc.PriceRawMinor,
			PriceAppliedMinor: groupDoc.PriceAppliedMinor,
		}
		for _, disc := range groupDoc.Discounts {
			group.Discounts = append(group.Discounts, domain.AppliedDiscount{ShopID: disc.ShopID, Code: disc.Code})
		}
		for _, item := range groupDoc.Items {
			group.Items = append(group.Items, domain.OrderItem{
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				PriceMinor: item.PriceMinor,
			})
		}
		order.Groups = append(order.Groups, group)
	}
	return order
}

// OrderRepository — реализация OrderRepository поверх MongoDB
// с optimistic locking по полю version.
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository возвращает документное хранилище заказов.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{collection: store.Collection(ordersCollection)}
}

// Create сохраняет новый заказ.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	_, err := r.collection.InsertOne(ctx, toOrderDocument(order))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// Get возвращает заказ по идентификатору.
func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	var doc orderDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return doc.toDomain(), nil
}

// ListByUser возвращает заказы покупателя, новые первыми.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"order_userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []domain.Order
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		orders = append(orders, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list orders cursor: %w", err)
	}
	return orders, nil
}

// Save применяет обновления с проверкой версии. Несовпадение версии —
// ErrOrderVersionConflict, отсутствующий заказ — ErrOrderNotFound.
func (r *OrderRepository) Save(ctx context.Context, order domain.Order) error {
	doc := toOrderDocument(order)
	doc.Version = order.Version + 1

	filter := bson.M{"_id": order.ID, "version": order.Version}
	result, err := r.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	if result.MatchedCount == 0 {
		// Отличаем устаревшую версию от отсутствующего заказа.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": order.ID})
		if countErr != nil {
			return fmt.Errorf("save order: %w", countErr)
		}
		if count == 0 {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}
	return nil
}

// CreateIndexes создаёт индексы коллекции заказов.
func (r *OrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "order_userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "order_status", Value: 1}},
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
