package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

const cartsCollection = "carts"

type cartItemDocument struct {
	ProductID  string `bson:"productId"`
	ShopID     string `bson:"shopId"`
	Quantity   int64  `bson:"quantity"`
	PriceMinor int64  `bson:"price"`
}

type cartDocument struct {
	ID        string             `bson:"_id"`
	UserID    string             `bson:"cart_userId"`
	State     string             `bson:"cart_state"`
	Items     []cartItemDocument `bson:"cart_products"`
	Count     int64              `bson:"cart_count_product"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func toCartDocument(cart domain.Cart) cartDocument {
	doc := cartDocument{
		ID:        cart.ID,
		UserID:    cart.UserID,
		State:     string(cart.State),
		Count:     cart.Count,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ProductID:  item.ProductID,
			ShopID:     item.ShopID,
			Quantity:   item.Quantity,
			PriceMinor: item.PriceMinor,
		})
	}
	return doc
}

func (d cartDocument) toDomain() domain.Cart {
	cart := domain.Cart{
		ID:        d.ID,
		UserID:    d.UserID,
		State:     domain.CartState(d.State),
		Count:     d.Count,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, item := range d.Items {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:  item.ProductID,
			ShopID:     item.ShopID,
			Quantity:   item.Quantity,
			PriceMinor: item.PriceMinor,
		})
	}
	return cart
}

// CartRepository — реализация CartRepository поверх MongoDB.
type CartRepository struct {
	collection *mongo.Collection
}

// NewCartRepository возвращает документное хранилище корзин.
func NewCartRepository(store *Store) *CartRepository {
	return &CartRepository{collection: store.Collection(cartsCollection)}
}

// GetActive возвращает корзину по ID, только если она активна.
func (r *CartRepository) GetActive(ctx context.Context, cartID string) (domain.Cart, error) {
	filter := bson.M{"_id": cartID, "cart_state": string(domain.CartStateActive)}

	var doc cartDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("get active cart: %w", err)
	}
	return doc.toDomain(), nil
}

// GetByUser возвращает корзину пользователя.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (domain.Cart, error) {
	var doc cartDocument
	if err := r.collection.FindOne(ctx, bson.M{"cart_userId": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("get cart by user: %w", err)
	}
	return doc.toDomain(), nil
}

// Upsert создаёт или перезаписывает корзину целиком.
func (r *CartRepository) Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	now := time.Now().UTC()
	if cart.ID == "" {
		cart.ID = uuid.NewString()
		cart.CreatedAt = now
	}
	if cart.State == "" {
		cart.State = domain.CartStateActive
	}
	cart.RecalculateCount()
	cart.UpdatedAt = now

	doc := toCartDocument(cart)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": cart.ID}, doc, opts); err != nil {
		return domain.Cart{}, fmt.Errorf("upsert cart: %w", err)
	}
	return cart, nil
}

// IncrementItemQuantity атомарно меняет количество позиции в активной корзине
// пользователя через позиционный $inc; количество <= 0 удаляет позицию.
func (r *CartRepository) IncrementItemQuantity(ctx context.Context, userID, productID string, delta int64) (domain.Cart, error) {
	filter := bson.M{
		"cart_userId":             userID,
		"cart_state":              string(domain.CartStateActive),
		"cart_products.productId": productID,
	}
	update := bson.M{
		"$inc": bson.M{
			"cart_products.$.quantity": delta,
			"cart_count_product":       delta,
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc cartDocument
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("increment cart item: %w", err)
	}

	cart := doc.toDomain()
	if item := cart.FindItem(productID); item != nil && item.Quantity <= 0 {
		// Нулевое количество убирает позицию из корзины.
		pull := bson.M{
			"$pull": bson.M{"cart_products": bson.M{"productId": productID}},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		}
		if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": cart.ID}, pull, opts).Decode(&doc); err != nil {
			return domain.Cart{}, fmt.Errorf("prune zeroed cart item: %w", err)
		}
		cart = doc.toDomain()
		cart.RecalculateCount()
		if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": cart.ID},
			bson.M{"$set": bson.M{"cart_count_product": cart.Count}}); err != nil {
			return domain.Cart{}, fmt.Errorf("recount cart: %w", err)
		}
	}
	return cart, nil
}

// RemoveItems убирает перечисленные товары из корзины через $pull.
func (r *CartRepository) RemoveItems(ctx context.Context, cartID string, productIDs []string) error {
	update := bson.M{
		"$pull": bson.M{
			"cart_products": bson.M{"productId": bson.M{"$in": productIDs}},
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc cartDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": cartID}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrCartNotFound
		}
		return fmt.Errorf("remove cart items: %w", err)
	}

	cart := doc.toDomain()
	cart.RecalculateCount()
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": cartID},
		bson.M{"$set": bson.M{"cart_count_product": cart.Count}}); err != nil {
		return fmt.Errorf("recount cart: %w", err)
	}
	return nil
}

// CreateIndexes создаёт индексы коллекции корзин.
func (r *CartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "cart_userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create cart indexes: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*CartRepository)(nil)
