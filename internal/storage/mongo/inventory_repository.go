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

const inventoriesCollection = "inventories"

// reservationDocument — запись журнала резервирований внутри документа склада.
type reservationDocument struct {
	Quantity  int64     `bson:"quantity"`
	CartID    string    `bson:"cartId"`
	CreatedAt time.Time `bson:"createOn"`
}

// inventoryDocument — документ склада одного товара.
type inventoryDocument struct {
	ProductID    string                `bson:"inventory_productId"`
	ShopID       string                `bson:"inventory_shopId"`
	Location     string                `bson:"inventory_location"`
	Stock        int64                 `bson:"inventory_stock"`
	Reservations []reservationDocument `bson:"inventory_reservations"`
	CreatedAt    time.Time             `bson:"createdAt"`
	UpdatedAt    time.Time             `bson:"updatedAt"`
}

func (d inventoryDocument) toDomain() domain.Inventory {
	inv := domain.Inventory{
		ProductID: d.ProductID,
		ShopID:    d.ShopID,
		Location:  d.Location,
		Stock:     d.Stock,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, r := range d.Reservations {
		inv.Reservations = append(inv.Reservations, domain.ReservationEntry{
			Quantity:  r.Quantity,
			CartID:    r.CartID,
			CreatedAt: r.CreatedAt,
		})
	}
	return inv
}

// InventoryRepository — реализация InventoryRepository поверх MongoDB.
// Условное списание — single-document FindOneAndUpdate: фильтр по остатку
// и декремент выполняются одной атомарной операцией.
type InventoryRepository struct {
	collection *mongo.Collection
}

// NewInventoryRepository возвращает документное хранилище склада.
func NewInventoryRepository(store *Store) *InventoryRepository {
	return &InventoryRepository{collection: store.Collection(inventoriesCollection)}
}

// Get возвращает складскую запись товара.
func (r *InventoryRepository) Get(ctx context.Context, productID string) (domain.Inventory, error) {
	var doc inventoryDocument
	err := r.collection.FindOne(ctx, bson.M{"inventory_productId": productID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Inventory{}, domain.ErrInventoryNotFound
		}
		return domain.Inventory{}, fmt.Errorf("get inventory: %w", err)
	}
	return doc.toDomain(), nil
}

// AddStock пополняет остаток, создавая документ при первом пополнении.
func (r *InventoryRepository) AddStock(ctx context.Context, productID, shopID string, quantity int64, location string) (domain.Inventory, error) {
	now := time.Now().UTC()

	set := bson.M{"updatedAt": now}
	if location != "" {
		set["inventory_location"] = location
	}
	update := bson.M{
		"$inc": bson.M{"inventory_stock": quantity},
		"$set": set,
		"$setOnInsert": bson.M{
			"inventory_productId":    productID,
			"inventory_shopId":       shopID,
			"inventory_reservations": []reservationDocument{},
			"createdAt":              now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc inventoryDocument
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"inventory_productId": productID}, update, opts).Decode(&doc)
	if err != nil {
		return domain.Inventory{}, fmt.Errorf("add stock: %w", err)
	}
	return doc.toDomain(), nil
}

// ReserveStock атомарно списывает сток, если остатка хватает, и дописывает
// запись в журнал резервирований. Отсутствие совпадения означает отказ.
func (r *InventoryRepository) ReserveStock(ctx context.Context, productID string, quantity int64, cartID string) (bool, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"inventory_productId": productID,
		"inventory_stock":     bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"inventory_stock": -quantity},
		"$push": bson.M{
			"inventory_reservations": reservationDocument{
				Quantity:  quantity,
				CartID:    cartID,
				CreatedAt: now,
			},
		},
		"$set": bson.M{"updatedAt": now},
	}

	err := r.collection.FindOneAndUpdate(ctx, filter, update).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Либо записи нет, либо остатка не хватает: условие не выполнено.
			return false, nil
		}
		return false, fmt.Errorf("reserve stock: %w", err)
	}
	return true, nil
}

// ReleaseStock возвращает списанный сток и снимает запись резервирования корзины.
// Фильтр требует наличия записи в журнале: без неё возврат не применяется,
// иначе повторная компенсация надула бы остаток.
func (r *InventoryRepository) ReleaseStock(ctx context.Context, productID string, quantity int64, cartID string) (bool, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"inventory_productId": productID,
		"inventory_reservations": bson.M{
			"$elemMatch": bson.M{
				"cartId":   cartID,
				"quantity": quantity,
			},
		},
	}
	update := bson.M{
		"$inc": bson.M{"inventory_stock": quantity},
		"$pull": bson.M{
			"inventory_reservations": bson.M{
				"cartId":   cartID,
				"quantity": quantity,
			},
		},
		"$set": bson.M{"updatedAt": now},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("release stock: %w", err)
	}
	return result.MatchedCount > 0, nil
}

// CreateIndexes создаёт индексы коллекции склада.
func (r *InventoryRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "inventory_productId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "inventory_shopId", Value: 1}},
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create inventory indexes: %w", err)
	}
	return nil
}

var _ domain.InventoryRepository = (*InventoryRepository)(nil)
