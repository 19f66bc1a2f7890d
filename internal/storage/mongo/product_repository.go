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

const productsCollection = "products"

type productDocument struct {
	ID          string                 `bson:"_id"`
	ShopID      string                 `bson:"product_shop"`
	Name        string                 `bson:"product_name"`
	Type        string                 `bson:"product_type"`
	Description string                 `bson:"product_description"`
	PriceMinor  int64                  `bson:"product_price"`
	Quantity    int64                  `bson:"product_quantity"`
	Attributes  map[string]interface{} `bson:"product_attributes"`
	IsDraft     bool                   `bson:"isDraft"`
	IsPublished bool                   `bson:"isPublished"`
	CreatedAt   time.Time              `bson:"createdAt"`
	UpdatedAt   time.Time              `bson:"updatedAt"`
}

func toProductDocument(p domain.Product) productDocument {
	return productDocument{
		ID:          p.ID,
		ShopID:      p.ShopID,
		Name:        p.Name,
		Type:        string(p.Type),
		Description: p.Description,
		PriceMinor:  p.PriceMinor,
		Quantity:    p.Quantity,
		Attributes:  p.Attributes,
		IsDraft:     p.IsDraft,
		IsPublished: p.IsPublished,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID,
		ShopID:      d.ShopID,
		Name:        d.Name,
		Type:        domain.ProductType(d.Type),
		Description: d.Description,
		PriceMinor:  d.PriceMinor,
		Quantity:    d.Quantity,
		Attributes:  d.Attributes,
		IsDraft:     d.IsDraft,
		IsPublished: d.IsPublished,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ProductRepository — реализация ProductRepository поверх MongoDB.
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository возвращает документное хранилище каталога.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{collection: store.Collection(productsCollection)}
}

// Create сохраняет карточку товара.
func (r *ProductRepository) Create(ctx context.Context, product domain.Product) error {
	if _, err := r.collection.InsertOne(ctx, toProductDocument(product)); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Get возвращает товар по идентификатору.
func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	var doc productDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return doc.toDomain(), nil
}

// Update перезаписывает карточку товара.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	product.UpdatedAt = time.Now().UTC()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, toProductDocument(product))
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// SetPublished публикует или снимает с публикации товар магазина.
func (r *ProductRepository) SetPublished(ctx context.Context, shopID, productID string, published bool) error {
	filter := bson.M{"_id": productID, "product_shop": shopID}
	update := bson.M{"$set": bson.M{
		"isPublished": published,
		"isDraft":     !published,
		"updatedAt":   time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// AdjustQuantity атомарно меняет каталожное количество через $inc.
func (r *ProductRepository) AdjustQuantity(ctx context.Context, productID string, delta int64) error {
	update := bson.M{
		"$inc": bson.M{"product_quantity": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": productID}, update)
	if err != nil {
		return fmt.Errorf("adjust quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// CreateIndexes создаёт индексы коллекции каталога.
func (r *ProductRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "product_shop", Value: 1}, {Key: "isPublished", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "product_name", Value: "text"}},
			Options: options.Index().SetDefaultLanguage("english"),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}
	return nil
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
