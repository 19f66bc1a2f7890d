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

const discountsCollection = "discounts"

type discountDocument struct {
	ID                 string    `bson:"_id"`
	ShopID             string    `bson:"discount_shopId"`
	Code               string    `bson:"discount_code"`
	Name               string    `bson:"discount_name"`
	Description        string    `bson:"discount_description"`
	Type               string    `bson:"discount_type"`
	Value              int64     `bson:"discount_value"`
	IsActive           bool      `bson:"discount_is_active"`
	StartDate          time.Time `bson:"discount_start_date"`
	EndDate            time.Time `bson:"discount_end_date"`
	MaxUses            int64     `bson:"discount_max_uses"`
	UsesCount          int64     `bson:"discount_uses_count"`
	UsersUsed          []string  `bson:"discount_users_used"`
	MaxUsesPerUser     int64     `bson:"discount_max_uses_per_user"`
	MinOrderValueMinor int64     `bson:"discount_min_order_value"`
	AppliesTo          string    `bson:"discount_applies_to"`
	ProductIDs         []string  `bson:"discount_product_ids"`
	CreatedAt          time.Time `bson:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt"`
}

func toDiscountDocument(d domain.Discount) discountDocument {
	return discountDocument{
		ID:                 d.ID,
		ShopID:             d.ShopID,
		Code:               d.Code,
		Name:               d.Name,
		Description:        d.Description,
		Type:               string(d.Type),
		Value:              d.Value,
		IsActive:           d.IsActive,
		StartDate:          d.StartDate,
		EndDate:            d.EndDate,
		MaxUses:            d.MaxUses,
		UsesCount:          d.UsesCount,
		UsersUsed:          d.UsersUsed,
		MaxUsesPerUser:     d.MaxUsesPerUser,
		MinOrderValueMinor: d.MinOrderValueMinor,
		AppliesTo:          d.AppliesTo,
		ProductIDs:         d.ProductIDs,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func (d discountDocument) toDomain() domain.Discount {
	return domain.Discount{
		ID:                 d.ID,
		ShopID:             d.ShopID,
		Code:               d.Code,
		Name:               d.Name,
		Description:        d.Description,
		Type:               domain.DiscountType(d.Type),
		Value:              d.Value,
		IsActive:           d.IsActive,
		StartDate:          d.StartDate,
		EndDate:            d.EndDate,
		MaxUses:            d.MaxUses,
		UsesCount:          d.UsesCount,
		UsersUsed:          d.UsersUsed,
		MaxUsesPerUser:     d.MaxUsesPerUser,
		MinOrderValueMinor: d.MinOrderValueMinor,
		AppliesTo:          d.AppliesTo,
		ProductIDs:         d.ProductIDs,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// DiscountRepository — реализация DiscountRepository поверх MongoDB.
type DiscountRepository struct {
	collection *mongo.Collection
}

// NewDiscountRepository возвращает документное хранилище кодов скидок.
func NewDiscountRepository(store *Store) *DiscountRepository {
	return &DiscountRepository{collection: store.Collection(discountsCollection)}
}

// Create сохраняет код скидки.
func (r *DiscountRepository) Create(ctx context.Context, discount domain.Discount) error {
	if _, err := r.collection.InsertOne(ctx, toDiscountDocument(discount)); err != nil {
		return fmt.Errorf("create discount: %w", err)
	}
	return nil
}

// GetByCode возвращает код скидки магазина.
func (r *DiscountRepository) GetByCode(ctx context.Context, shopID, code string) (domain.Discount, error) {
	filter := bson.M{"discount_shopId": shopID, "discount_code": code}

	var doc discountDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Discount{}, domain.ErrDiscountNotFound
		}
		return domain.Discount{}, fmt.Errorf("get discount by code: %w", err)
	}
	return doc.toDomain(), nil
}

// Delete удаляет код скидки магазина.
func (r *DiscountRepository) Delete(ctx context.Context, shopID, code string) error {
	filter := bson.M{"discount_shopId": shopID, "discount_code": code}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrDiscountNotFound
	}
	return nil
}

// RecordUse атомарно списывает одно применение: $inc по лимиту и счётчику,
// $push пользователя в журнал применений. Условие max_uses > 0 защищает от
// ухода лимита в минус при гонке двух оформлений.
func (r *DiscountRepository) RecordUse(ctx context.Context, id, userID string) error {
	filter := bson.M{"_id": id, "discount_max_uses": bson.M{"$gt": 0}}
	update := bson.M{
		"$inc":  bson.M{"discount_max_uses": -1, "discount_uses_count": 1},
		"$push": bson.M{"discount_users_used": userID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("record discount use: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrDiscountExhausted
	}
	return nil
}

// CreateIndexes создаёт индексы коллекции скидок.
func (r *DiscountRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "discount_shopId", Value: 1}, {Key: "discount_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create discount indexes: %w", err)
	}
	return nil
}

var _ domain.DiscountRepository = (*DiscountRepository)(nil)
