// Package mongo реализует документные репозитории сервиса поверх MongoDB.
// Имена bson-полей повторяют исторические имена коллекций интернет-магазина,
// поэтому сервис читает и пишет те же документы, что и предыдущая версия.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config задаёт параметры подключения к MongoDB.
type Config struct {
	URI      string
	Database string
}

// Store держит подключение к базе и отдаёт коллекции репозиториям.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect подключается к MongoDB и проверяет соединение ping'ом.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Collection возвращает коллекцию по имени.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Close разрывает подключение.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
