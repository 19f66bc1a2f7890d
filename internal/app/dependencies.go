package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/health"
	"github.com/vladislavdragonenkov/ecom/internal/lock"
	"github.com/vladislavdragonenkov/ecom/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
	mongodb "github.com/vladislavdragonenkov/ecom/internal/storage/mongo"
	"github.com/vladislavdragonenkov/ecom/internal/storage/postgres"
	"github.com/vladislavdragonenkov/ecom/internal/version"
)

// Dependencies содержит все зависимости приложения: репозитории,
// провайдер блокировок, опциональный Kafka producer и health-обработчик.
type Dependencies struct {
	Orders      domain.OrderRepository
	Carts       domain.CartRepository
	Products    domain.ProductRepository
	Discounts   domain.DiscountRepository
	Inventory   domain.InventoryRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository

	Locks    lock.Provider
	Producer *kafka.Producer
	Health   *health.Handler
	Logger   *log.Entry

	closers []func(context.Context) error
}

// NewDependencies собирает зависимости по конфигурации. Без переменных
// окружения всё работает в памяти; Mongo, Postgres, Redis и Kafka
// подключаются независимо друг от друга, когда заданы их адреса.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Orders:      memory.NewOrderRepository(),
		Carts:       memory.NewCartRepository(),
		Products:    memory.NewProductRepository(),
		Discounts:   memory.NewDiscountRepository(),
		Inventory:   memory.NewInventoryRepository(),
		Outbox:      memory.NewOutboxRepository(),
		Timeline:    memory.NewTimelineRepository(),
		Idempotency: memory.NewIdempotencyRepository(),
		Locks:       lock.NewMemoryProvider(),
		Health:      health.NewHandler(version.String()),
		Logger:      logger,
	}

	if cfg.MongoURI != "" {
		if err := deps.connectMongo(ctx, cfg, logger); err != nil {
			deps.Close(ctx)
			return nil, err
		}
	}

	if cfg.PostgresDSN != "" {
		if err := deps.connectPostgres(ctx, cfg, logger); err != nil {
			deps.Close(ctx)
			return nil, err
		}
	}

	if cfg.RedisAddr != "" {
		if err := deps.connectRedis(ctx, cfg, logger); err != nil {
			deps.Close(ctx)
			return nil, err
		}
	}

	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		producer, err := kafka.NewProducer(brokers, "shop-service")
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			deps.Producer = producer
			deps.closers = append(deps.closers, func(context.Context) error {
				return producer.Close()
			})
			logger.WithField("brokers", brokers).Info("kafka producer initialized")
		}
	}

	return deps, nil
}

// connectMongo переводит каталожные репозитории с памяти на MongoDB.
func (d *Dependencies) connectMongo(ctx context.Context, cfg Config, logger *log.Entry) error {
	store, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}

	orders := mongodb.NewOrderRepository(store)
	carts := mongodb.NewCartRepository(store)
	products := mongodb.NewProductRepository(store)
	discounts := mongodb.NewDiscountRepository(store)
	inventory := mongodb.NewInventoryRepository(store)

	for _, create := range []func(context.Context) error{
		orders.CreateIndexes,
		carts.CreateIndexes,
		products.CreateIndexes,
		discounts.CreateIndexes,
		inventory.CreateIndexes,
	} {
		if err := create(ctx); err != nil {
			_ = store.Close(ctx)
			return fmt.Errorf("mongo indexes: %w", err)
		}
	}

	d.Orders = orders
	d.Carts = carts
	d.Products = products
	d.Discounts = discounts
	d.Inventory = inventory
	d.Health.Register("mongodb", store.Ping)
	d.closers = append(d.closers, store.Close)

	logger.WithField("database", cfg.MongoDatabase).Info("mongodb connected")
	return nil
}

// connectPostgres переводит outbox, таймлайн и idempotency-ключи на Postgres.
func (d *Dependencies) connectPostgres(ctx context.Context, cfg Config, logger *log.Entry) error {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("postgres migrations: %w", err)
	}

	d.Outbox = postgres.NewOutboxRepository(store)
	d.Timeline = postgres.NewTimelineRepository(store)
	d.Idempotency = postgres.NewIdempotencyRepository(store)
	d.Health.Register("postgres", store.Ping)
	d.closers = append(d.closers, func(context.Context) error {
		return store.Close()
	})

	logger.Info("postgres connected, migrations applied")
	return nil
}

// connectRedis переключает блокировки резервирования на Redis.
func (d *Dependencies) connectRedis(ctx context.Context, cfg Config, logger *log.Entry) error {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping: %w", err)
	}

	d.Locks = lock.NewRedisProvider(client)
	d.Health.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	d.closers = append(d.closers, func(context.Context) error {
		return client.Close()
	})

	logger.WithField("addr", cfg.RedisAddr).Info("redis connected, distributed locks enabled")
	return nil
}

// Close освобождает внешние подключения в порядке, обратном открытию.
func (d *Dependencies) Close(ctx context.Context) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			d.Logger.WithError(err).Warn("failed to close dependency")
		}
	}
	d.closers = nil
}
