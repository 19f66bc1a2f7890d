// Package app собирает сервис воедино: конфигурация, зависимости,
// HTTP-сервер и фоновые воркеры с graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ecom/internal/metrics"
	"github.com/vladislavdragonenkov/ecom/internal/service/cart"
	"github.com/vladislavdragonenkov/ecom/internal/service/checkout"
	"github.com/vladislavdragonenkov/ecom/internal/service/discount"
	"github.com/vladislavdragonenkov/ecom/internal/service/idempotency"
	"github.com/vladislavdragonenkov/ecom/internal/service/inventorymgr"
	"github.com/vladislavdragonenkov/ecom/internal/service/outbox"
	"github.com/vladislavdragonenkov/ecom/internal/service/product"
	"github.com/vladislavdragonenkov/ecom/internal/service/reservation"
	transport "github.com/vladislavdragonenkov/ecom/internal/transport/http"
)

// Config описывает настройки запуска приложения. Пустые адреса означают
// «работать без этого бэкенда»: по умолчанию сервис полностью in-memory.
type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string
	PostgresDSN   string
	RedisAddr     string
	KafkaBrokers  string
	OutboxTopic   string
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:      ":8080",
		MongoDatabase: "ecom",
		OutboxTopic:   kafka.TopicOrderEvents,
	}
}

// Run запускает сервис и блокируется до отмены контекста или фатальной
// ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		deps.Close(closeCtx)
	}()

	checkoutMetrics := metrics.NewCheckoutMetrics()

	engine := reservation.NewEngine(
		deps.Inventory,
		deps.Locks,
		reservation.DefaultConfig(),
		logger.WithField("component", "reservation"),
	).WithMetrics(checkoutMetrics)

	discountSvc := discount.NewService(deps.Discounts, logger.WithField("component", "discount"))

	orchestrator := checkout.NewOrchestrator(
		deps.Orders,
		deps.Carts,
		deps.Products,
		discountSvc,
		engine,
		deps.Outbox,
		deps.Timeline,
		logger.WithField("component", "checkout"),
	).WithMetrics(checkoutMetrics)
	if deps.Producer != nil {
		orchestrator = orchestrator.WithKafka(deps.Producer)
	}

	cartSvc := cart.NewService(deps.Carts, deps.Products, logger.WithField("component", "cart"))
	productSvc := product.NewService(deps.Products, product.NewRegistry(), logger.WithField("component", "product"))
	inventorySvc := inventorymgr.NewService(deps.Inventory, deps.Products, logger.WithField("component", "inventory"))
	if deps.Producer != nil {
		inventorySvc = inventorySvc.WithKafka(deps.Producer)
	}

	router := transport.NewRouter(transport.Handlers{
		Checkout:  transport.NewCheckoutHandler(orchestrator, deps.Idempotency, logger.WithField("layer", "http")),
		Orders:    transport.NewOrderHandler(orchestrator, deps.Timeline),
		Cart:      transport.NewCartHandler(cartSvc),
		Products:  transport.NewProductHandler(productSvc),
		Discounts: transport.NewDiscountHandler(discountSvc),
		Inventory: transport.NewInventoryHandler(inventorySvc),
		Health:    deps.Health,
	}, logger.WithField("layer", "http"))

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var wg sync.WaitGroup

	// Outbox-воркер имеет смысл только при подключённой Kafka: без неё
	// события остаются в таблице до появления брокера.
	if deps.Producer != nil {
		publisher := kafka.NewOutboxPublisher(deps.Producer, cfg.OutboxTopic)
		dlq := kafka.NewOutboxPublisher(deps.Producer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.DefaultConfig(),
			logger.WithField("component", "outbox-worker"),
		).WithDLQ(dlq)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workersCtx)
		}()
	}

	sweeper := idempotency.NewSweeper(
		deps.Idempotency,
		idempotency.DefaultSweeperConfig(),
		logger.WithField("component", "idempotency-sweeper"),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(workersCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("graceful shutdown завершился с ошибкой")
		}
		stopWorkers()
		wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		stopWorkers()
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
