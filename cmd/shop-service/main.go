package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/app"
	"github.com/vladislavdragonenkov/ecom/internal/version"
)

// Переменные окружения сервиса. Пустое значение оставляет настройку
// по умолчанию, поэтому без конфигурации сервис стартует in-memory.
const (
	envHTTPAddr      = "ECOM_HTTP_ADDR"
	envMongoURI      = "ECOM_MONGO_URI"
	envMongoDatabase = "ECOM_MONGO_DATABASE"
	envPostgresDSN   = "ECOM_POSTGRES_DSN"
	envRedisAddr     = "ECOM_REDIS_ADDR"
	envKafkaBrokers  = "ECOM_KAFKA_BROKERS"
	envOutboxTopic   = "ECOM_OUTBOX_TOPIC"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию приложения из переменных
// окружения поверх значений по умолчанию.
func readConfigFromEnv(lookup envLookup) app.Config {
	cfg := app.DefaultConfig()

	read := func(key string, dst *string) {
		if value, ok := lookup(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				*dst = trimmed
			}
		}
	}

	read(envHTTPAddr, &cfg.HTTPAddr)
	read(envMongoURI, &cfg.MongoURI)
	read(envMongoDatabase, &cfg.MongoDatabase)
	read(envPostgresDSN, &cfg.PostgresDSN)
	read(envRedisAddr, &cfg.RedisAddr)
	read(envKafkaBrokers, &cfg.KafkaBrokers)
	read(envOutboxTopic, &cfg.OutboxTopic)

	return cfg
}

func main() {
	setupLogger()
	cfg := readConfigFromEnv(os.LookupEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr": cfg.HTTPAddr,
		"version":   version.String(),
	}).Info("запускаем shop-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("shop-service остановлен")
}
