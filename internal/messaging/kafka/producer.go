// Package kafka публикует события оформления заказов во внешний брокер.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Producer публикует доменные события сервиса в Kafka. Все сообщения
// сериализуются в JSON и помечаются заголовком origin с clientID сервиса.
type Producer struct {
	producer sarama.SyncProducer
	origin   string
	logger   *log.Entry
}

// NewProducer подключается к брокерам и возвращает синхронный producer.
func NewProducer(brokers []string, clientID string) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, producerConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return NewProducerWith(producer, clientID), nil
}

// NewProducerWith оборачивает готовый sarama.SyncProducer. Используется
// в тестах и там, где клиент Kafka создаётся снаружи.
func NewProducerWith(producer sarama.SyncProducer, clientID string) *Producer {
	return &Producer{
		producer: producer,
		origin:   clientID,
		logger:   log.WithField("component", "kafka-producer"),
	}
}

// producerConfig включает идемпотентную публикацию: retries продюсера
// не задваивают события, но требуют MaxOpenRequests=1 и acks от всех реплик.
func producerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	if clientID != "" {
		config.ClientID = clientID
	}
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// PublishEvent сериализует событие в JSON и отправляет его в topic.
// Ключом служит идентификатор агрегата: события одного заказа попадают
// в одну партицию и сохраняют порядок.
func (p *Producer) PublishEvent(topic string, key string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	entry := p.logger.WithFields(log.Fields{"topic": topic, "key": key})

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(body),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("origin"), Value: []byte(p.origin)},
		},
	})
	if err != nil {
		entry.WithError(err).Error("failed to send message to kafka")
		return fmt.Errorf("send message: %w", err)
	}

	entry.WithFields(log.Fields{"partition": partition, "offset": offset}).
		Debug("message sent to kafka")
	return nil
}

// Close закрывает соединение с брокерами.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
