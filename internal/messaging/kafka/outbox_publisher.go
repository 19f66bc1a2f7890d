package kafka

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// ErrPublisherNotReady возвращается, когда паблишер создан без producer'а.
var ErrPublisherNotReady = errors.New("kafka outbox publisher is not initialized")

// outboxEnvelope — формат сообщения на проводе; data несёт исходный
// payload из outbox без повторной сериализации.
type outboxEnvelope struct {
	MessageID string          `json:"message_id"`
	Aggregate string          `json:"aggregate"`
	Subject   string          `json:"subject"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	EmittedAt time.Time       `json:"emitted_at"`
}

type outboxPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
// Пустой topic означает общий топик событий заказов.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &outboxPublisher{producer: producer, topic: topic}
}

// Publish отправляет сообщение в топик. Ключом партиционирования служит
// агрегат, чтобы события одного заказа читались в порядке записи.
func (p *outboxPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return ErrPublisherNotReady
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}

	return p.producer.PublishEvent(p.topic, key, outboxEnvelope{
		MessageID: msg.ID,
		Aggregate: msg.AggregateType,
		Subject:   msg.AggregateID,
		Event:     msg.EventType,
		Data:      json.RawMessage(msg.Payload),
		EmittedAt: time.Now().UTC(),
	})
}

var _ domain.OutboxPublisher = (*outboxPublisher)(nil)
